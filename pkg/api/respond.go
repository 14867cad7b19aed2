package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/logger"
)

// errorBody is the JSON document sent for every failed request.
type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode JSON response", "api", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeError logs err with the request context and answers with its status.
// Errors that are not StructuredErrors are reported as internal errors
// without leaking their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	se, ok := errors.As(err)
	if !ok {
		se = errors.Wrap(err, errors.SystemError, errors.GetErrorMessage(errors.ErrInternal), errors.ErrInternal)
	}

	fields := map[string]interface{}{
		"request_id": requestIDFrom(r.Context()),
		"path":       r.URL.Path,
		"url":        r.URL.Query().Get("url"),
		"itag":       r.URL.Query().Get("itag"),
		"status":     status,
		"code":       se.Code,
		"error":      err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(se.Message, "api", fields)
	} else {
		s.logger.Warn(se.Message, "api", fields)
	}

	writeJSON(w, status, errorBody{Error: se.Message, Type: string(se.Type), Code: se.Code})
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) flushWriter {
	return flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if ferr := f.rc.Flush(); ferr != nil && !stderrors.Is(ferr, http.ErrNotSupported) {
		return n, ferr
	}
	return n, nil
}
