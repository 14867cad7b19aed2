package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/heyjunin/StreamGrab/pkg/extractor"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/selector"
)

const copyBufferSize = 32 << 10

// Health answers liveness probes.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info?url=.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := extractor.ValidateURL(rawURL); err != nil {
		s.writeError(w, r, err)
		return
	}

	catalog, err := s.extractor.GetInfo(r.Context(), rawURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, media.NewInfo(catalog))
}

// Download handles GET /download?url=&itag=. The transcoder output is copied
// to the client as it is produced. Headers go out with the first chunk; a
// failure after that aborts the connection so the client sees a truncated
// transfer.
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL, itag := q.Get("url"), q.Get("itag")
	if err := extractor.ValidateURL(rawURL); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := selector.ValidateFormatID(itag); err != nil {
		s.writeError(w, r, err)
		return
	}

	catalog, err := s.extractor.GetInfo(r.Context(), rawURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sel, err := selector.Select(catalog, itag)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stream, err := s.relay.Open(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer stream.Close()

	// Hold the headers back until ffmpeg has produced output, so that a
	// failure before the first byte still gets a proper error response.
	buf := make([]byte, copyBufferSize)
	first, err := stream.Read(buf)
	if first == 0 && err != nil && err != io.EOF {
		if r.Context().Err() != nil {
			s.logger.Info("Download cancelled by client", "api", map[string]interface{}{
				"request_id": requestIDFrom(r.Context()),
				"url":        rawURL,
				"error":      err.Error(),
			})
			return
		}
		s.writeError(w, r, err)
		return
	}

	filename := media.Filename(catalog.Title, stream.Extension())
	w.Header().Set("Content-Type", stream.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	out := newFlushWriter(w)
	var n int64
	if first > 0 {
		written, werr := out.Write(buf[:first])
		n = int64(written)
		if werr != nil {
			err = werr
		}
	}
	if err == nil {
		var copied int64
		copied, err = io.CopyBuffer(out, stream, buf)
		n += copied
	}
	if err == io.EOF {
		err = nil
	}

	fields := map[string]interface{}{
		"request_id": requestIDFrom(r.Context()),
		"url":        rawURL,
		"itag":       itag,
		"kind":       string(sel.Kind),
		"mux":        sel.NeedsMux,
		"bytes":      n,
	}
	if err == nil {
		s.logger.Info("Download completed", "api", fields)
		return
	}

	fields["error"] = err.Error()
	if r.Context().Err() != nil {
		s.logger.Info("Download cancelled by client", "api", fields)
		return
	}
	s.logger.Error("Download aborted mid-stream", "api", fields)
	panic(http.ErrAbortHandler)
}
