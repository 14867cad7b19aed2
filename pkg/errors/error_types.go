package errors

import "net/http"

// statusByType maps each error category onto the HTTP status the API answers with.
var statusByType = map[ErrorType]int{
	InvalidInput:    http.StatusBadRequest,
	ExtractionError: http.StatusInternalServerError,
	FormatNotFound:  http.StatusNotFound,
	TranscodeFailed: http.StatusInternalServerError,
	DownloadError:   http.StatusBadGateway,
	SystemError:     http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status code for err.
// Errors that are not StructuredErrors map to 500.
func HTTPStatus(err error) int {
	se, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := statusByType[se.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}
