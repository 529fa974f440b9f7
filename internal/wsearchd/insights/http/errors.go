package http

import (
	"errors"
	"net/http"

	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
)

// httpError carries a request problem detected by the handler itself
type httpError struct {
	msg  string
	code int
}

func (e *httpError) Error() string {
	return e.msg
}

// ErrInvalidRequest reports a malformed request parameter
func ErrInvalidRequest(msg string) error {
	return &httpError{msg: msg, code: http.StatusBadRequest}
}

// statusFor maps an error to its HTTP status, error code and client message.
// Internal failures never leak their details.
func statusFor(err error) (int, string, string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.code, "INVALID_INPUT", he.msg
	}

	var de *werrors.Error
	msg := err.Error()
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch {
	case werrors.IsInvalidInput(err):
		return http.StatusBadRequest, "INVALID_INPUT", msg
	case werrors.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND", msg
	case werrors.IsSyncInProgress(err):
		return http.StatusConflict, "SYNC_IN_PROGRESS", "a sync is already in progress"
	case werrors.IsConflict(err):
		return http.StatusConflict, "CONFLICT", msg
	case werrors.IsUpstream(err):
		return http.StatusBadGateway, "UPSTREAM", "search analytics source failed"
	}
	return http.StatusInternalServerError, "INTERNAL", "internal server error"
}
