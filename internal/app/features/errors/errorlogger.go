package errors

import (
	"net/http"

	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"go.uber.org/zap"
)

// ErrorLogger writes JSON error responses and logs server-side failures
// with the operation that produced them.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Respond maps err to a status. Client errors are returned as-is; server
// errors are logged under msg and answered with a generic message.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := httperr.Status(err)
	switch {
	case status == http.StatusNotFound:
		httperr.Error(w, status, "not found")
		return
	case status < http.StatusInternalServerError:
		httperr.Error(w, status, err.Error())
		return
	}
	e.LogServerError(w, r, msg, err, http.StatusText(status))
}

// LogServerError logs err and answers 500 (or the mapped 5xx) with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	status := httperr.Status(err)
	if status < http.StatusInternalServerError {
		status = http.StatusInternalServerError
	}
	e.Log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	httperr.Error(w, status, userMsg)
}

// BadRequest answers 400 with msg.
func (e *ErrorLogger) BadRequest(w http.ResponseWriter, msg string) {
	httperr.Error(w, http.StatusBadRequest, msg)
}
