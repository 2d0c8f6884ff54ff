// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"go.uber.org/zap"
)

// errorBody is the JSON envelope for router-level errors.
type errorBody struct {
	Error    string `json:"error"`
	Path     string `json:"path,omitempty"`
	SignedIn bool   `json:"signed_in"`
}

// Handler is the errors feature handler. No DB needed.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, msg string) {
	_, _, _, signedIn := authz.UserCtx(r)
	httperr.JSON(w, status, errorBody{Error: msg, Path: r.URL.Path, SignedIn: signedIn})
}

// NotFound is the router's 404 handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNotFound, "no such endpoint")
}

// MethodNotAllowed is the router's 405 handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// Forbidden reports that the signed-in user lacks permission.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusForbidden, "You don't have permission to view this resource.")
}

// Unauthorized reports that a session is required.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusUnauthorized, "Please sign in to continue.")
}

// Recoverer turns a handler panic into a logged 500.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Log.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				h.write(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
