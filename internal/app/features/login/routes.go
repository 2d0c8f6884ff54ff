// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/investwest/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /login. ipLimit guards the unauthenticated endpoints
// against code guessing.
func Routes(h *Handler, ipLimit *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if ipLimit != nil {
		r.Use(ratelimit.ByIP(ipLimit))
	}
	r.Post("/", h.HandleRequestCode)
	r.Post("/verify", h.HandleVerify)
	r.Get("/link", h.HandleLink)
	return r
}
