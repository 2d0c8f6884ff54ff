// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /me.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMe)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Patch("/", h.HandleUpdate)
		pr.Get("/logins", h.ServeLogins)
	})
	return r
}
