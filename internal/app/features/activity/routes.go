// internal/app/features/activity/routes.go
package activity

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for activity log endpoints. Users see their own
// entries; admins see the members and projects of their group.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/subject", h.ServeSubject)
	r.Get("/export.csv", h.ServeCSV)
	return r
}
