// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Group front pages are public.
	r.Get("/", h.ServeList)
	r.Get("/{groupID}", h.ServeGroup)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Patch("/{groupID}", h.HandleUpdateProperties)
		pr.Delete("/{groupID}", h.HandleDelete)
		pr.Put("/{groupID}/settings", h.HandleUpdateSettings)
		pr.Put("/{groupID}/status", h.HandleSetStatus)
		pr.Get("/{groupID}/members", h.ServeMembers)
	})

	return r
}
