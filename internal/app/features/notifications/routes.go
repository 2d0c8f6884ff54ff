package notifications

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/read-all", h.HandleMarkAllRead)
	r.Post("/{notificationID}/read", h.HandleMarkRead)
	r.Delete("/{notificationID}", h.HandleDelete)
	return r
}
