package joinrequests

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/{requestID}/accept", h.HandleAccept)
	r.Post("/{requestID}/reject", h.HandleReject)
	return r
}
