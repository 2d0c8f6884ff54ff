package invitations

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/dalemusser/investwest/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /invitations. ipLimit throttles the token-only decline
// endpoint so tokens cannot be guessed.
func Routes(h *Handler, sm *auth.SessionManager, ipLimit *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	if ipLimit != nil {
		r.With(ratelimit.ByIP(ipLimit)).Post("/{inviteID}/decline", h.HandleDecline)
	} else {
		r.Post("/{inviteID}/decline", h.HandleDecline)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleInvite)
		pr.Post("/{inviteID}/accept", h.HandleAccept)
		pr.Post("/{inviteID}/leave", h.HandleLeave)
		pr.Post("/{inviteID}/kick-out", h.HandleKickOut)
	})
	return r
}
