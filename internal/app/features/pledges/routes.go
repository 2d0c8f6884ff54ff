package pledges

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// PledgeRoutes is mounted at /projects/{projectID}/pledges.
func PledgeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServePledges)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Put("/", h.HandlePledge)
		pr.Delete("/", h.HandleWithdrawPledge)
	})
	return r
}

// VoteRoutes is mounted at /projects/{projectID}/votes.
func VoteRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeVotes)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Put("/", h.HandleVote)
		pr.Delete("/", h.HandleWithdrawVote)
	})
	return r
}
