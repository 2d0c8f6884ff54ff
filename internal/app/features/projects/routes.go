// internal/app/features/projects/routes.go
package projects

import (
	"net/http"

	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /projects router. nested handlers (pledges, votes,
// comments) are mounted under /{projectID}/<prefix> and can read the
// projectID URL parameter.
func Routes(h *Handler, sm *auth.SessionManager, nested map[string]http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public reads: visibility is enforced per project.
	r.Get("/", h.ServeList)

	r.Route("/{projectID}", func(pr chi.Router) {
		pr.Get("/", h.ServeDetail)

		for prefix, sub := range nested {
			pr.Mount("/"+prefix, sub)
		}

		pr.Group(func(ar chi.Router) {
			ar.Use(sm.RequireSignedIn)

			ar.Patch("/", h.HandleEdit)
			ar.Delete("/", h.HandleDelete)

			// Lifecycle
			ar.Post("/submit", h.HandleSubmit)
			ar.Post("/pitch-decision", h.HandlePitchDecision)
			ar.Post("/admission-decision", h.HandleAdmissionDecision)
			ar.Post("/offer", h.HandleCreateOffer)
			ar.Post("/offer-decision", h.HandleOfferDecision)
			ar.Post("/closure", h.HandleToggleClosure)
			ar.Post("/revive", h.HandleRevive)
			ar.Post("/close-offer", h.HandleCloseOffer)
		})
	})

	r.With(sm.RequireSignedIn).Post("/", h.HandleCreate)

	return r
}
