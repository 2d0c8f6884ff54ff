package comments

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /projects/{projectID}/comments.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeComments)
	r.Get("/{commentID}/replies", h.ServeReplies)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleCreateComment)
		pr.Post("/{commentID}/replies", h.HandleReply)
		pr.Patch("/replies/{replyID}", h.HandleEditReply)
		pr.Delete("/replies/{replyID}", h.HandleDeleteReply)
	})
	return r
}
