package live

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /live. The project list and project detail streams
// are open to anonymous callers; visibility rules decide what they see.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/projects", h.ServeProjects)
	r.Get("/projects/{projectID}/pledges", h.ServePledges)
	r.Get("/projects/{projectID}/comments", h.ServeComments)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/forums/{forumID}/threads", h.ServeThreads)
		pr.Get("/notifications", h.ServeNotifications)
	})
	return r
}
