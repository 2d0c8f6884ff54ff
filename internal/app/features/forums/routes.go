package forums

import (
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /forums. Forums are private to group members.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeForums)
	r.Post("/", h.HandleCreateForum)
	r.Route("/{forumID}", func(fr chi.Router) {
		fr.Patch("/", h.HandleEditForum)
		fr.Delete("/", h.HandleDeleteForum)
		fr.Get("/threads", h.ServeThreads)
		fr.Post("/threads", h.HandleCreateThread)
	})
	return r
}

// ThreadRoutes mounts at /threads.
func ThreadRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Route("/{threadID}", func(tr chi.Router) {
		tr.Patch("/", h.HandleEditThread)
		tr.Delete("/", h.HandleDeleteThread)
		tr.Get("/replies", h.ServeReplies)
		tr.Post("/replies", h.HandleCreateReply)
		tr.Patch("/replies/{replyID}", h.HandleEditReply)
		tr.Delete("/replies/{replyID}", h.HandleDeleteReply)
	})
	return r
}
