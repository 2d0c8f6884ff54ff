package forums

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/htmlsanitize"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
)

type threadInput struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ServeThreads handles GET /forums/{forumID}/threads[?mode=deleted].
func (h *Handler) ServeThreads(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list threads")
	defer cancel()

	f, a, err := h.forum(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list threads", err)
		return
	}
	m, err := mode(r, a)
	if err != nil {
		h.ErrLog.Respond(w, r, "list threads", err)
		return
	}
	list, err := projectqueries.LoadThreads(ctx, h.DB, f.ID, m)
	if err != nil {
		h.ErrLog.Respond(w, r, "list threads", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"threads": list})
}

// HandleCreateThread handles POST /forums/{forumID}/threads.
func (h *Handler) HandleCreateThread(w http.ResponseWriter, r *http.Request) {
	var in threadInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode thread", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create thread")
	defer cancel()

	f, a, err := h.forum(ctx, r)
	if err == nil && f.Deleted {
		err = httperr.ErrNotFound
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "create thread", err)
		return
	}
	t, err := h.Forums.CreateThread(ctx, f.ID, a.actor.ID,
		strings.TrimSpace(in.Name),
		htmlsanitize.PrepareForStorage(strings.TrimSpace(in.Message)))
	if err != nil {
		h.ErrLog.Respond(w, r, "create thread", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, t)
}

// HandleEditThread handles PATCH /threads/{threadID}.
func (h *Handler) HandleEditThread(w http.ResponseWriter, r *http.Request) {
	var in threadInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode thread", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "edit thread")
	defer cancel()

	t, a, err := h.thread(ctx, r)
	if err == nil && a.actor.ID != t.AuthorID {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "edit thread", err)
		return
	}
	if err := h.Forums.EditThread(ctx, t.ID, strings.TrimSpace(in.Name),
		htmlsanitize.PrepareForStorage(strings.TrimSpace(in.Message))); err != nil {
		h.ErrLog.Respond(w, r, "edit thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteThread handles DELETE /threads/{threadID}.
func (h *Handler) HandleDeleteThread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete thread")
	defer cancel()

	t, a, err := h.thread(ctx, r)
	if err == nil && !a.canChange(t.AuthorID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "delete thread", err)
		return
	}
	if err := h.Forums.DeleteThread(ctx, t.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
