package forums

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/htmlsanitize"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
)

type replyInput struct {
	Message string `json:"message"`
}

func (in replyInput) clean() string {
	return htmlsanitize.PrepareForStorage(strings.TrimSpace(in.Message))
}

// ServeReplies handles GET /threads/{threadID}/replies[?mode=deleted].
func (h *Handler) ServeReplies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list thread replies")
	defer cancel()

	t, a, err := h.thread(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list thread replies", err)
		return
	}
	m, err := mode(r, a)
	if err != nil {
		h.ErrLog.Respond(w, r, "list thread replies", err)
		return
	}
	list, err := projectqueries.LoadThreadReplies(ctx, h.DB, t.ID, m)
	if err != nil {
		h.ErrLog.Respond(w, r, "list thread replies", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"replies": list})
}

// HandleCreateReply handles POST /threads/{threadID}/replies.
func (h *Handler) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	var in replyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode reply", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create thread reply")
	defer cancel()

	t, a, err := h.thread(ctx, r)
	if err == nil && t.Deleted {
		err = httperr.ErrNotFound
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "create thread reply", err)
		return
	}
	reply, err := h.Forums.CreateReply(ctx, t.ID, a.actor.ID, in.clean())
	if err != nil {
		h.ErrLog.Respond(w, r, "create thread reply", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, reply)
}

// HandleEditReply handles PATCH /threads/{threadID}/replies/{replyID}. Author only.
func (h *Handler) HandleEditReply(w http.ResponseWriter, r *http.Request) {
	var in replyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode reply", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "edit thread reply")
	defer cancel()

	reply, err := h.ownReply(ctx, r, false)
	if err != nil {
		h.ErrLog.Respond(w, r, "edit thread reply", err)
		return
	}
	if err := h.Forums.EditReply(ctx, reply.ID, in.clean()); err != nil {
		h.ErrLog.Respond(w, r, "edit thread reply", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteReply handles DELETE /threads/{threadID}/replies/{replyID}.
func (h *Handler) HandleDeleteReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete thread reply")
	defer cancel()

	reply, err := h.ownReply(ctx, r, true)
	if err != nil {
		h.ErrLog.Respond(w, r, "delete thread reply", err)
		return
	}
	if err := h.Forums.DeleteReply(ctx, reply.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete thread reply", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownReply loads the reply named in the path, checks it belongs to the
// thread and that the caller wrote it (or administers the group when adminOK).
func (h *Handler) ownReply(ctx context.Context, r *http.Request, adminOK bool) (models.ThreadReply, error) {
	t, a, err := h.thread(ctx, r)
	if err != nil {
		return models.ThreadReply{}, err
	}
	id, err := httperr.PathID(r, "replyID")
	if err != nil {
		return models.ThreadReply{}, err
	}
	reply, err := h.Forums.GetReply(ctx, id)
	if err != nil {
		return models.ThreadReply{}, err
	}
	if reply.ThreadID != t.ID {
		return models.ThreadReply{}, httperr.ErrNotFound
	}
	if a.actor.ID == reply.AuthorID || (adminOK && a.admin) {
		return reply, nil
	}
	return models.ThreadReply{}, httperr.ErrForbidden
}
