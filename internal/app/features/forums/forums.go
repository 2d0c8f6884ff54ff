package forums

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeForums handles GET /forums?group=<id>[&mode=deleted]. The group
// defaults to the caller's home group.
func (h *Handler) ServeForums(w http.ResponseWriter, r *http.Request) {
	groupID := authz.UserGroupID(r)
	if raw := query.Get(r, "group"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.ErrLog.BadRequest(w, "group must be a valid id")
			return
		}
		groupID = id
	}
	if groupID.IsZero() {
		h.ErrLog.BadRequest(w, "group is required")
		return
	}
	a, err := accessFor(r, groupID)
	if err != nil {
		h.ErrLog.Respond(w, r, "list forums", err)
		return
	}
	m, err := mode(r, a)
	if err != nil {
		h.ErrLog.Respond(w, r, "list forums", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list forums")
	defer cancel()

	list, err := projectqueries.LoadForums(ctx, h.DB, groupID, m)
	if err != nil {
		h.ErrLog.Respond(w, r, "list forums", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"forums": list})
}

type forumInput struct {
	GroupID     string `json:"group_id" validate:"required,objectid" label:"Group"`
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
}

// HandleCreateForum handles POST /forums. Group admins only.
func (h *Handler) HandleCreateForum(w http.ResponseWriter, r *http.Request) {
	var in forumInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode forum", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}
	groupID, _ := primitive.ObjectIDFromHex(in.GroupID)
	a, err := accessFor(r, groupID)
	if err == nil && !a.admin {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "create forum", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create forum")
	defer cancel()

	f, err := h.Forums.CreateForum(ctx, groupID, a.actor.ID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description))
	if err != nil {
		h.ErrLog.Respond(w, r, "create forum", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, f)
}

type forumEdit struct {
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
}

// HandleEditForum handles PATCH /forums/{forumID}.
func (h *Handler) HandleEditForum(w http.ResponseWriter, r *http.Request) {
	var in forumEdit
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode forum", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "edit forum")
	defer cancel()

	f, a, err := h.forum(ctx, r)
	if err == nil && !a.canChange(f.AuthorID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "edit forum", err)
		return
	}
	if err := h.Forums.EditForum(ctx, f.ID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description)); err != nil {
		h.ErrLog.Respond(w, r, "edit forum", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteForum handles DELETE /forums/{forumID}.
func (h *Handler) HandleDeleteForum(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete forum")
	defer cancel()

	f, a, err := h.forum(ctx, r)
	if err == nil && !a.canChange(f.AuthorID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "delete forum", err)
		return
	}
	if err := h.Forums.DeleteForum(ctx, f.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete forum", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
