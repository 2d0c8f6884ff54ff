package groups

import (
	"net/http"

	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeMembers handles GET /groups/{groupID}/members[?role=]. Members see
// their own group's roster; admins see any group they administer.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list members", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list members")
	defer cancel()

	g, err := h.group(ctx, r)
	if err == nil && actor.GroupID != g.ID && !actor.CanAdminister(g.ID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "list members", err)
		return
	}
	users, err := h.Users.ListByGroup(ctx, g.ID, query.Get(r, "role"))
	if err != nil {
		h.ErrLog.Respond(w, r, "list members", err)
		return
	}
	out := make([]*models.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"members": out})
}
