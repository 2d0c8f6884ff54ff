package profile

import (
	"net/http"

	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/paging"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
)

type meResponse struct {
	SignedIn bool         `json:"signed_in"`
	User     *models.User `json:"user,omitempty"`
}

// ServeMe handles GET /me. Anonymous callers get signed_in=false rather
// than an error so clients can check the session.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		httperr.JSON(w, http.StatusOK, meResponse{})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load own profile")
	defer cancel()

	u, err := h.Users.GetByID(ctx, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "load own profile", err)
		return
	}
	httperr.JSON(w, http.StatusOK, meResponse{SignedIn: true, User: u})
}

type updateInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	LinkedIn  string `json:"linkedin" validate:"omitempty,httpurl"`
}

// HandleUpdate handles PATCH /me. The picture is set through uploads.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "update profile", httperr.ErrUnauthorized)
		return
	}
	var in updateInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode profile", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	err := h.Users.UpdateProfile(ctx, actor.ID, userstore.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		LinkedIn:  in.LinkedIn,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "update profile", err)
		return
	}
	u, err := h.Users.GetByID(ctx, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "reload profile", err)
		return
	}
	httperr.JSON(w, http.StatusOK, meResponse{SignedIn: true, User: u})
}

// ServeLogins handles GET /me/logins.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list logins", httperr.ErrUnauthorized)
		return
	}
	limit := int64(paging.ParseLimit(r, 20))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list logins")
	defer cancel()

	recs, err := h.Logins.Recent(ctx, actor.ID, limit)
	if err != nil {
		h.ErrLog.Respond(w, r, "list logins", err)
		return
	}
	if recs == nil {
		recs = []models.LoginRecord{}
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"logins": recs})
}
