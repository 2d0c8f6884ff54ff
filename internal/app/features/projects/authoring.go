package projects

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/htmlsanitize"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createInput struct {
	Name        string             `json:"name" validate:"required,max=200" label:"Name"`
	Description string             `json:"description" validate:"max=5000" label:"Description"`
	Sector      string             `json:"sector" validate:"max=100" label:"Sector"`
	GroupID     string             `json:"group_id" validate:"omitempty,objectid" label:"Group"`
	Visibility  *models.Visibility `json:"visibility" validate:"omitempty,visibility" label:"Visibility"`
}

// HandleCreate handles POST /projects. Issuers create drafts in their home
// group; admins may create on behalf of a group they administer.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "create project", httperr.ErrUnauthorized)
		return
	}
	var in createInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode project", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	groupID := actor.GroupID
	if in.GroupID != "" {
		groupID, _ = primitive.ObjectIDFromHex(in.GroupID)
	}
	switch {
	case groupID.IsZero():
		h.ErrLog.BadRequest(w, "group_id is required")
		return
	case actor.Role == models.RoleIssuer && groupID != actor.GroupID:
		h.ErrLog.Respond(w, r, "create project", httperr.ErrForbidden)
		return
	case actor.IsAdmin() && !actor.CanAdminister(groupID):
		h.ErrLog.Respond(w, r, "create project", httperr.ErrForbidden)
		return
	case actor.Role == models.RoleInvestor:
		h.ErrLog.Respond(w, r, "create project", httperr.ErrForbidden)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create project")
	defer cancel()

	group, err := h.Groups.GetByID(ctx, groupID)
	if err != nil {
		h.ErrLog.Respond(w, r, "load group", err)
		return
	}
	if group.Status == models.GroupSuspended {
		h.ErrLog.Respond(w, r, "create project", httperr.ErrForbidden)
		return
	}

	vis := group.Settings.ProjectVisibility
	if in.Visibility != nil && in.Visibility.Valid() {
		vis = *in.Visibility
	}
	p, err := h.Projects.Create(ctx, models.Project{
		GroupID:     groupID,
		IssuerID:    actor.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Sector:      strings.TrimSpace(in.Sector),
		Visibility:  vis,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "create project", err)
		return
	}
	h.Audit.ProjectCreated(ctx, actor.ID, p)
	h.Log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("group_id", groupID.Hex()))
	httperr.JSON(w, http.StatusCreated, p)
}

type editInput struct {
	Name             *string `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description      *string `json:"description" validate:"omitempty,max=5000" label:"Description"`
	Sector           *string `json:"sector" validate:"omitempty,max=100" label:"Sector"`
	PresentationHTML *string `json:"presentation_html" label:"Presentation"`
	CoverPath        *string `json:"cover_path" validate:"omitempty,max=300" label:"Cover"`
	PresentationPath *string `json:"presentation_path" validate:"omitempty,max=300" label:"Presentation file"`
	AmountRaised     *string `json:"amount_raised" validate:"omitempty,amount" label:"Amount raised"`
}

// HandleEdit handles PATCH /projects/{projectID}. The issuer may edit until
// the pitch goes live; group admins may edit at any time. Pitch fields are
// ignored until a pitch exists.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "edit project", httperr.ErrUnauthorized)
		return
	}
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project id", err)
		return
	}
	var in editInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode project", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "edit project")
	defer cancel()

	before, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	ownerEditable := before.Status == models.StatusDraft || before.Status == models.StatusBeingChecked
	if !actor.CanAdminister(before.GroupID) && !(actor.ID == before.IssuerID && ownerEditable) {
		h.ErrLog.Respond(w, r, "edit project", httperr.ErrForbidden)
		return
	}

	next := before.Clone()
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.Sector != nil {
		next.Sector = strings.TrimSpace(*in.Sector)
	}
	if next.Pitch != nil {
		if in.PresentationHTML != nil {
			next.Pitch.PresentationHTML = htmlsanitize.PrepareForStorage(*in.PresentationHTML)
		}
		if in.CoverPath != nil {
			next.Pitch.CoverPath = *in.CoverPath
		}
		if in.PresentationPath != nil {
			next.Pitch.PresentationPath = *in.PresentationPath
		}
		if in.AmountRaised != nil {
			next.Pitch.AmountRaised = *in.AmountRaised
		}
	}
	if strings.TrimSpace(next.Name) == "" {
		h.ErrLog.BadRequest(w, "Name is required.")
		return
	}

	saved, err := h.Projects.Replace(ctx, next)
	if err != nil {
		h.ErrLog.Respond(w, r, "save project", err)
		return
	}
	h.Audit.ProjectEdited(ctx, actor.ID, before, saved)
	httperr.JSON(w, http.StatusOK, saved)
}

// HandleDelete handles DELETE /projects/{projectID}. Only drafts can be
// deleted, by their issuer or a group admin.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "delete project", httperr.ErrUnauthorized)
		return
	}
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project id", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete project")
	defer cancel()

	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if actor.ID != p.IssuerID && !actor.CanAdminister(p.GroupID) {
		h.ErrLog.Respond(w, r, "delete project", httperr.ErrForbidden)
		return
	}
	n, err := h.Projects.Delete(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "delete project", err)
		return
	}
	if n == 0 {
		httperr.Error(w, http.StatusConflict, "only draft projects can be deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
