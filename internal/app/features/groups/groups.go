package groups

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /groups. ?all=1 includes suspended groups for the
// super admin.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	includeSuspended := authz.IsSuperAdmin(r) && (query.Get(r, "all") == "1" || query.Get(r, "all") == "true")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	var (
		list []models.GroupProperties
		err  error
	)
	if parent := query.Get(r, "parent"); parent != "" {
		pid, perr := primitive.ObjectIDFromHex(parent)
		if perr != nil {
			h.ErrLog.BadRequest(w, "parent must be a valid id")
			return
		}
		list, err = h.Groups.ListChildren(ctx, pid)
	} else {
		list, err = h.Groups.List(ctx, includeSuspended)
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "list groups", err)
		return
	}
	if !includeSuspended {
		live := list[:0]
		for _, g := range list {
			if g.Status == models.GroupActive {
				live = append(live, g)
			}
		}
		list = live
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"groups": list})
}

// ServeGroup handles GET /groups/{groupID}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := h.group(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "get group", err)
		return
	}
	httperr.JSON(w, http.StatusOK, g)
}

type createInput struct {
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Username    string `json:"username" validate:"required,alphanum,max=60" label:"Username"`
	Description string `json:"description" validate:"max=4000" label:"Description"`
	Website     string `json:"website" validate:"omitempty,httpurl" label:"Website"`
	ParentID    string `json:"parent_id" validate:"omitempty,objectid" label:"Parent group"`
}

// HandleCreate handles POST /groups. Super admin only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok || !actor.IsSuperAdmin() {
		h.ErrLog.Respond(w, r, "create group", httperr.ErrForbidden)
		return
	}
	var in createInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode group", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	g := models.GroupProperties{
		Name:        strings.TrimSpace(in.Name),
		Username:    in.Username,
		Description: strings.TrimSpace(in.Description),
		Website:     in.Website,
	}
	if in.ParentID != "" {
		pid, _ := primitive.ObjectIDFromHex(in.ParentID)
		g.ParentID = &pid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create group")
	defer cancel()

	if g.ParentID != nil {
		if _, err := h.Groups.GetByID(ctx, *g.ParentID); err != nil {
			h.ErrLog.Respond(w, r, "create group parent", err)
			return
		}
	}
	created, err := h.Groups.Create(ctx, g)
	if err != nil {
		h.ErrLog.Respond(w, r, "create group", err)
		return
	}
	h.Log.Info("group created", zap.String("group_id", created.ID.Hex()), zap.String("username", created.Username))
	httperr.JSON(w, http.StatusCreated, created)
}

type propertiesInput struct {
	Name        string `json:"name" validate:"max=200" label:"Name"`
	Description string `json:"description" validate:"max=4000" label:"Description"`
	Website     string `json:"website" validate:"omitempty,httpurl" label:"Website"`
}

// HandleUpdateProperties handles PATCH /groups/{groupID}.
func (h *Handler) HandleUpdateProperties(w http.ResponseWriter, r *http.Request) {
	var in propertiesInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode group", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update group")
	defer cancel()

	before, actor, err := h.administered(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update group", err)
		return
	}
	if err := h.Groups.UpdateInfo(ctx, before.ID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), in.Website); err != nil {
		h.ErrLog.Respond(w, r, "update group", err)
		return
	}
	h.respondUpdated(w, r, actor, before)
}

type settingsInput struct {
	ProjectVisibility models.Visibility `json:"project_visibility" validate:"min=0,max=2" label:"Project visibility"`
	PrimaryColor      string            `json:"primary_color" validate:"omitempty,hexcolor" label:"Primary colour"`
	SecondaryColor    string            `json:"secondary_color" validate:"omitempty,hexcolor" label:"Secondary colour"`
	PitchExpiryDays   int               `json:"pitch_expiry_days" validate:"min=0,max=3650" label:"Pitch expiry"`
	FAQs              []models.FAQ      `json:"faqs" validate:"max=50" label:"FAQs"`
}

// HandleUpdateSettings handles PUT /groups/{groupID}/settings.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode group settings", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update group settings")
	defer cancel()

	before, actor, err := h.administered(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update group settings", err)
		return
	}
	st := models.GroupSettings{
		ProjectVisibility: in.ProjectVisibility,
		PrimaryColor:      in.PrimaryColor,
		SecondaryColor:    in.SecondaryColor,
		PitchExpiryDays:   in.PitchExpiryDays,
		FAQs:              in.FAQs,
	}
	if err := h.Groups.UpdateSettings(ctx, before.ID, st); err != nil {
		h.ErrLog.Respond(w, r, "update group settings", err)
		return
	}
	h.respondUpdated(w, r, actor, before)
}

func (h *Handler) respondUpdated(w http.ResponseWriter, r *http.Request, actor models.Actor, before models.GroupProperties) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reload group")
	defer cancel()

	after, err := h.Groups.GetByID(ctx, before.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "reload group", err)
		return
	}
	h.Audit.GroupUpdated(ctx, actor.ID, before, after)
	httperr.JSON(w, http.StatusOK, after)
}

type statusInput struct {
	Status models.GroupStatus `json:"status"`
}

// HandleSetStatus handles PUT /groups/{groupID}/status. Suspending or
// reactivating a tenant is reserved to the super admin.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode group status", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set group status")
	defer cancel()

	before, actor, err := h.administered(ctx, r)
	if err == nil && !actor.IsSuperAdmin() {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "set group status", err)
		return
	}
	if err := h.Groups.SetStatus(ctx, before.ID, in.Status); err != nil {
		h.ErrLog.Respond(w, r, "set group status", err)
		return
	}
	after := before
	after.Status = in.Status
	h.Audit.GroupStatusChanged(ctx, actor.ID, before, after)
	httperr.JSON(w, http.StatusOK, after)
}

// HandleDelete handles DELETE /groups/{groupID}. Only empty groups can be
// removed; populated tenants are suspended instead.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete group")
	defer cancel()

	g, actor, err := h.administered(ctx, r)
	if err == nil && !actor.IsSuperAdmin() {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "delete group", err)
		return
	}
	members, err := h.Users.ListByGroup(ctx, g.ID, "")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete group members", err)
		return
	}
	if len(members) > 0 {
		httperr.Error(w, http.StatusConflict, "group still has members; suspend it instead")
		return
	}
	if _, err := h.Groups.Delete(ctx, g.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete group", err)
		return
	}
	h.Log.Info("group deleted", zap.String("group_id", g.ID.Hex()), zap.String("by", actor.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
