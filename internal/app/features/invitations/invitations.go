package invitations

import (
	"fmt"
	"net/http"
	"strings"

	invitestore "github.com/dalemusser/investwest/internal/app/store/invitations"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /invitations?group=<id>[&status=n]. Group admins only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	groupID := authz.UserGroupID(r)
	if raw := query.Get(r, "group"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.ErrLog.BadRequest(w, "group must be a valid id")
			return
		}
		groupID = id
	}
	if groupID.IsZero() || !authz.CanAdministerGroup(r, groupID) {
		h.ErrLog.Respond(w, r, "list invitations", httperr.ErrForbidden)
		return
	}
	var statuses []models.InviteStatus
	switch query.Get(r, "status") {
	case "":
	case "0":
		statuses = append(statuses, models.InviteNotRegistered)
	case "1":
		statuses = append(statuses, models.InviteDeclinedToRegister)
	case "2":
		statuses = append(statuses, models.InviteActive)
	case "3":
		statuses = append(statuses, models.InviteLeft)
	case "4":
		statuses = append(statuses, models.InviteKickedOut)
	default:
		h.ErrLog.BadRequest(w, "status must be between 0 and 4")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list invitations")
	defer cancel()

	list, err := h.Invites.ListByGroup(ctx, groupID, statuses...)
	if err != nil {
		h.ErrLog.Respond(w, r, "list invitations", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"invitations": list})
}

type inviteInput struct {
	GroupID   string `json:"group_id" validate:"required,objectid" label:"Group"`
	Email     string `json:"email" validate:"required,email,max=254" label:"Email"`
	FirstName string `json:"first_name" validate:"max=100" label:"First name"`
	LastName  string `json:"last_name" validate:"max=100" label:"Last name"`
	Type      string `json:"type" validate:"required,invitetype" label:"Type"`
}

// HandleInvite handles POST /invitations. The invitation email goes out
// through the notification dispatcher; the token itself is never returned.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "invite", httperr.ErrUnauthorized)
		return
	}
	var in inviteInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode invitation", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}
	groupID, _ := primitive.ObjectIDFromHex(in.GroupID)
	if !actor.CanAdminister(groupID) {
		h.ErrLog.Respond(w, r, "invite", httperr.ErrForbidden)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "invite")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, groupID)
	if err == nil && g.Status == models.GroupSuspended {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "invite", err)
		return
	}
	inv, token, err := h.Invites.Invite(ctx, invitestore.InviteInput{
		GroupID:   groupID,
		InvitedBy: actor.ID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Type:      in.Type,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "invite", err)
		return
	}
	h.sendInvitation(ctx, g, inv, token)
	h.Audit.UserInvited(ctx, actor.ID, inv)
	httperr.JSON(w, http.StatusCreated, inv)
}

type tokenInput struct {
	Token string `json:"token" validate:"required" label:"Token"`
}

func (h *Handler) decodeToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in tokenInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode token", err)
		return "", false
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return "", false
	}
	return in.Token, true
}

// HandleAccept handles POST /invitations/{inviteID}/accept. The signed-in
// user must own the invited email address and belong to no other group.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "accept invitation", httperr.ErrUnauthorized)
		return
	}
	token, ok := h.decodeToken(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "accept invitation")
	defer cancel()

	inv, err := h.invitation(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "accept invitation", err)
		return
	}
	u, err := h.Users.GetByID(ctx, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "accept invitation", err)
		return
	}
	if !strings.EqualFold(u.Email, inv.Email) {
		h.ErrLog.Respond(w, r, "accept invitation", httperr.ErrForbidden)
		return
	}
	if u.HomeGroupID != nil && *u.HomeGroupID != inv.GroupID {
		httperr.Error(w, http.StatusConflict, "leave your current group before joining another")
		return
	}

	inv, err = h.Invites.Accept(ctx, inv.ID, token, u.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "accept invitation", err)
		return
	}
	if err := h.Users.SetHomeGroup(ctx, u.ID, &inv.GroupID); err != nil {
		h.ErrLog.Respond(w, r, "accept invitation home group", err)
		return
	}
	h.Log.Info("invitation accepted",
		zap.String("invite_id", inv.ID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("group_id", inv.GroupID.Hex()))
	h.notifyUser(ctx, fmt.Sprintf("invite-accepted:%s:%s", inv.ID.Hex(), u.ID.Hex()),
		inv.InvitedByID, KindInvitationAccepted, u.FullName()+" accepted your invitation.")
	httperr.JSON(w, http.StatusOK, inv)
}

// HandleDecline handles POST /invitations/{inviteID}/decline. The token is
// the only credential; invitees may not have an account yet.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeToken(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "decline invitation")
	defer cancel()

	id, err := httperr.PathID(r, "inviteID")
	if err != nil {
		h.ErrLog.Respond(w, r, "decline invitation", err)
		return
	}
	inv, err := h.Invites.Decline(ctx, id, token)
	if err != nil {
		h.ErrLog.Respond(w, r, "decline invitation", err)
		return
	}
	httperr.JSON(w, http.StatusOK, inv)
}

// HandleLeave handles POST /invitations/{inviteID}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "leave group", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "leave group")
	defer cancel()

	id, err := httperr.PathID(r, "inviteID")
	if err != nil {
		h.ErrLog.Respond(w, r, "leave group", err)
		return
	}
	inv, err := h.Invites.Leave(ctx, id, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "leave group", err)
		return
	}
	if err := h.Users.SetHomeGroup(ctx, actor.ID, nil); err != nil {
		h.ErrLog.Respond(w, r, "leave group home group", err)
		return
	}
	httperr.JSON(w, http.StatusOK, inv)
}

// HandleKickOut handles POST /invitations/{inviteID}/kick-out. Group admins only.
func (h *Handler) HandleKickOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "kick out", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "kick out")
	defer cancel()

	before, err := h.invitation(ctx, r)
	if err == nil && !actor.CanAdminister(before.GroupID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "kick out", err)
		return
	}
	after, err := h.Invites.KickOut(ctx, before.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "kick out", err)
		return
	}
	if after.OfficialUserID != nil {
		if err := h.Users.SetHomeGroup(ctx, *after.OfficialUserID, nil); err != nil {
			h.ErrLog.Respond(w, r, "kick out home group", err)
			return
		}
		h.notifyUser(ctx, "kicked-out:"+after.ID.Hex(), *after.OfficialUserID,
			KindMemberRemoved, "You have been removed from the group.")
	}
	h.Audit.MemberRemoved(ctx, actor.ID, before, after)
	httperr.JSON(w, http.StatusOK, after)
}
