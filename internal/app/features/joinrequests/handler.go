// internal/app/features/joinrequests/handler.go
package joinrequests

import (
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/lifecycle"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	joinrequeststore "github.com/dalemusser/investwest/internal/app/store/joinrequests"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const KindJoinDecided = "join_request_decided"

// Handler serves requests by users to join a group and the admin decisions on them.
type Handler struct {
	DB       *mongo.Database
	Requests *joinrequeststore.Store
	Groups   *groupstore.Store
	Users    *userstore.Store
	Audit    *auditlog.Logger
	Notify   lifecycle.Dispatcher
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, dispatcher lifecycle.Dispatcher, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Requests: joinrequeststore.New(db),
		Groups:   groupstore.New(db),
		Users:    userstore.New(db),
		Audit:    audit,
		Notify:   dispatcher,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// ServeList handles GET /join-requests. Admins pass ?group= to see that
// group's pending requests; everyone else sees their own requests.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list join requests", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list join requests")
	defer cancel()

	var (
		list []models.JoinRequest
		err  error
	)
	if raw := query.Get(r, "group"); raw != "" {
		groupID, perr := primitive.ObjectIDFromHex(raw)
		if perr != nil {
			h.ErrLog.BadRequest(w, "group must be a valid id")
			return
		}
		if !actor.CanAdminister(groupID) {
			h.ErrLog.Respond(w, r, "list join requests", httperr.ErrForbidden)
			return
		}
		list, err = h.Requests.ListPending(ctx, groupID)
	} else {
		list, err = h.Requests.ListByUser(ctx, actor.ID)
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "list join requests", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"requests": list})
}

type createInput struct {
	GroupID string `json:"group_id" validate:"required,objectid" label:"Group"`
}

// HandleCreate handles POST /join-requests. Users already in a group must
// leave it first.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "request to join", httperr.ErrUnauthorized)
		return
	}
	var in createInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode join request", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}
	groupID, _ := primitive.ObjectIDFromHex(in.GroupID)
	if actor.IsAdmin() {
		h.ErrLog.Respond(w, r, "request to join", httperr.ErrForbidden)
		return
	}
	if !actor.GroupID.IsZero() {
		httperr.Error(w, http.StatusConflict, "leave your current group before joining another")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "request to join")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, groupID)
	if err == nil && g.Status == models.GroupSuspended {
		err = httperr.ErrNotFound
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "request to join", err)
		return
	}
	jr, err := h.Requests.Create(ctx, g.ID, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "request to join", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, jr)
}

// HandleAccept handles POST /join-requests/{requestID}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// HandleReject handles POST /join-requests/{requestID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, accept bool) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "decide join request", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "decide join request")
	defer cancel()

	id, err := httperr.PathID(r, "requestID")
	if err != nil {
		h.ErrLog.Respond(w, r, "decide join request", err)
		return
	}
	jr, err := h.Requests.GetByID(ctx, id)
	if err == nil && !actor.CanAdminister(jr.GroupID) {
		err = httperr.ErrForbidden
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "decide join request", err)
		return
	}
	jr, err = h.Requests.Decide(ctx, jr.ID, accept, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "decide join request", err)
		return
	}

	msg := "Your request to join the group was declined."
	if accept {
		if err := h.Users.SetHomeGroup(ctx, jr.UserID, &jr.GroupID); err != nil {
			h.ErrLog.Respond(w, r, "join request home group", err)
			return
		}
		msg = "Your request to join the group was accepted."
	}
	h.Audit.JoinDecided(ctx, actor.ID, jr)

	job := notify.Job{
		Key: fmt.Sprintf("join-decided:%s", jr.ID.Hex()),
		Notification: &models.Notification{
			ID:          primitive.NewObjectID(),
			RecipientID: jr.UserID,
			Kind:        KindJoinDecided,
			Message:     msg,
		},
	}
	if err := h.Notify.Enqueue(ctx, job); err != nil {
		h.Log.Warn("join decision notification not queued",
			zap.String("request_id", jr.ID.Hex()),
			zap.Error(err))
	}
	httperr.JSON(w, http.StatusOK, jr)
}
