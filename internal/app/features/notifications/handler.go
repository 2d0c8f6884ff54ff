// internal/app/features/notifications/handler.go
package notifications

import (
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	notificationstore "github.com/dalemusser/investwest/internal/app/store/notifications"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/paging"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's notification inbox.
type Handler struct {
	DB     *mongo.Database
	Inbox  *notificationstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Inbox:  notificationstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}

// ServeList handles GET /notifications[?unread=1][&limit=].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list notifications", httperr.ErrUnauthorized)
		return
	}
	unread := query.Get(r, "unread")
	unreadOnly := unread == "1" || unread == "true"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	list, err := h.Inbox.ListByRecipient(ctx, actor.ID, unreadOnly, int64(paging.ParseLimit(r, paging.PageSize)))
	if err != nil {
		h.ErrLog.Respond(w, r, "list notifications", err)
		return
	}
	n, err := h.Inbox.CountUnread(ctx, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "count unread notifications", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"notifications": list, "unread": n})
}

// HandleMarkRead handles POST /notifications/{notificationID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "mark notification read", httperr.ErrUnauthorized)
		return
	}
	id, err := httperr.PathID(r, "notificationID")
	if err != nil {
		h.ErrLog.Respond(w, r, "mark notification read", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	if err := h.Inbox.MarkRead(ctx, id, actor.ID); err != nil {
		h.ErrLog.Respond(w, r, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkAllRead handles POST /notifications/read-all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "mark all notifications read", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark all notifications read")
	defer cancel()

	n, err := h.Inbox.MarkAllRead(ctx, actor.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "mark all notifications read", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"marked": n})
}

// HandleDelete handles DELETE /notifications/{notificationID}. Users can
// only delete their own entries; anything else looks missing.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "delete notification", httperr.ErrUnauthorized)
		return
	}
	id, err := httperr.PathID(r, "notificationID")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete notification", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete notification")
	defer cancel()

	if err := h.Inbox.Delete(ctx, id, actor.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
