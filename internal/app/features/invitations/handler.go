// internal/app/features/invitations/handler.go
package invitations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/lifecycle"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	invitestore "github.com/dalemusser/investwest/internal/app/store/invitations"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Notification kinds raised by membership changes.
const (
	KindInvitationAccepted = "invitation_accepted"
	KindMemberRemoved      = "member_removed"
)

// Handler serves group invitations: invite, accept, decline, leave and
// kick out. Accepting moves the user's home group; leaving or being
// removed clears it.
type Handler struct {
	DB      *mongo.Database
	Invites *invitestore.Store
	Groups  *groupstore.Store
	Users   *userstore.Store
	Audit   *auditlog.Logger
	Notify  lifecycle.Dispatcher
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger

	SiteName string
	BaseURL  string
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, dispatcher lifecycle.Dispatcher, baseURL string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Invites:  invitestore.New(db),
		Groups:   groupstore.New(db),
		Users:    userstore.New(db),
		Audit:    audit,
		Notify:   dispatcher,
		ErrLog:   errLog,
		Log:      logger,
		SiteName: "Invest West",
		BaseURL:  baseURL,
	}
}

func (h *Handler) invitation(ctx context.Context, r *http.Request) (models.InvitedUser, error) {
	id, err := httperr.PathID(r, "inviteID")
	if err != nil {
		return models.InvitedUser{}, err
	}
	return h.Invites.GetByID(ctx, id)
}

func (h *Handler) acceptURL(inv models.InvitedUser, token string) string {
	return fmt.Sprintf("%s/invitations/%s/accept?token=%s", h.BaseURL, inv.ID.Hex(), url.QueryEscape(token))
}

// sendInvitation queues the email carrying the token link. The key covers
// the refresh time so re-invites send a new email.
func (h *Handler) sendInvitation(ctx context.Context, g models.GroupProperties, inv models.InvitedUser, token string) {
	email := mailer.BuildInvitationEmail(mailer.InvitationEmailData{
		SiteName:  h.SiteName,
		GroupName: g.Name,
		FirstName: inv.FirstName,
		Role:      inv.Type,
		AcceptURL: h.acceptURL(inv, token),
	})
	email.To = inv.Email
	job := notify.Job{
		Key:   fmt.Sprintf("invite:%s:%d", inv.ID.Hex(), inv.InvitedAt.UnixNano()),
		Email: &email,
	}
	if err := h.Notify.Enqueue(ctx, job); err != nil {
		h.Log.Warn("invitation email not queued",
			zap.String("invite_id", inv.ID.Hex()),
			zap.Error(err))
	}
}

// notifyUser queues an inbox entry for userID.
func (h *Handler) notifyUser(ctx context.Context, key string, userID primitive.ObjectID, kind, msg string) {
	job := notify.Job{
		Key: key,
		Notification: &models.Notification{
			ID:          primitive.NewObjectID(),
			RecipientID: userID,
			Kind:        kind,
			Message:     msg,
		},
	}
	if err := h.Notify.Enqueue(ctx, job); err != nil {
		h.Log.Warn("membership notification not queued",
			zap.String("user_id", userID.Hex()),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
