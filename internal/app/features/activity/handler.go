// internal/app/features/activity/handler.go
package activity

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the activity log: what a user did, and what happened to a
// user, group or project.
type Handler struct {
	DB         *mongo.Database
	Activities *activitystore.Store
	Users      *userstore.Store
	Projects   *projectstore.Store
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Activities: activitystore.New(db),
		Users:      userstore.New(db),
		Projects:   projectstore.New(db),
		ErrLog:     errLog,
		Log:        logger,
	}
}

// canSeeUser allows the user themself, an admin of their home group, or the
// super admin.
func (h *Handler) canSeeUser(ctx context.Context, actor models.Actor, userID primitive.ObjectID) error {
	if actor.ID == userID || actor.IsSuperAdmin() {
		return nil
	}
	if !actor.IsAdmin() {
		return httperr.ErrForbidden
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.HomeGroupID == nil || !actor.CanAdminister(*u.HomeGroupID) {
		return httperr.ErrForbidden
	}
	return nil
}

// canSeeSubject applies canSeeUser to users; groups need an admin and
// projects need their issuer or an admin of the owning group.
func (h *Handler) canSeeSubject(ctx context.Context, r *http.Request, actor models.Actor, s models.Subject) error {
	switch s.Kind {
	case models.SubjectUser:
		return h.canSeeUser(ctx, actor, s.ID)
	case models.SubjectGroup:
		if !actor.CanAdminister(s.ID) {
			return httperr.ErrForbidden
		}
		return nil
	case models.SubjectProject:
		p, err := h.Projects.GetByID(ctx, s.ID)
		if err != nil {
			return err
		}
		if p.IssuerID == actor.ID || authz.CanAdministerGroup(r, p.GroupID) {
			return nil
		}
		return httperr.ErrForbidden
	}
	return httperr.ErrBadRequest
}
