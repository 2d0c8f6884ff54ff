// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature:
// group properties, settings, status and the member roster.
type Handler struct {
	DB     *mongo.Database
	Groups *groupstore.Store
	Users  *userstore.Store
	Audit  *auditlog.Logger
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler. It is called from the bootstrap
// BuildHandler function.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Groups: groupstore.New(db),
		Users:  userstore.New(db),
		Audit:  audit,
		ErrLog: errLog,
		Log:    logger,
	}
}

// group loads the {groupID} group. Suspended groups are hidden from
// everyone but the platform super admin.
func (h *Handler) group(ctx context.Context, r *http.Request) (models.GroupProperties, error) {
	id, err := httperr.PathID(r, "groupID")
	if err != nil {
		return models.GroupProperties{}, err
	}
	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		return models.GroupProperties{}, err
	}
	if g.Status == models.GroupSuspended && !authz.IsSuperAdmin(r) {
		return models.GroupProperties{}, httperr.ErrNotFound
	}
	return g, nil
}

// administered loads the {groupID} group and checks the caller can manage it.
func (h *Handler) administered(ctx context.Context, r *http.Request) (models.GroupProperties, models.Actor, error) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		return models.GroupProperties{}, actor, httperr.ErrUnauthorized
	}
	g, err := h.group(ctx, r)
	if err != nil {
		return g, actor, err
	}
	if !actor.CanAdminister(g.ID) {
		return g, actor, httperr.ErrForbidden
	}
	return g, actor, nil
}
