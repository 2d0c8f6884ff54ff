// internal/app/features/pledges/handler.go
package pledges

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	votestore "github.com/dalemusser/investwest/internal/app/store/votes"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves investor commitments on a project: pledges during the
// primary offer and votes during the pitch.
type Handler struct {
	DB       *mongo.Database
	Projects *projectstore.Store
	Pledges  *pledgestore.Store
	Votes    *votestore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Projects: projectstore.New(db),
		Pledges:  pledgestore.New(db),
		Votes:    votestore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// project loads the {projectID} project and hides it from callers who may
// not see it.
func (h *Handler) project(ctx context.Context, r *http.Request) (models.Project, error) {
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		return models.Project{}, err
	}
	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if !authz.CanSeeProject(r, p) {
		return models.Project{}, httperr.ErrNotFound
	}
	return p, nil
}

// canSeeAll reports whether actor may see every investor's commitment.
func canSeeAll(actor models.Actor, p models.Project) bool {
	return actor.ID == p.IssuerID || actor.CanAdminister(p.GroupID)
}
