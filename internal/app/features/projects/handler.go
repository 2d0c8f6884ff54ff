// internal/app/features/projects/handler.go
package projects

import (
	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/lifecycle"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the project API: listing, detail, authoring and the
// lifecycle decisions that move a project between phases.
type Handler struct {
	DB        *mongo.Database
	Projects  *projectstore.Store
	Groups    *groupstore.Store
	Lifecycle *lifecycle.Service
	Audit     *auditlog.Logger
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs a projects Handler.
func NewHandler(db *mongo.Database, svc *lifecycle.Service, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Projects:  projectstore.New(db),
		Groups:    groupstore.New(db),
		Lifecycle: svc,
		Audit:     audit,
		ErrLog:    errLog,
		Log:       logger,
	}
}
