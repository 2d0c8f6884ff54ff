// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	loginstore "github.com/dalemusser/investwest/internal/app/store/logins"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own account.
type Handler struct {
	Users  *userstore.Store
	Logins *loginstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  userstore.New(db),
		Logins: loginstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}
