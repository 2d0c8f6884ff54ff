// internal/app/features/forums/handler.go
package forums

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	forumstore "github.com/dalemusser/investwest/internal/app/store/forums"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the group forums: forums, their threads and replies.
// Every level is soft deleted; ?mode=deleted lists the deleted side and is
// limited to group admins.
type Handler struct {
	DB     *mongo.Database
	Forums *forumstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Forums: forumstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}

// access describes what the caller may do inside one group's forums.
type access struct {
	actor  models.Actor
	member bool
	admin  bool
}

func accessFor(r *http.Request, groupID primitive.ObjectID) (access, error) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		return access{}, httperr.ErrUnauthorized
	}
	a := access{
		actor: actor,
		admin: actor.CanAdminister(groupID),
	}
	a.member = a.admin || actor.GroupID == groupID
	if !a.member {
		return a, httperr.ErrForbidden
	}
	return a, nil
}

// canChange reports whether the caller authored the record or administers the group.
func (a access) canChange(authorID primitive.ObjectID) bool {
	return a.admin || a.actor.ID == authorID
}

// mode reads ?mode and enforces that only admins see deleted records.
func mode(r *http.Request, a access) (models.LoadMode, error) {
	m := models.ParseLoadMode(query.Get(r, "mode"))
	if m == models.LoadDeleted && !a.admin {
		return m, httperr.ErrForbidden
	}
	return m, nil
}

func (h *Handler) forum(ctx context.Context, r *http.Request) (models.Forum, access, error) {
	id, err := httperr.PathID(r, "forumID")
	if err != nil {
		return models.Forum{}, access{}, err
	}
	f, err := h.Forums.GetForum(ctx, id)
	if err != nil {
		return models.Forum{}, access{}, err
	}
	a, err := accessFor(r, f.GroupID)
	return f, a, err
}

func (h *Handler) thread(ctx context.Context, r *http.Request) (models.ForumThread, access, error) {
	id, err := httperr.PathID(r, "threadID")
	if err != nil {
		return models.ForumThread{}, access{}, err
	}
	t, err := h.Forums.GetThread(ctx, id)
	if err != nil {
		return models.ForumThread{}, access{}, err
	}
	f, err := h.Forums.GetForum(ctx, t.ForumID)
	if err != nil {
		return models.ForumThread{}, access{}, err
	}
	a, err := accessFor(r, f.GroupID)
	return t, a, err
}
