// internal/app/features/live/handler.go
package live

import (
	"context"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	commentstore "github.com/dalemusser/investwest/internal/app/store/comments"
	forumstore "github.com/dalemusser/investwest/internal/app/store/forums"
	notificationstore "github.com/dalemusser/investwest/internal/app/store/notifications"
	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/livesync"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Feeds opens the change feeds behind each stream. match restricts the feed
// to documents with the given field values.
type Feeds struct {
	Projects      func(match bson.M) livesync.Feed[models.Project]
	Pledges       func(match bson.M) livesync.Feed[models.Pledge]
	Comments      func(match bson.M) livesync.Feed[models.Comment]
	Threads       func(match bson.M) livesync.Feed[models.ForumThread]
	Notifications func(match bson.M) livesync.Feed[models.Notification]
}

// MongoFeeds watches the collections of db.
func MongoFeeds(db *mongo.Database, logger *zap.Logger) Feeds {
	return Feeds{
		Projects: func(m bson.M) livesync.Feed[models.Project] {
			return livesync.MongoFeed[models.Project]{Coll: projectstore.New(db).Collection(), Match: m, Log: logger}
		},
		Pledges: func(m bson.M) livesync.Feed[models.Pledge] {
			return livesync.MongoFeed[models.Pledge]{Coll: pledgestore.New(db).Collection(), Match: m, Log: logger}
		},
		Comments: func(m bson.M) livesync.Feed[models.Comment] {
			return livesync.MongoFeed[models.Comment]{Coll: commentstore.New(db).Collection(), Match: m, Log: logger}
		},
		Threads: func(m bson.M) livesync.Feed[models.ForumThread] {
			return livesync.MongoFeed[models.ForumThread]{Coll: forumstore.New(db).ThreadsCollection(), Match: m, Log: logger}
		},
		Notifications: func(m bson.M) livesync.Feed[models.Notification] {
			return livesync.MongoFeed[models.Notification]{Coll: notificationstore.New(db).Collection(), Match: m, Log: logger}
		},
	}
}

// Handler exposes live lists as Server-Sent Events. Every connection owns
// one bridge, started on connect and stopped when the client goes away.
type Handler struct {
	DB       *mongo.Database
	Feeds    Feeds
	Projects *projectstore.Store
	Forums   *forumstore.Store
	Inbox    *notificationstore.Store
	Users    *userstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, feeds Feeds, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Feeds:    feeds,
		Projects: projectstore.New(db),
		Forums:   forumstore.New(db),
		Inbox:    notificationstore.New(db),
		Users:    userstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// profile resolves one user reference for a newly arrived item.
func (h *Handler) profile(ctx context.Context, id primitive.ObjectID) (*models.UserProfile, error) {
	m, err := h.Users.Profiles(ctx, []primitive.ObjectID{id})
	if err != nil {
		return nil, err
	}
	return m[id], nil
}
