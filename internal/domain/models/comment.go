package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a top-level discussion entry on a project.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Author *UserProfile `bson:"-" json:"author,omitempty"`
}

// CommentReply answers a Comment. Replies are soft deleted.
type CommentReply struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	CommentID primitive.ObjectID `bson:"comment_id" json:"comment_id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Body      string             `bson:"body" json:"body"`
	Deleted   bool               `bson:"deleted" json:"deleted"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Author *UserProfile `bson:"-" json:"author,omitempty"`
}
