package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Forum, ForumThread and ThreadReply form a three-level discussion hierarchy
// inside a group. Every level is soft deleted through its Deleted flag.

type Forum struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Deleted     bool               `bson:"deleted" json:"deleted"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`

	Author *UserProfile `bson:"-" json:"author,omitempty"`
}

type ForumThread struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ForumID   primitive.ObjectID `bson:"forum_id" json:"forum_id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Name      string             `bson:"name" json:"name"`
	Message   string             `bson:"message" json:"message"`
	Deleted   bool               `bson:"deleted" json:"deleted"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Author *UserProfile `bson:"-" json:"author,omitempty"`
}

type ThreadReply struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ThreadID  primitive.ObjectID `bson:"thread_id" json:"thread_id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Message   string             `bson:"message" json:"message"`
	Deleted   bool               `bson:"deleted" json:"deleted"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Author *UserProfile `bson:"-" json:"author,omitempty"`
}
