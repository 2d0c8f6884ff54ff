package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an append-only inbox entry for one recipient.
type Notification struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	RecipientID    primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	Kind           string              `bson:"kind" json:"kind"`
	Message        string              `bson:"message" json:"message"`
	Action         string              `bson:"action,omitempty" json:"action,omitempty"`
	ProjectID      *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Read           bool                `bson:"read" json:"read"`
	IdempotencyKey string              `bson:"idempotency_key,omitempty" json:"-"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

// SubjectKind discriminates what an activity entry is about.
type SubjectKind string

const (
	SubjectUser    SubjectKind = "user"
	SubjectGroup   SubjectKind = "group"
	SubjectProject SubjectKind = "project"
)

// Subject is a tagged reference to a user, group or project.
type Subject struct {
	Kind SubjectKind        `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// Activity is an audit record of a change made by a user. Before and After
// hold document snapshots of the subject around the change.
type Activity struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Action         string             `bson:"action" json:"action"`
	Subject        Subject            `bson:"subject" json:"subject"`
	Before         bson.M             `bson:"before,omitempty" json:"before,omitempty"`
	After          bson.M             `bson:"after,omitempty" json:"after,omitempty"`
	IdempotencyKey string             `bson:"idempotency_key,omitempty" json:"-"`
	Time           time.Time          `bson:"time" json:"time"`
}

// Snapshot converts v into a document suitable for Activity.Before/After.
func Snapshot(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
