package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteStatus is the registration status of an invitation.
type InviteStatus int

const (
	InviteNotRegistered      InviteStatus = 0
	InviteDeclinedToRegister InviteStatus = 1
	InviteActive             InviteStatus = 2
	InviteLeft               InviteStatus = 3
	InviteKickedOut          InviteStatus = 4
)

// InvitedUser bridges an email address invited by a group to a current or
// future platform account.
type InvitedUser struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID        primitive.ObjectID  `bson:"group_id" json:"group_id"`
	Email          string              `bson:"email" json:"email"`
	EmailCI        string              `bson:"email_ci" json:"-"`
	FirstName      string              `bson:"first_name" json:"first_name"`
	LastName       string              `bson:"last_name" json:"last_name"`
	Type           string              `bson:"type" json:"type"` // issuer | investor
	Status         InviteStatus        `bson:"status" json:"status"`
	OfficialUserID *primitive.ObjectID `bson:"official_user_id,omitempty" json:"official_user_id,omitempty"`
	InvitedByID    primitive.ObjectID  `bson:"invited_by_id" json:"invited_by_id"`
	TokenHash      string              `bson:"token_hash" json:"-"`

	InvitedAt time.Time  `bson:"invited_at" json:"invited_at"`
	JoinedAt  *time.Time `bson:"joined_at,omitempty" json:"joined_at,omitempty"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// JoinRequestStatus tracks a user's request to join a group.
type JoinRequestStatus int

const (
	JoinPending  JoinRequestStatus = 0
	JoinAccepted JoinRequestStatus = 1
	JoinRejected JoinRequestStatus = 2
)

// JoinRequest is a user-initiated request to become a member of a group.
type JoinRequest struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Status      JoinRequestStatus   `bson:"status" json:"status"`
	RequestedAt time.Time           `bson:"requested_at" json:"requested_at"`
	DecidedAt   *time.Time          `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	DecidedByID *primitive.ObjectID `bson:"decided_by_id,omitempty" json:"decided_by_id,omitempty"`
}
