package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleIssuer     = "issuer"
	RoleInvestor   = "investor"
)

// User is a platform account. Group administrators are users with role
// "admin" whose HomeGroupID is the group they manage; superadmins manage
// the whole platform.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FirstName      string              `bson:"first_name" json:"first_name"`
	LastName       string              `bson:"last_name" json:"last_name"`
	FullNameCI     string              `bson:"full_name_ci" json:"-"`
	Email          string              `bson:"email" json:"email"`
	EmailCI        string              `bson:"email_ci" json:"-"`
	Role           string              `bson:"role" json:"role"`
	HomeGroupID    *primitive.ObjectID `bson:"home_group_id,omitempty" json:"home_group_id,omitempty"`
	ProfilePicture string              `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	LinkedIn       string              `bson:"linkedin,omitempty" json:"linkedin,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user administers a group or the platform.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Profile returns the public projection embedded into joined records.
func (u User) Profile() *UserProfile {
	return &UserProfile{
		ID:             u.ID,
		Name:           u.FullName(),
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
	}
}

// UserProfile is the resolved form of an author/investor reference.
type UserProfile struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Role           string             `json:"role"`
	ProfilePicture string             `json:"profile_picture,omitempty"`
}

// Actor is the user performing an operation, as seen by domain logic.
// GroupID is the home group of an admin; it is zero for superadmins.
type Actor struct {
	ID      primitive.ObjectID
	Role    string
	GroupID primitive.ObjectID
}

// IsAdmin reports whether the actor holds an administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

func (a Actor) IsSuperAdmin() bool { return a.Role == RoleSuperAdmin }

// CanAdminister reports whether the actor may make admin decisions for
// records owned by groupID. Superadmins administer every group.
func (a Actor) CanAdminister(groupID primitive.ObjectID) bool {
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return !a.GroupID.IsZero() && a.GroupID == groupID
	}
	return false
}
