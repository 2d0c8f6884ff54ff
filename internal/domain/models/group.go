package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupStatus is the tenant status of a group.
type GroupStatus int

const (
	GroupActive    GroupStatus = 0
	GroupSuspended GroupStatus = 1
)

// DefaultPitchExpiryDays is used when a group has not configured one.
const DefaultPitchExpiryDays = 90

// GroupProperties is a tenant: an angel network, university or course.
type GroupProperties struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Username    string             `bson:"username" json:"username"` // URL slug, unique
	Description string             `bson:"description" json:"description"`
	Website     string             `bson:"website,omitempty" json:"website,omitempty"`
	LogoPath    string             `bson:"logo_path,omitempty" json:"logo_path,omitempty"`

	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // course -> university

	Status   GroupStatus   `bson:"status" json:"status"`
	Settings GroupSettings `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// GroupSettings holds group-level defaults and branding.
type GroupSettings struct {
	ProjectVisibility Visibility `bson:"project_visibility" json:"project_visibility"`
	PrimaryColor      string     `bson:"primary_color" json:"primary_color"`
	SecondaryColor    string     `bson:"secondary_color" json:"secondary_color"`
	PitchExpiryDays   int        `bson:"pitch_expiry_days" json:"pitch_expiry_days"`
	FAQs              []FAQ      `bson:"faqs,omitempty" json:"faqs,omitempty"`
}

// FAQ is one question/answer pair shown on the group's front page.
type FAQ struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// PitchExpiry returns the effective pitch lifetime in days.
func (s GroupSettings) PitchExpiry() int {
	if s.PitchExpiryDays <= 0 {
		return DefaultPitchExpiryDays
	}
	return s.PitchExpiryDays
}
