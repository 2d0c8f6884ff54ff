package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectStatus is the overall lifecycle status of a project.
// Values are persisted as integers and must not be renumbered.
type ProjectStatus int

const (
	StatusDraft                                 ProjectStatus = 0
	StatusBeingChecked                          ProjectStatus = 1
	StatusPitchPhase                            ProjectStatus = 2
	StatusPitchPhaseExpiredWaitingToBeChecked   ProjectStatus = 3
	StatusPrimaryOfferCreatedWaitingToBeChecked ProjectStatus = 4
	StatusPrimaryOfferPhase                     ProjectStatus = 5
	StatusSuccessful                            ProjectStatus = 6
	StatusFailed                                ProjectStatus = 7
	StatusRejected                              ProjectStatus = 8
)

var projectStatusNames = map[ProjectStatus]string{
	StatusDraft:        "draft",
	StatusBeingChecked: "being_checked",
	StatusPitchPhase:   "pitch_phase",
	StatusPitchPhaseExpiredWaitingToBeChecked:   "pitch_expired_waiting_check",
	StatusPrimaryOfferCreatedWaitingToBeChecked: "offer_created_waiting_check",
	StatusPrimaryOfferPhase:                     "offer_phase",
	StatusSuccessful:                            "successful",
	StatusFailed:                                "failed",
	StatusRejected:                              "rejected",
}

func (s ProjectStatus) String() string {
	if n, ok := projectStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

// IsLive reports whether the status falls in the live range
// (pitch phase through primary offer phase, inclusive).
func (s ProjectStatus) IsLive() bool {
	return s >= StatusPitchPhase && s <= StatusPrimaryOfferPhase
}

// IsTerminal reports whether no further transitions are expected.
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusFailed || s == StatusRejected
}

// PitchStatus is the status of the embedded pitch sub-record.
type PitchStatus int

const (
	PitchOnGoing                    PitchStatus = 0
	PitchAccepted                   PitchStatus = 1
	PitchRejected                   PitchStatus = 2
	PitchAcceptedCreatePrimaryOffer PitchStatus = 3
	PitchWaitingForAdmin            PitchStatus = 4
)

// OfferStatus is the status of the embedded primary offer (pledge page).
type OfferStatus int

const (
	OfferOnGoing  OfferStatus = 0
	OfferExpired  OfferStatus = 1
	OfferRejected OfferStatus = 2
)

// Visibility controls who can see a project.
type Visibility int

const (
	VisibilityPrivate    Visibility = 0
	VisibilityRestricted Visibility = 1
	VisibilityPublic     Visibility = 2

	// VisibilityKeep is the override sentinel meaning "leave visibility unchanged".
	VisibilityKeep Visibility = -1
)

// Valid reports whether v is one of the stored visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityRestricted || v == VisibilityPublic
}

// Project is one investment opportunity.
//
// Pitch is populated once the issuer has submitted the pitch; PrimaryOffer only
// once a pledge page has been created.
type Project struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	IssuerID primitive.ObjectID `bson:"issuer_id" json:"issuer_id"`

	Name        string `bson:"name" json:"name"`
	NameCI      string `bson:"name_ci" json:"-"`
	Description string `bson:"description" json:"description"`
	Sector      string `bson:"sector" json:"sector"`
	SectorCI    string `bson:"sector_ci" json:"-"`

	Visibility        Visibility    `bson:"visibility" json:"visibility"`
	Status            ProjectStatus `bson:"status" json:"status"`
	TemporarilyClosed bool          `bson:"temporarily_closed,omitempty" json:"temporarily_closed,omitempty"`

	Pitch        *Pitch        `bson:"pitch,omitempty" json:"pitch,omitempty"`
	PrimaryOffer *PrimaryOffer `bson:"primary_offer,omitempty" json:"primary_offer,omitempty"`

	LastTransition *Transition `bson:"last_transition,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Transition records the last lifecycle action saved on a project and the
// timestamp its side-effect keys were derived from.
type Transition struct {
	Action string    `bson:"action"`
	Basis  time.Time `bson:"basis"`
}

// Pitch is the first public phase of a project.
type Pitch struct {
	Status           PitchStatus `bson:"status" json:"status"`
	PostedDate       time.Time   `bson:"posted_date" json:"posted_date"`
	ExpiredDate      time.Time   `bson:"expired_date" json:"expired_date"`
	CoverPath        string      `bson:"cover_path,omitempty" json:"cover_path,omitempty"`
	PresentationPath string      `bson:"presentation_path,omitempty" json:"presentation_path,omitempty"`
	PresentationHTML string      `bson:"presentation_html,omitempty" json:"presentation_html,omitempty"`
	AmountRaised     string      `bson:"amount_raised,omitempty" json:"amount_raised,omitempty"`
}

// PrimaryOffer is the pledge page of a project.
type PrimaryOffer struct {
	Status      OfferStatus        `bson:"status" json:"status"`
	PostedDate  time.Time          `bson:"posted_date" json:"posted_date"`
	ExpiredDate time.Time          `bson:"expired_date" json:"expired_date"`
	Valuation   *float64           `bson:"valuation,omitempty" json:"valuation,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedByID primitive.ObjectID `bson:"created_by_id" json:"created_by_id"`
}

// Clone returns a deep copy so callers can mutate the result without
// touching the original's embedded records.
func (p Project) Clone() Project {
	c := p
	if p.Pitch != nil {
		pitch := *p.Pitch
		c.Pitch = &pitch
	}
	if p.PrimaryOffer != nil {
		offer := *p.PrimaryOffer
		if p.PrimaryOffer.Valuation != nil {
			v := *p.PrimaryOffer.Valuation
			offer.Valuation = &v
		}
		c.PrimaryOffer = &offer
	}
	if p.LastTransition != nil {
		t := *p.LastTransition
		c.LastTransition = &t
	}
	return c
}
