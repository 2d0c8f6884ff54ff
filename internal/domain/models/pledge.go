package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pledge is an investor's monetary commitment to a project's primary offer.
//
// An empty Amount is the void marker: the pledge was withdrawn and must be
// left out of every aggregate.
type Pledge struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"project_id"`
	InvestorID  primitive.ObjectID `bson:"investor_id" json:"investor_id"`
	Amount      string             `bson:"amount" json:"amount"`
	CreatedByID primitive.ObjectID `bson:"created_by_id" json:"created_by_id"`
	Date        time.Time          `bson:"date" json:"date"`

	Investor *UserProfile `bson:"-" json:"investor,omitempty"`
}

// Voided reports whether the pledge has been withdrawn.
func (p Pledge) Voided() bool { return p.Amount == "" }

// Vote is an investor's non-binding interest in a project during the pitch phase.
// An empty Voted value is the void marker.
type Vote struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ProjectID  primitive.ObjectID `bson:"project_id" json:"project_id"`
	InvestorID primitive.ObjectID `bson:"investor_id" json:"investor_id"`
	Voted      string             `bson:"voted" json:"voted"`
	Date       time.Time          `bson:"date" json:"date"`

	Investor *UserProfile `bson:"-" json:"investor,omitempty"`
}

// Voided reports whether the vote has been withdrawn.
func (v Vote) Voided() bool { return v.Voted == "" }
