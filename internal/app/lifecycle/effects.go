package lifecycle

import (
	"reflect"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actions name each transition in the activity log and in idempotency keys.
const (
	ActionPitchGoLive        = "pitch_go_live"
	ActionPitchRejected      = "pitch_rejected"
	ActionAdmissionAccepted  = "admission_accepted"
	ActionAdmissionRejected  = "admission_rejected"
	ActionOfferGoLive        = "offer_go_live"
	ActionOfferRejected      = "offer_rejected"
	ActionOfferCreated       = "offer_created"
	ActionOfferPublished     = "offer_published"
	ActionClosed             = "temporarily_closed"
	ActionReopened           = "reopened"
	ActionPitchRevived       = "pitch_revived"
	ActionSubmittedForReview = "submitted_for_review"
	ActionPitchExpired       = "pitch_expired"
	ActionOfferSuccessful    = "offer_successful"
	ActionOfferFailed        = "offer_failed"
)

// Notification kinds.
const (
	KindProjectDecision = "project_decision"
	KindProjectClosed   = "project_temporarily_closed"
	KindProjectReopened = "project_reopened"
	KindProjectReview   = "project_needs_review"
)

// Notice is one inbox notification to emit.
type Notice struct {
	RecipientID primitive.ObjectID
	Kind        string
	Message     string
}

// EmailNotice is one transactional email to a user. The address is resolved
// when the effect is applied.
type EmailNotice struct {
	RecipientID primitive.ObjectID
	Headline    string
	Message     string
}

// Effects lists what a transition must emit once the project is saved.
// Basis seeds the idempotency keys of every step; a repeat of the project's
// last transition that changes nothing reuses the stored basis.
type Effects struct {
	Action        string
	Basis         time.Time
	Activity      models.Activity
	Notifications []Notice
	Emails        []EmailNotice
}

// Recipients returns the notification recipient ids in order.
func (e Effects) Recipients() []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(e.Notifications))
	for _, n := range e.Notifications {
		out = append(out, n.RecipientID)
	}
	return out
}

func newEffects(action string, actor models.Actor, before, after models.Project) Effects {
	a := models.Activity{
		UserID:  actor.ID,
		Action:  action,
		Subject: models.Subject{Kind: models.SubjectProject, ID: after.ID},
	}
	a.Before, _ = models.Snapshot(before)
	a.After, _ = models.Snapshot(after)
	return Effects{Action: action, Basis: keyBasis(action, before, after), Activity: a}
}

func keyBasis(action string, before, after models.Project) time.Time {
	if t := before.LastTransition; t != nil && t.Action == action && sameState(before, after) {
		return t.Basis
	}
	return before.UpdatedAt
}

// sameState compares two projects ignoring bookkeeping fields.
func sameState(a, b models.Project) bool {
	a, b = a.Clone(), b.Clone()
	a.LastTransition, b.LastTransition = nil, nil
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(a, b)
}

// toIssuer adds the inbox notification and email every decision sends the issuer.
func (e *Effects) toIssuer(p models.Project, headline, message string) {
	e.Notifications = append(e.Notifications, Notice{
		RecipientID: p.IssuerID,
		Kind:        KindProjectDecision,
		Message:     headline + ": " + p.Name,
	})
	e.Emails = append(e.Emails, EmailNotice{
		RecipientID: p.IssuerID,
		Headline:    headline,
		Message:     message,
	})
}
