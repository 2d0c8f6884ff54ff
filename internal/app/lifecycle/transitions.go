// Package lifecycle computes project status transitions.
//
// Every transition is a pure function of the current project, the acting
// user and the decision: it returns the next project and the Effects to
// emit, or an error before anything is written. Service persists the result.
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decision is an admin's answer plus an optional visibility override.
// Visibility models.VisibilityKeep leaves the project's visibility as is.
type Decision struct {
	Approve    bool
	Visibility models.Visibility
}

// OfferInput is the pledge page submitted by an issuer or an admin.
type OfferInput struct {
	ExpiryDate string // YYYY-MM-DD or RFC 3339
	Valuation  string // optional; must parse as a number when set
	Notes      string
}

func requireAdmin(p models.Project, actor models.Actor) error {
	if !actor.CanAdminister(p.GroupID) {
		return ErrNotAdmin
	}
	return nil
}

func requireOwner(p models.Project, actor models.Actor) error {
	if actor.ID.IsZero() || actor.ID != p.IssuerID {
		return ErrNotOwner
	}
	return nil
}

func applyVisibility(p *models.Project, v models.Visibility) {
	if v != models.VisibilityKeep && v.Valid() {
		p.Visibility = v
	}
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// checkNotPast compares at UTC day granularity: an expiry of today is allowed.
func checkNotPast(expiry, now time.Time) error {
	ey, em, ed := expiry.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	if time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)) {
		return ErrExpiryInPast
	}
	return nil
}

// DecidePitchGoLive publishes a checked pitch or rejects the project.
// Approval keeps the pitch's own status.
func DecidePitchGoLive(p models.Project, actor models.Actor, d Decision) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	if p.Pitch == nil {
		return p, Effects{}, fmt.Errorf("%w: project has no pitch", ErrInvalidTransition)
	}
	next := p.Clone()
	var eff Effects
	if d.Approve {
		next.Status = models.StatusPitchPhase
		applyVisibility(&next, d.Visibility)
		eff = newEffects(ActionPitchGoLive, actor, p, next)
		eff.toIssuer(next, "Your pitch is now live", "Your pitch has been approved and is now visible to investors.")
	} else {
		next.Status = models.StatusRejected
		next.Pitch.Status = models.PitchRejected
		eff = newEffects(ActionPitchRejected, actor, p, next)
		eff.toIssuer(next, "Your pitch was not approved", "An administrator has reviewed your pitch and decided not to publish it.")
	}
	return next, eff, nil
}

// DecidePledgeAdmission lets an issuer move on to building a pledge page, or
// fails the project.
func DecidePledgeAdmission(p models.Project, actor models.Actor, approve bool) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	if p.Pitch == nil {
		return p, Effects{}, fmt.Errorf("%w: project has no pitch", ErrInvalidTransition)
	}
	next := p.Clone()
	var eff Effects
	if approve {
		next.Pitch.Status = models.PitchAcceptedCreatePrimaryOffer
		eff = newEffects(ActionAdmissionAccepted, actor, p, next)
		eff.toIssuer(next, "You can now create a pledge page", "Your pitch has been accepted for the pledge phase.")
	} else {
		next.Status = models.StatusFailed
		next.Pitch.Status = models.PitchRejected
		eff = newEffects(ActionAdmissionRejected, actor, p, next)
		eff.toIssuer(next, "Your project will not move to the pledge phase", "An administrator has decided not to admit your project to the pledge phase.")
	}
	return next, eff, nil
}

// DecidePledgeGoLive publishes a checked pledge page or fails the project.
func DecidePledgeGoLive(p models.Project, actor models.Actor, d Decision) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	if p.PrimaryOffer == nil {
		return p, Effects{}, fmt.Errorf("%w: project has no pledge page", ErrInvalidTransition)
	}
	next := p.Clone()
	var eff Effects
	if d.Approve {
		next.Status = models.StatusPrimaryOfferPhase
		applyVisibility(&next, d.Visibility)
		eff = newEffects(ActionOfferGoLive, actor, p, next)
		eff.toIssuer(next, "Your pledge page is now live", "Investors can now pledge to your project.")
	} else {
		next.Status = models.StatusFailed
		next.PrimaryOffer.Status = models.OfferRejected
		eff = newEffects(ActionOfferRejected, actor, p, next)
		eff.toIssuer(next, "Your pledge page was not approved", "An administrator has decided not to publish your pledge page.")
	}
	return next, eff, nil
}

// CreatePledge attaches a pledge page. Admin-authored pages go live at once;
// issuer-authored ones wait for an admin check.
func CreatePledge(p models.Project, actor models.Actor, in OfferInput, now time.Time) (models.Project, Effects, error) {
	admin := actor.CanAdminister(p.GroupID)
	if !admin {
		if err := requireOwner(p, actor); err != nil {
			return p, Effects{}, err
		}
	}
	if p.Pitch == nil {
		return p, Effects{}, fmt.Errorf("%w: project has no pitch", ErrInvalidTransition)
	}
	expiry, err := ParseDate(in.ExpiryDate)
	if err != nil {
		return p, Effects{}, err
	}
	if err := checkNotPast(expiry, now); err != nil {
		return p, Effects{}, err
	}
	var valuation *float64
	if v := strings.TrimSpace(in.Valuation); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, Effects{}, fmt.Errorf("%w: %q", ErrInvalidValuation, v)
		}
		valuation = &f
	}

	next := p.Clone()
	next.Pitch.Status = models.PitchAccepted
	next.PrimaryOffer = &models.PrimaryOffer{
		Status:      models.OfferOnGoing,
		PostedDate:  now.UTC(),
		ExpiredDate: expiry,
		Valuation:   valuation,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedByID: actor.ID,
	}

	var eff Effects
	if admin {
		next.Status = models.StatusPrimaryOfferPhase
		eff = newEffects(ActionOfferPublished, actor, p, next)
		if actor.ID != p.IssuerID {
			eff.toIssuer(next, "A pledge page has been published for your project", "An administrator created and published the pledge page for your project.")
		}
	} else {
		next.Status = models.StatusPrimaryOfferCreatedWaitingToBeChecked
		eff = newEffects(ActionOfferCreated, actor, p, next)
	}
	return next, eff, nil
}

// ToggleTemporaryClosure flips the temporary closure flag. The issuer and
// every investor with a live vote or pledge are notified; each investor once
// however many records they hold.
func ToggleTemporaryClosure(p models.Project, actor models.Actor, votes []models.Vote, pledges []models.Pledge) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	next := p.Clone()
	next.TemporarilyClosed = !p.TemporarilyClosed

	action, kind, msg := ActionReopened, KindProjectReopened, "has reopened"
	if next.TemporarilyClosed {
		action, kind, msg = ActionClosed, KindProjectClosed, "has been temporarily closed"
	}
	eff := newEffects(action, actor, p, next)
	eff.Notifications = append(eff.Notifications, Notice{
		RecipientID: p.IssuerID,
		Kind:        kind,
		Message:     "Your project " + p.Name + " " + msg,
	})
	for _, id := range Investors(p, votes, pledges) {
		eff.Notifications = append(eff.Notifications, Notice{
			RecipientID: id,
			Kind:        kind,
			Message:     "A project you follow, " + p.Name + ", " + msg,
		})
	}
	return next, eff, nil
}

// Investors returns the distinct investors holding a non-void vote or pledge
// on p, in first-seen order. The issuer is never included.
func Investors(p models.Project, votes []models.Vote, pledges []models.Pledge) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{p.IssuerID: true}
	var out []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, v := range votes {
		if !v.Voided() {
			add(v.InvestorID)
		}
	}
	for _, pl := range pledges {
		if !pl.Voided() {
			add(pl.InvestorID)
		}
	}
	return out
}

// RevivePitch brings a pitch back to live with a new expiry date. The
// project is not required to have expired.
func RevivePitch(p models.Project, actor models.Actor, newExpiry, now time.Time) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	if newExpiry.IsZero() {
		return p, Effects{}, ErrInvalidDate
	}
	if err := checkNotPast(newExpiry, now); err != nil {
		return p, Effects{}, err
	}
	next := p.Clone()
	if next.Pitch == nil {
		next.Pitch = &models.Pitch{PostedDate: now.UTC()}
	}
	next.Status = models.StatusPitchPhase
	next.Pitch.Status = models.PitchOnGoing
	next.Pitch.ExpiredDate = newExpiry
	eff := newEffects(ActionPitchRevived, actor, p, next)
	eff.toIssuer(next, "Your pitch is live again", "Your pitch has been brought back to live with a new expiry date.")
	return next, eff, nil
}

// SubmitForReview sends an issuer's draft to the group admins. The pitch
// expiry clock starts now and runs for expiryDays.
func SubmitForReview(p models.Project, actor models.Actor, expiryDays int, now time.Time) (models.Project, Effects, error) {
	if err := requireOwner(p, actor); err != nil {
		return p, Effects{}, err
	}
	if p.Status != models.StatusDraft {
		return p, Effects{}, fmt.Errorf("%w: only drafts can be submitted", ErrInvalidTransition)
	}
	if expiryDays <= 0 {
		expiryDays = models.DefaultPitchExpiryDays
	}
	next := p.Clone()
	if next.Pitch == nil {
		next.Pitch = &models.Pitch{}
	}
	next.Status = models.StatusBeingChecked
	next.Pitch.Status = models.PitchOnGoing
	next.Pitch.PostedDate = now.UTC()
	next.Pitch.ExpiredDate = now.UTC().AddDate(0, 0, expiryDays)
	return next, newEffects(ActionSubmittedForReview, actor, p, next), nil
}

// ExpirePitch parks a live pitch whose expiry has passed until an admin
// looks at it. actor is the system user running the expiry job.
func ExpirePitch(p models.Project, actor models.Actor, now time.Time) (models.Project, Effects, error) {
	if p.Status != models.StatusPitchPhase || p.Pitch == nil || !p.Pitch.ExpiredDate.Before(now) {
		return p, Effects{}, ErrInvalidTransition
	}
	next := p.Clone()
	next.Status = models.StatusPitchPhaseExpiredWaitingToBeChecked
	next.Pitch.Status = models.PitchWaitingForAdmin
	eff := newEffects(ActionPitchExpired, actor, p, next)
	eff.Notifications = append(eff.Notifications, Notice{
		RecipientID: p.IssuerID,
		Kind:        KindProjectReview,
		Message:     "Your pitch " + p.Name + " has expired and is waiting for an administrator",
	})
	return next, eff, nil
}

// MarkExpiredPitches applies ExpirePitch to every eligible project in ps.
// Ineligible projects are skipped.
func MarkExpiredPitches(ps []models.Project, actor models.Actor, now time.Time) ([]models.Project, []Effects) {
	var next []models.Project
	var effs []Effects
	for _, p := range ps {
		n, eff, err := ExpirePitch(p, actor, now)
		if err != nil {
			continue
		}
		next = append(next, n)
		effs = append(effs, eff)
	}
	return next, effs
}

// CloseOffer ends a live pledge phase as successful or failed.
func CloseOffer(p models.Project, actor models.Actor, successful bool) (models.Project, Effects, error) {
	if err := requireAdmin(p, actor); err != nil {
		return p, Effects{}, err
	}
	if p.Status != models.StatusPrimaryOfferPhase || p.PrimaryOffer == nil {
		return p, Effects{}, fmt.Errorf("%w: pledge phase is not live", ErrInvalidTransition)
	}
	next := p.Clone()
	next.PrimaryOffer.Status = models.OfferExpired
	next.TemporarilyClosed = false
	var eff Effects
	if successful {
		next.Status = models.StatusSuccessful
		eff = newEffects(ActionOfferSuccessful, actor, p, next)
		eff.toIssuer(next, "Your project was successful", "The pledge phase for your project has closed successfully.")
	} else {
		next.Status = models.StatusFailed
		eff = newEffects(ActionOfferFailed, actor, p, next)
		eff.toIssuer(next, "Your project did not reach its goal", "The pledge phase for your project has closed.")
	}
	return next, eff, nil
}
