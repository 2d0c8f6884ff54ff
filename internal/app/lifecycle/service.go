package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	votestore "github.com/dalemusser/investwest/internal/app/store/votes"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/idempotency"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher queues outbound notification and email steps.
type Dispatcher interface {
	Enqueue(ctx context.Context, job notify.Job) error
}

// Service loads a project, runs a transition, replaces the record (last
// write wins) and then applies the transition's effects as idempotent steps.
type Service struct {
	Projects *projectstore.Store
	Groups   *groupstore.Store
	Users    *userstore.Store
	Pledges  *pledgestore.Store
	Votes    *votestore.Store
	Activity *auditlog.Logger
	Notify   Dispatcher
	Log      *zap.Logger

	SiteName string
	BaseURL  string
	Now      func() time.Time
}

// NewService wires a Service over db.
func NewService(db *mongo.Database, activity *auditlog.Logger, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		Projects: projectstore.New(db),
		Groups:   groupstore.New(db),
		Users:    userstore.New(db),
		Pledges:  pledgestore.New(db),
		Votes:    votestore.New(db),
		Activity: activity,
		Notify:   dispatcher,
		Log:      logger,
		SiteName: "Invest West",
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

type transition func(p models.Project) (models.Project, Effects, error)

func (s *Service) run(ctx context.Context, id primitive.ObjectID, t transition) (models.Project, error) {
	p, err := s.Projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("load project: %w", err)
	}
	next, eff, err := t(p)
	if err != nil {
		return p, err
	}
	return s.Apply(ctx, next, eff)
}

// Apply persists next and runs eff. On an effects failure the saved project
// is returned together with an error wrapping ErrEffectsIncomplete.
func (s *Service) Apply(ctx context.Context, next models.Project, eff Effects) (models.Project, error) {
	if eff.Basis.IsZero() {
		eff.Basis = next.UpdatedAt
	}
	next.LastTransition = &models.Transition{Action: eff.Action, Basis: eff.Basis}
	saved, err := s.Projects.Replace(ctx, next)
	if err != nil {
		return next, fmt.Errorf("save project: %w", err)
	}
	s.Log.Info("project transition",
		zap.String("project_id", saved.ID.Hex()),
		zap.String("action", eff.Action),
		zap.String("status", saved.Status.String()))

	var errs []error
	key := func(recipient string) string {
		return idempotency.Key(saved.ID, eff.Action, eff.Basis, recipient)
	}

	a := eff.Activity
	if after, err := models.Snapshot(saved); err == nil {
		a.After = after
	}
	a.IdempotencyKey = key("activity")
	if err := s.Activity.Record(ctx, a); err != nil {
		errs = append(errs, fmt.Errorf("activity: %w", err))
	}

	if s.Notify != nil {
		for _, n := range eff.Notifications {
			pid := saved.ID
			job := notify.Job{
				Key: key(n.RecipientID.Hex()),
				Notification: &models.Notification{
					RecipientID: n.RecipientID,
					Kind:        n.Kind,
					Message:     n.Message,
					Action:      eff.Action,
					ProjectID:   &pid,
				},
			}
			if err := s.Notify.Enqueue(ctx, job); err != nil {
				errs = append(errs, fmt.Errorf("notify %s: %w", n.RecipientID.Hex(), err))
			}
		}
		for _, e := range eff.Emails {
			job, err := s.emailJob(ctx, saved, e, key("email:"+e.RecipientID.Hex()))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := s.Notify.Enqueue(ctx, job); err != nil {
				errs = append(errs, fmt.Errorf("email %s: %w", e.RecipientID.Hex(), err))
			}
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.Log.Warn("transition effects incomplete",
			zap.String("project_id", saved.ID.Hex()),
			zap.String("action", eff.Action),
			zap.Error(err))
		return saved, fmt.Errorf("%w: %w", ErrEffectsIncomplete, err)
	}
	return saved, nil
}

func (s *Service) emailJob(ctx context.Context, p models.Project, e EmailNotice, key string) (notify.Job, error) {
	u, err := s.Users.GetByID(ctx, e.RecipientID)
	if err != nil {
		return notify.Job{}, fmt.Errorf("email recipient %s: %w", e.RecipientID.Hex(), err)
	}
	email := mailer.BuildDecisionEmail(mailer.DecisionEmailData{
		SiteName:    s.SiteName,
		ProjectName: p.Name,
		Headline:    e.Headline,
		Message:     e.Message,
		ProjectURL:  s.projectURL(p.ID),
	})
	email.To = u.Email
	return notify.Job{Key: key, Email: &email}, nil
}

func (s *Service) projectURL(id primitive.ObjectID) string {
	if s.BaseURL == "" {
		return ""
	}
	return s.BaseURL + "/projects/" + id.Hex()
}

// DecidePitchGoLive runs DecidePitchGoLive on the stored project.
func (s *Service) DecidePitchGoLive(ctx context.Context, actor models.Actor, id primitive.ObjectID, d Decision) (models.Project, error) {
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return DecidePitchGoLive(p, actor, d)
	})
}

// DecidePledgeAdmission runs DecidePledgeAdmission on the stored project.
func (s *Service) DecidePledgeAdmission(ctx context.Context, actor models.Actor, id primitive.ObjectID, approve bool) (models.Project, error) {
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return DecidePledgeAdmission(p, actor, approve)
	})
}

// DecidePledgeGoLive runs DecidePledgeGoLive on the stored project.
func (s *Service) DecidePledgeGoLive(ctx context.Context, actor models.Actor, id primitive.ObjectID, d Decision) (models.Project, error) {
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return DecidePledgeGoLive(p, actor, d)
	})
}

// CreatePledge attaches a pledge page to the stored project.
func (s *Service) CreatePledge(ctx context.Context, actor models.Actor, id primitive.ObjectID, in OfferInput) (models.Project, error) {
	now := s.now()
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return CreatePledge(p, actor, in, now)
	})
}

// ToggleTemporaryClosure loads the project's votes and pledges concurrently
// to build the recipient set, then flips the closure flag.
func (s *Service) ToggleTemporaryClosure(ctx context.Context, actor models.Actor, id primitive.ObjectID) (models.Project, error) {
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		if err := requireAdmin(p, actor); err != nil {
			return p, Effects{}, err
		}
		var votes []models.Vote
		var pledges []models.Pledge
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			votes, err = s.Votes.ListByProject(gctx, p.ID)
			return err
		})
		g.Go(func() error {
			var err error
			pledges, err = s.Pledges.ListByProject(gctx, p.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			return p, Effects{}, fmt.Errorf("load followers: %w", err)
		}
		return ToggleTemporaryClosure(p, actor, votes, pledges)
	})
}

// RevivePitch brings the stored project's pitch back to live.
func (s *Service) RevivePitch(ctx context.Context, actor models.Actor, id primitive.ObjectID, newExpiry time.Time) (models.Project, error) {
	now := s.now()
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return RevivePitch(p, actor, newExpiry, now)
	})
}

// SubmitForReview sends a draft for checking, using its group's pitch expiry.
func (s *Service) SubmitForReview(ctx context.Context, actor models.Actor, id primitive.ObjectID) (models.Project, error) {
	now := s.now()
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		days := models.DefaultPitchExpiryDays
		if g, err := s.Groups.GetByID(ctx, p.GroupID); err == nil {
			days = g.Settings.PitchExpiry()
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return p, Effects{}, fmt.Errorf("load group: %w", err)
		}
		return SubmitForReview(p, actor, days, now)
	})
}

// CloseOffer ends the stored project's pledge phase.
func (s *Service) CloseOffer(ctx context.Context, actor models.Actor, id primitive.ObjectID, successful bool) (models.Project, error) {
	return s.run(ctx, id, func(p models.Project) (models.Project, Effects, error) {
		return CloseOffer(p, actor, successful)
	})
}

// ExpirePitches moves up to limit live pitches past their expiry into the
// waiting-for-check state and returns how many were saved.
func (s *Service) ExpirePitches(ctx context.Context, actor models.Actor, limit int64) (int, error) {
	now := s.now()
	due, err := s.Projects.FindExpiredPitches(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("find expired pitches: %w", err)
	}
	next, effs := MarkExpiredPitches(due, actor, now)
	saved := 0
	var errs []error
	for i := range next {
		if _, err := s.Apply(ctx, next[i], effs[i]); err != nil && !errors.Is(err, ErrEffectsIncomplete) {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}
