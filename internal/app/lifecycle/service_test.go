package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/investwest/internal/app/lifecycle"
	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	notificationstore "github.com/dalemusser/investwest/internal/app/store/notifications"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/indexes"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []notify.Job
}

func (d *recordingDispatcher) Enqueue(_ context.Context, job notify.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

type countingMail struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *countingMail) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

// flakyDispatcher delivers jobs synchronously and rejects the first
// failEmails email jobs it sees.
type flakyDispatcher struct {
	d          *notify.Dispatcher
	failEmails int
	keys       []string
}

func (f *flakyDispatcher) Enqueue(ctx context.Context, job notify.Job) error {
	f.keys = append(f.keys, job.Key)
	if job.Email != nil && f.failEmails > 0 {
		f.failEmails--
		return errors.New("relay unavailable")
	}
	return f.d.Deliver(ctx, job)
}

type fixture struct {
	svc      *lifecycle.Service
	jobs     *recordingDispatcher
	activity *activitystore.Store
	f        *testutil.Fixtures
	db       *mongo.Database
}

func setup(t *testing.T) (fixture, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	act := activitystore.New(db)
	jobs := &recordingDispatcher{}
	svc := lifecycle.NewService(db, auditlog.New(act, zap.NewNop(), auditlog.Config{}), jobs, zap.NewNop())
	return fixture{svc: svc, jobs: jobs, activity: act, f: testutil.NewFixtures(t, db), db: db}, ctx
}

func TestService_DecidePitchGoLive(t *testing.T) {
	fx, ctx := setup(t)
	group := fx.f.CreateGroup(ctx, "North Angels")
	issuer := fx.f.CreateIssuer(ctx, "issuer@example.com", group.ID)
	admin := fx.f.CreateAdmin(ctx, "admin@example.com", group.ID)
	p := fx.f.CreateProject(ctx, "Hydro", group.ID, issuer.ID, models.StatusBeingChecked, models.VisibilityRestricted)

	actor := models.Actor{ID: admin.ID, Role: models.RoleAdmin, GroupID: group.ID}
	got, err := fx.svc.DecidePitchGoLive(ctx, actor, p.ID, lifecycle.Decision{Approve: true, Visibility: models.VisibilityPublic})
	if err != nil {
		t.Fatalf("DecidePitchGoLive: %v", err)
	}
	if got.Status != models.StatusPitchPhase || got.Visibility != models.VisibilityPublic {
		t.Errorf("returned status %v visibility %d", got.Status, got.Visibility)
	}

	stored, err := fx.svc.Projects.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusPitchPhase {
		t.Errorf("stored status = %v", stored.Status)
	}

	acts, err := fx.activity.ListBySubject(ctx, models.Subject{Kind: models.SubjectProject, ID: p.ID}, 10)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(acts) != 1 || acts[0].Action != lifecycle.ActionPitchGoLive {
		t.Fatalf("activities = %+v", acts)
	}
	if acts[0].Before["status"] != int32(models.StatusBeingChecked) && acts[0].Before["status"] != int64(models.StatusBeingChecked) {
		t.Errorf("before snapshot status = %v", acts[0].Before["status"])
	}

	var notes, emails int
	for _, j := range fx.jobs.jobs {
		if j.Key == "" {
			t.Error("job without idempotency key")
		}
		if j.Notification != nil {
			notes++
		}
		if j.Email != nil {
			emails++
			if j.Email.To != "issuer@example.com" {
				t.Errorf("email to %q", j.Email.To)
			}
		}
	}
	if notes != 1 || emails != 1 {
		t.Errorf("notifications=%d emails=%d, want 1/1", notes, emails)
	}
}

func TestService_RejectedTransitionWritesNothing(t *testing.T) {
	fx, ctx := setup(t)
	group := fx.f.CreateGroup(ctx, "South Angels")
	issuer := fx.f.CreateIssuer(ctx, "i2@example.com", group.ID)
	p := fx.f.CreateProject(ctx, "Wind", group.ID, issuer.ID, models.StatusBeingChecked, models.VisibilityRestricted)

	actor := models.Actor{ID: issuer.ID, Role: models.RoleIssuer}
	if _, err := fx.svc.DecidePitchGoLive(ctx, actor, p.ID, lifecycle.Decision{Approve: true}); !errors.Is(err, lifecycle.ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
	stored, _ := fx.svc.Projects.GetByID(ctx, p.ID)
	if stored.Status != models.StatusBeingChecked || stored.Visibility != p.Visibility {
		t.Error("project changed after a rejected transition")
	}
	if len(fx.jobs.jobs) != 0 {
		t.Errorf("%d jobs queued after a rejected transition", len(fx.jobs.jobs))
	}

	if _, err := fx.svc.DecidePitchGoLive(ctx, actor, primitive.NewObjectID(), lifecycle.Decision{}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing project: err = %v", err)
	}
}

func TestService_ToggleTemporaryClosure(t *testing.T) {
	fx, ctx := setup(t)
	group := fx.f.CreateGroup(ctx, "Tech Angels")
	issuer := fx.f.CreateIssuer(ctx, "owner@example.com", group.ID)
	a := fx.f.CreateInvestor(ctx, "a@example.com", group.ID)
	b := fx.f.CreateInvestor(ctx, "b@example.com", group.ID)
	p := fx.f.CreateProject(ctx, "Robotics", group.ID, issuer.ID, models.StatusPrimaryOfferPhase, models.VisibilityPublic)
	fx.f.CreateVote(ctx, p.ID, a.ID, "yes")
	fx.f.CreateVote(ctx, p.ID, b.ID, "yes")
	fx.f.CreatePledge(ctx, p.ID, a.ID, "2500")

	actor := models.Actor{Role: models.RoleSuperAdmin, ID: primitive.NewObjectID()}
	got, err := fx.svc.ToggleTemporaryClosure(ctx, actor, p.ID)
	if err != nil {
		t.Fatalf("ToggleTemporaryClosure: %v", err)
	}
	if !got.TemporarilyClosed {
		t.Error("expected closed")
	}

	investors := map[primitive.ObjectID]int{}
	for _, j := range fx.jobs.jobs {
		if j.Notification != nil && j.Notification.RecipientID != issuer.ID {
			investors[j.Notification.RecipientID]++
		}
	}
	if len(investors) != 2 || investors[a.ID] != 1 || investors[b.ID] != 1 {
		t.Errorf("investor sends = %v, want one each for two investors", investors)
	}

	// Replaying the queued steps does not duplicate inbox rows.
	inbox := notificationstore.New(fx.db)
	d := notify.New(notify.Config{}, inbox, nil, nil, zap.NewNop())
	for round := 0; round < 2; round++ {
		for _, j := range fx.jobs.jobs {
			if err := d.Deliver(ctx, j); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
		}
	}
	rows, err := inbox.ListByRecipient(ctx, a.ID, false, 10)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("investor a has %d notifications, want 1", len(rows))
	}
}

func TestService_SubmitAndExpire(t *testing.T) {
	fx, ctx := setup(t)
	group := fx.f.CreateGroup(ctx, "Uni")
	issuer := fx.f.CreateIssuer(ctx, "u@example.com", group.ID)
	p := fx.f.CreateProject(ctx, "Drones", group.ID, issuer.ID, models.StatusDraft, models.VisibilityPublic)

	got, err := fx.svc.SubmitForReview(ctx, models.Actor{ID: issuer.ID, Role: models.RoleIssuer}, p.ID)
	if err != nil {
		t.Fatalf("SubmitForReview: %v", err)
	}
	if got.Status != models.StatusBeingChecked || got.Pitch == nil {
		t.Fatalf("status %v pitch %v", got.Status, got.Pitch)
	}

	// Make it live with an expiry in the past, then run the expiry pass.
	got.Status = models.StatusPitchPhase
	got.Pitch.ExpiredDate = got.Pitch.PostedDate.AddDate(0, 0, -1)
	if _, err := fx.svc.Projects.Replace(ctx, got); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	n, err := fx.svc.ExpirePitches(ctx, models.Actor{}, 100)
	if err != nil {
		t.Fatalf("ExpirePitches: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d, want 1", n)
	}
	stored, _ := fx.svc.Projects.GetByID(ctx, p.ID)
	if stored.Status != models.StatusPitchPhaseExpiredWaitingToBeChecked {
		t.Errorf("stored status = %v", stored.Status)
	}
}

func TestService_RetryAfterEffectsFailureSendsOnce(t *testing.T) {
	fx, ctx := setup(t)
	group := fx.f.CreateGroup(ctx, "West Angels")
	issuer := fx.f.CreateIssuer(ctx, "retry@example.com", group.ID)
	admin := fx.f.CreateAdmin(ctx, "admin2@example.com", group.ID)
	p := fx.f.CreateProject(ctx, "Tidal", group.ID, issuer.ID, models.StatusBeingChecked, models.VisibilityRestricted)

	inbox := notificationstore.New(fx.db)
	mail := &countingMail{}
	flaky := &flakyDispatcher{d: notify.New(notify.Config{}, inbox, mail, nil, zap.NewNop()), failEmails: 1}
	fx.svc.Notify = flaky

	actor := models.Actor{ID: admin.ID, Role: models.RoleAdmin, GroupID: group.ID}
	decision := lifecycle.Decision{Approve: true, Visibility: models.VisibilityPublic}
	if _, err := fx.svc.DecidePitchGoLive(ctx, actor, p.ID, decision); !errors.Is(err, lifecycle.ErrEffectsIncomplete) {
		t.Fatalf("first attempt: err = %v, want ErrEffectsIncomplete", err)
	}
	firstKeys := append([]string(nil), flaky.keys...)
	flaky.keys = nil

	if _, err := fx.svc.DecidePitchGoLive(ctx, actor, p.ID, decision); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(firstKeys) != len(flaky.keys) {
		t.Fatalf("retry queued %d jobs, first attempt %d", len(flaky.keys), len(firstKeys))
	}
	for i := range firstKeys {
		if firstKeys[i] != flaky.keys[i] {
			t.Errorf("job %d key changed on retry", i)
		}
	}

	rows, err := inbox.ListByRecipient(ctx, issuer.ID, false, 10)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("issuer has %d notifications, want 1", len(rows))
	}
	if len(mail.sent) != 1 {
		t.Errorf("sent %d emails, want 1", len(mail.sent))
	}
	acts, err := fx.activity.ListBySubject(ctx, models.Subject{Kind: models.SubjectProject, ID: p.ID}, 10)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(acts) != 1 {
		t.Errorf("recorded %d activities, want 1", len(acts))
	}

	// A later, different transition gets fresh keys.
	flaky.keys = nil
	if _, err := fx.svc.DecidePledgeAdmission(ctx, actor, p.ID, true); err != nil {
		t.Fatalf("DecidePledgeAdmission: %v", err)
	}
	for _, k := range flaky.keys {
		for _, old := range firstKeys {
			if k == old {
				t.Error("new transition reused a key")
			}
		}
	}
}
