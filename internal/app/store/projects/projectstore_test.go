package projectstore_test

import (
	"testing"
	"time"

	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Project{
		GroupID:  primitive.NewObjectID(),
		IssuerID: primitive.NewObjectID(),
		Name:     "Solar Roofs",
		Sector:   "Énergie",
		Status:   models.StatusPitchPhase,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != models.StatusDraft {
		t.Errorf("Status: got %v, want draft", created.Status)
	}
	if created.NameCI == "" || created.SectorCI == "" {
		t.Error("expected folded name and sector")
	}

	if _, err := store.Create(ctx, models.Project{}); err != projectstore.ErrNameRequired {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
}

func TestStore_Replace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Angels")
	iss := fixtures.CreateIssuer(ctx, "iss@example.com", g.ID)
	p := fixtures.CreateProject(ctx, "Widgets", g.ID, iss.ID, models.StatusBeingChecked, models.VisibilityPrivate)

	next := p.Clone()
	next.Status = models.StatusPitchPhase
	next.Visibility = models.VisibilityPublic
	saved, err := store.Replace(ctx, next)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !saved.UpdatedAt.After(p.UpdatedAt.Add(-time.Millisecond)) {
		t.Errorf("UpdatedAt not advanced: %v vs %v", saved.UpdatedAt, p.UpdatedAt)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.StatusPitchPhase || got.Visibility != models.VisibilityPublic {
		t.Errorf("replace not persisted: status=%v visibility=%v", got.Status, got.Visibility)
	}
	if got.Pitch == nil {
		t.Error("expected pitch to survive the replace")
	}

	missing := p.Clone()
	missing.ID = primitive.NewObjectID()
	if _, err := store.Replace(ctx, missing); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_FindByKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g1 := fixtures.CreateGroup(ctx, "One")
	g2 := fixtures.CreateGroup(ctx, "Two")
	iss := fixtures.CreateIssuer(ctx, "iss@example.com", g1.ID)
	fixtures.CreateProject(ctx, "A", g1.ID, iss.ID, models.StatusDraft, models.VisibilityPrivate)
	fixtures.CreateProject(ctx, "B", g1.ID, iss.ID, models.StatusPitchPhase, models.VisibilityPublic)
	fixtures.CreateProject(ctx, "C", g2.ID, primitive.NewObjectID(), models.StatusPrimaryOfferPhase, models.VisibilityPublic)
	fixtures.CreateProject(ctx, "D", g2.ID, primitive.NewObjectID(), models.StatusSuccessful, models.VisibilityRestricted)

	tests := []struct {
		name  string
		key   projectstore.Key
		limit int64
		want  int
	}{
		{"all", projectstore.Key{Kind: projectstore.ByAll}, 0, 4},
		{"all with ceiling", projectstore.Key{Kind: projectstore.ByAll}, 2, 2},
		{"public", projectstore.Key{Kind: projectstore.ByVisibility, Visibility: models.VisibilityPublic}, 0, 2},
		{"group one", projectstore.Key{Kind: projectstore.ByGroup, ID: g1.ID}, 0, 2},
		{"issuer", projectstore.Key{Kind: projectstore.ByIssuer, ID: iss.ID}, 0, 2},
		{"live range", projectstore.Key{Kind: projectstore.ByStatusRange, StatusFrom: models.StatusPitchPhase, StatusTo: models.StatusPrimaryOfferPhase}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Find(ctx, tt.key, tt.limit)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d projects, want %d", len(got), tt.want)
			}
		})
	}
}

func TestStore_FindExpiredPitches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Angels")
	iss := fixtures.CreateIssuer(ctx, "iss@example.com", g.ID)
	expired := fixtures.CreateProject(ctx, "Old", g.ID, iss.ID, models.StatusPitchPhase, models.VisibilityPublic)
	fixtures.CreateProject(ctx, "Fresh", g.ID, iss.ID, models.StatusPitchPhase, models.VisibilityPublic)

	expired.Pitch.ExpiredDate = time.Now().UTC().Add(-48 * time.Hour)
	if _, err := store.Replace(ctx, expired); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, err := store.FindExpiredPitches(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("FindExpiredPitches failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != expired.ID {
		t.Errorf("got %+v, want only %v", got, expired.ID)
	}
}

func TestStore_Delete_OnlyDrafts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Angels")
	iss := fixtures.CreateIssuer(ctx, "iss@example.com", g.ID)
	draft := fixtures.CreateProject(ctx, "Draft", g.ID, iss.ID, models.StatusDraft, models.VisibilityPrivate)
	live := fixtures.CreateProject(ctx, "Live", g.ID, iss.ID, models.StatusPitchPhase, models.VisibilityPublic)

	if n, err := store.Delete(ctx, draft.ID); err != nil || n != 1 {
		t.Errorf("Delete(draft): n=%d err=%v", n, err)
	}
	if n, err := store.Delete(ctx, live.ID); err != nil || n != 0 {
		t.Errorf("Delete(live): n=%d err=%v", n, err)
	}
}
