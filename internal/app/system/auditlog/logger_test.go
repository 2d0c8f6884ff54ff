package auditlog_test

import (
	"testing"

	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := logger.Record(ctx, models.Activity{Action: "test"}); err != nil {
		t.Fatalf("nil Record: %v", err)
	}
	logger.GroupUpdated(ctx, primitive.NewObjectID(), models.GroupProperties{}, models.GroupProperties{})
}

func TestLogger_Record_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := activitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Lifecycle: "off", Admin: "off"})
	user := primitive.NewObjectID()
	p := models.Project{ID: primitive.NewObjectID(), Name: "Widget"}
	logger.ProjectCreated(ctx, user, p)

	got, err := store.ListByUser(ctx, user, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no activities when config is off, got %d", len(got))
	}
}

func TestLogger_Record_ConfigLogOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := activitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Lifecycle: "log", Admin: "log"})
	user := primitive.NewObjectID()
	logger.GroupUpdated(ctx, user, models.GroupProperties{}, models.GroupProperties{ID: primitive.NewObjectID()})

	got, err := store.ListByUser(ctx, user, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("log-only config wrote %d activities to the store", len(got))
	}
}

func TestLogger_GroupUpdated_Snapshots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := activitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Lifecycle: "all", Admin: "db"})
	user := primitive.NewObjectID()
	gid := primitive.NewObjectID()
	before := models.GroupProperties{ID: gid, Name: "Old"}
	after := models.GroupProperties{ID: gid, Name: "New"}
	logger.GroupUpdated(ctx, user, before, after)

	got, err := store.ListBySubject(ctx, models.Subject{Kind: models.SubjectGroup, ID: gid}, 10)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d activities, want 1", len(got))
	}
	a := got[0]
	if a.Action != activitystore.ActionGroupUpdated {
		t.Errorf("action = %q", a.Action)
	}
	if a.Before["name"] != "Old" || a.After["name"] != "New" {
		t.Errorf("snapshots = %v / %v", a.Before["name"], a.After["name"])
	}
}
