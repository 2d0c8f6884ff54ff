package indexes_test

import (
	"testing"

	"github.com/dalemusser/investwest/internal/app/system/indexes"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_CreatesProjectIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, db, "projects")
	for _, want := range []string{
		"idx_projects_visibility",
		"idx_projects_group",
		"idx_projects_issuer",
		"idx_projects_status",
	} {
		if !names[want] {
			t.Errorf("expected index %q on projects", want)
		}
	}
}

func TestEnsureAll_NotificationIdempotencyKeyUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("notifications")
	doc := bson.M{"_id": primitive.NewObjectID(), "recipient_id": primitive.NewObjectID(), "idempotency_key": "k1"}
	if _, err := c.InsertOne(ctx, doc); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	doc["_id"] = primitive.NewObjectID()
	if _, err := c.InsertOne(ctx, doc); err == nil {
		t.Error("expected duplicate key error for repeated idempotency_key")
	}

	// Documents without a key are not constrained (sparse index).
	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, bson.M{"_id": primitive.NewObjectID(), "recipient_id": primitive.NewObjectID()}); err != nil {
			t.Fatalf("insert without key failed: %v", err)
		}
	}
}
