package notificationstore_test

import (
	"testing"

	notificationstore "github.com/dalemusser/investwest/internal/app/store/notifications"
	"github.com/dalemusser/investwest/internal/app/system/indexes"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Insert_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	recipient := primitive.NewObjectID()
	n := models.Notification{RecipientID: recipient, Kind: "pitch_approved", Message: "Live", IdempotencyKey: "k1"}

	inserted, err := store.Insert(ctx, n)
	if err != nil || !inserted {
		t.Fatalf("first Insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = store.Insert(ctx, n)
	if err != nil || inserted {
		t.Fatalf("retried Insert: inserted=%v err=%v, want false/nil", inserted, err)
	}

	// Notifications without a key are never deduplicated.
	for i := 0; i < 2; i++ {
		if ok, err := store.Insert(ctx, models.Notification{RecipientID: recipient, Kind: "info"}); err != nil || !ok {
			t.Fatalf("keyless Insert: inserted=%v err=%v", ok, err)
		}
	}

	all, err := store.ListByRecipient(ctx, recipient, false, 0)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d notifications, want 3", len(all))
	}
}

func TestStore_ReadAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := primitive.NewObjectID()
	other := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, models.Notification{RecipientID: me, Kind: "info"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if _, err := store.Insert(ctx, models.Notification{RecipientID: other, Kind: "info"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	list, _ := store.ListByRecipient(ctx, me, false, 0)
	if err := store.MarkRead(ctx, list[0].ID, me); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := store.MarkRead(ctx, list[1].ID, other); err != mongo.ErrNoDocuments {
		t.Errorf("MarkRead by another recipient: expected ErrNoDocuments, got %v", err)
	}
	if n, _ := store.CountUnread(ctx, me); n != 2 {
		t.Errorf("CountUnread: got %d, want 2", n)
	}
	unread, _ := store.ListByRecipient(ctx, me, true, 0)
	if len(unread) != 2 {
		t.Errorf("unread list: got %d, want 2", len(unread))
	}

	if n, err := store.MarkAllRead(ctx, me); err != nil || n != 2 {
		t.Errorf("MarkAllRead: n=%d err=%v", n, err)
	}
	if err := store.Delete(ctx, list[2].ID, me); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	remaining, _ := store.ListByRecipient(ctx, me, false, 0)
	if len(remaining) != 2 {
		t.Errorf("after delete: got %d, want 2", len(remaining))
	}
}
