package commentstore_test

import (
	"testing"

	commentstore "github.com/dalemusser/investwest/internal/app/store/comments"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CommentAndReplies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := commentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	project := primitive.NewObjectID()
	author := primitive.NewObjectID()

	c, err := store.Create(ctx, project, author, "Great idea")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, project, author, "   "); err != commentstore.ErrEmptyBody {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}

	keep, err := store.Reply(ctx, c, author, "Thanks")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	gone, err := store.Reply(ctx, c, author, "Oops")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if gone.ProjectID != project {
		t.Errorf("reply ProjectID: got %v, want %v", gone.ProjectID, project)
	}

	if err := store.DeleteReply(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteReply failed: %v", err)
	}
	if err := store.EditReply(ctx, gone.ID, "edit"); err != mongo.ErrNoDocuments {
		t.Errorf("editing a deleted reply: expected ErrNoDocuments, got %v", err)
	}

	live, err := store.ListReplies(ctx, c.ID, models.LoadLive)
	if err != nil {
		t.Fatalf("ListReplies(live) failed: %v", err)
	}
	deleted, err := store.ListReplies(ctx, c.ID, models.LoadDeleted)
	if err != nil {
		t.Fatalf("ListReplies(deleted) failed: %v", err)
	}
	if len(live) != 1 || live[0].ID != keep.ID {
		t.Errorf("live: got %+v", live)
	}
	if len(deleted) != 1 || deleted[0].ID != gone.ID {
		t.Errorf("deleted: got %+v", deleted)
	}

	byProject, err := store.ListProjectReplies(ctx, project, models.LoadLive)
	if err != nil {
		t.Fatalf("ListProjectReplies failed: %v", err)
	}
	if len(byProject) != 1 {
		t.Errorf("ListProjectReplies: got %d, want 1", len(byProject))
	}
}
