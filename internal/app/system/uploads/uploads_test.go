package uploads_test

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/uploads"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPath(t *testing.T) {
	owner := primitive.NewObjectID()
	at := time.UnixMilli(1767225600123)
	got := uploads.Path("projects", owner, uploads.PitchCovers, at, "png")
	want := "projects/" + owner.Hex() + "/PitchCovers/1767225600123.png"
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestUpload_Local(t *testing.T) {
	store, err := uploads.NewLocal(t.TempDir(), "/files/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	owner := primitive.NewObjectID()

	info, err := uploads.Upload(ctx, store, "groups", owner, uploads.Logos, "../../My Logo!.PNG", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	re := regexp.MustCompile(`^groups/` + owner.Hex() + `/Logos/\d{13}\.png$`)
	if !re.MatchString(info.Path) {
		t.Errorf("path = %q", info.Path)
	}
	if info.FileName != "My_Logo_.PNG" {
		t.Errorf("file name = %q", info.FileName)
	}

	full, err := store.GetFullPath(info.Path)
	if err != nil {
		t.Fatalf("GetFullPath: %v", err)
	}
	b, err := os.ReadFile(full)
	if err != nil || string(b) != "png-bytes" {
		t.Errorf("stored %q err %v", b, err)
	}

	u, err := uploads.URL(ctx, store, info.Path, info.FileName)
	if err != nil || u != "/files/"+info.Path {
		t.Errorf("URL = %q err %v", u, err)
	}
}

func TestUpload_Rejects(t *testing.T) {
	store, err := uploads.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	owner := primitive.NewObjectID()

	if _, err := uploads.Upload(ctx, store, "projects", owner, "Secrets", "a.pdf", strings.NewReader("x"), 1, "application/pdf"); !errors.Is(err, uploads.ErrBadSubfolder) {
		t.Errorf("bad subfolder: %v", err)
	}
	if _, err := uploads.Upload(ctx, store, "pledges", owner, uploads.Videos, "a.mp4", strings.NewReader("x"), 1, "video/mp4"); !errors.Is(err, uploads.ErrBadCollection) {
		t.Errorf("bad collection: %v", err)
	}
	if _, err := uploads.Upload(ctx, store, "projects", owner, uploads.Videos, "a.mp4", strings.NewReader("x"), uploads.MaxSize+1, "video/mp4"); !errors.Is(err, uploads.ErrTooLarge) {
		t.Errorf("too large: %v", err)
	}
	if _, err := store.GetFullPath("../../etc/passwd"); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("traversal path: %v", err)
	}
	if _, err := uploads.URL(ctx, store, "projects/../../etc/passwd", "x"); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("traversal url: %v", err)
	}
}
