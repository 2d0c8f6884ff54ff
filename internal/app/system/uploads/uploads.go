// Package uploads stores user files under
// {collection}/{ownerId}/{subfolder}/{storageId}.{ext}, where storageId is
// the upload time in milliseconds.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subfolders.
const (
	Logos               = "Logos"
	ProfilePictures     = "ProfilePictures"
	Videos              = "Videos"
	LegalDocuments      = "LegalDocuments"
	PitchCovers         = "PitchCovers"
	PitchPresentations  = "PitchPresentations"
	SupportingDocuments = "SupportingDocuments"
)

var subfolders = map[string]bool{
	Logos: true, ProfilePictures: true, Videos: true, LegalDocuments: true,
	PitchCovers: true, PitchPresentations: true, SupportingDocuments: true,
}

// Collections that own uploads.
var collections = map[string]bool{
	"users": true, "groups": true, "projects": true,
}

var (
	ErrBadSubfolder  = errors.New("unknown upload folder")
	ErrBadCollection = errors.New("unknown upload owner collection")
	ErrTooLarge      = errors.New("file is too large")
)

// NewLocal opens disk storage under root whose objects are served under
// urlPrefix.
func NewLocal(root, urlPrefix string) (*storage.Local, error) {
	return storage.NewLocal(storage.LocalConfig{
		BasePath: root,
		BaseURL:  strings.TrimRight(urlPrefix, "/"),
	})
}

// MaxSize is the largest accepted upload.
const MaxSize = 50 << 20

// ValidSubfolder reports whether s is one of the fixed subfolders.
func ValidSubfolder(s string) bool { return subfolders[s] }

// ValidCollection reports whether c may own uploads.
func ValidCollection(c string) bool { return collections[c] }

// Info describes a stored object.
type Info struct {
	Path        string `json:"path"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Path builds the object path for an upload made at t.
func Path(collection string, owner primitive.ObjectID, subfolder string, t time.Time, ext string) string {
	id := strconv.FormatInt(t.UnixMilli(), 10)
	return collection + "/" + owner.Hex() + "/" + subfolder + "/" + id + "." + ext
}

// Upload validates the target and writes r to store.
func Upload(ctx context.Context, store storage.Store, collection string, owner primitive.ObjectID, subfolder, filename string, r io.Reader, size int64, contentType string) (Info, error) {
	if !ValidCollection(collection) {
		return Info{}, ErrBadCollection
	}
	if !ValidSubfolder(subfolder) {
		return Info{}, ErrBadSubfolder
	}
	if size > MaxSize {
		return Info{}, ErrTooLarge
	}
	name := sanitizeFilename(filename)
	path := Path(collection, owner, subfolder, time.Now().UTC(), extension(name, contentType))
	if err := store.Put(ctx, path, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return Info{}, fmt.Errorf("failed to upload file: %w", err)
	}
	return Info{Path: path, FileName: name, Size: size, ContentType: contentType}, nil
}

// URL returns a link to a stored object. Signed backends get a 15 minute
// presigned URL; local storage returns its public URL.
func URL(ctx context.Context, store storage.Store, path, filename string) (string, error) {
	if err := storage.ValidatePath(storage.NormalizePath(path)); err != nil {
		return "", err
	}
	u, err := store.PresignedURL(ctx, path, &storage.PresignOptions{
		Expires:            15 * time.Minute,
		ContentDisposition: "inline; filename=\"" + sanitizeFilename(filename) + "\"",
	})
	if errors.Is(err, storage.ErrPresignNotSupported) {
		return store.URL(path), nil
	}
	return u, err
}

func extension(name, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."); ext != "" && len(ext) <= 8 {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

// sanitizeFilename keeps a safe base name; an empty result gets a random one.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	s := strings.Trim(string(result), "._")
	if s == "" {
		return "upload-" + uuid.New().String()[:8]
	}
	if len(s) > 100 {
		ext := filepath.Ext(s)
		if len(ext) > 0 && len(ext) < 10 {
			s = s[:100-len(ext)] + ext
		} else {
			s = s[:100]
		}
	}
	return s
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
