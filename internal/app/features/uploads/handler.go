// internal/app/features/uploads/handler.go
package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/app/system/uploads"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler accepts file uploads into object storage and hands out
// short-lived URLs for stored files.
type Handler struct {
	DB       *mongo.Database
	Store    storage.Store
	Users    *userstore.Store
	Groups   *groupstore.Store
	Projects *projectstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, store storage.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Store:    store,
		Users:    userstore.New(db),
		Groups:   groupstore.New(db),
		Projects: projectstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// canWrite checks the caller may store files for owner: users write their
// own folder, admins their group's, issuers their projects'.
func (h *Handler) canWrite(ctx context.Context, actor models.Actor, collection string, owner primitive.ObjectID) error {
	switch collection {
	case "users":
		if owner == actor.ID || actor.IsSuperAdmin() {
			return nil
		}
		return httperr.ErrForbidden
	case "groups":
		if actor.CanAdminister(owner) {
			return nil
		}
		return httperr.ErrForbidden
	case "projects":
		p, err := h.Projects.GetByID(ctx, owner)
		if err != nil {
			return err
		}
		if p.IssuerID == actor.ID || actor.CanAdminister(p.GroupID) {
			return nil
		}
		return httperr.ErrForbidden
	}
	return uploads.ErrBadCollection
}

// HandleUpload handles POST /uploads as multipart/form-data with fields
// collection, owner_id, subfolder and file. Group logos and profile
// pictures are attached to their owner straight away.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "upload", httperr.ErrUnauthorized)
		return
	}

	// Room for the form fields around the file.
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxSize+1<<20)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "upload")
	defer cancel()

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.ErrLog.Respond(w, r, "upload", uploads.ErrTooLarge)
			return
		}
		h.ErrLog.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	collection := strings.TrimSpace(r.FormValue("collection"))
	subfolder := strings.TrimSpace(r.FormValue("subfolder"))
	owner, err := primitive.ObjectIDFromHex(r.FormValue("owner_id"))
	if err != nil {
		h.ErrLog.BadRequest(w, "owner_id must be a valid id")
		return
	}
	if err := h.canWrite(ctx, actor, collection, owner); err != nil {
		h.ErrLog.Respond(w, r, "upload", err)
		return
	}

	info, err := uploads.Upload(ctx, h.Store, collection, owner, subfolder,
		header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.ErrLog.Respond(w, r, "upload", err)
		return
	}

	switch {
	case collection == "groups" && subfolder == uploads.Logos:
		err = h.Groups.SetLogo(ctx, owner, info.Path)
	case collection == "users" && subfolder == uploads.ProfilePictures:
		err = h.Users.SetProfilePicture(ctx, owner, info.Path)
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "attach upload", err)
		return
	}

	h.Log.Info("file uploaded",
		zap.String("path", info.Path),
		zap.Int64("size", info.Size),
		zap.String("user_id", actor.ID.Hex()))
	httperr.JSON(w, http.StatusCreated, info)
}

// ServeURL handles GET /uploads/url?path=...[&name=...] and returns a
// short-lived URL for the stored object.
func (h *Handler) ServeURL(w http.ResponseWriter, r *http.Request) {
	path := query.Get(r, "path")
	if path == "" {
		h.ErrLog.BadRequest(w, "path is required")
		return
	}
	parts := strings.SplitN(path, "/", 4)
	if len(parts) != 4 || !uploads.ValidCollection(parts[0]) || !uploads.ValidSubfolder(parts[2]) {
		h.ErrLog.Respond(w, r, "upload url", uploads.ErrBadSubfolder)
		return
	}
	name := query.Get(r, "name")
	if name == "" {
		name = parts[3]
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "upload url")
	defer cancel()

	u, err := uploads.URL(ctx, h.Store, path, name)
	if err != nil {
		h.ErrLog.Respond(w, r, "upload url", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"url": u})
}
