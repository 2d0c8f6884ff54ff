// internal/app/features/comments/handler.go
package comments

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	commentstore "github.com/dalemusser/investwest/internal/app/store/comments"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/htmlsanitize"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the discussion under a project: comments and their
// soft-deletable replies.
type Handler struct {
	DB       *mongo.Database
	Projects *projectstore.Store
	Comments *commentstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Projects: projectstore.New(db),
		Comments: commentstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

type bodyInput struct {
	Body string `json:"body"`
}

func (in bodyInput) clean() string {
	return htmlsanitize.PrepareForStorage(strings.TrimSpace(in.Body))
}

func (h *Handler) project(ctx context.Context, r *http.Request) (models.Project, error) {
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		return models.Project{}, err
	}
	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if !authz.CanSeeProject(r, p) {
		return models.Project{}, httperr.ErrNotFound
	}
	return p, nil
}

// ServeComments handles GET /projects/{projectID}/comments.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list comments")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	list, err := projectqueries.LoadComments(ctx, h.DB, p.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "list comments", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"comments": list})
}

// HandleCreateComment handles POST /projects/{projectID}/comments.
func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "comment", httperr.ErrUnauthorized)
		return
	}
	var in bodyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode comment", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create comment")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	c, err := h.Comments.Create(ctx, p.ID, actor.ID, in.clean())
	if err != nil {
		h.ErrLog.Respond(w, r, "create comment", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, c)
}

// ServeReplies handles GET /projects/{projectID}/comments/{commentID}/replies.
// ?mode=deleted lists soft-deleted replies and is limited to group admins.
func (h *Handler) ServeReplies(w http.ResponseWriter, r *http.Request) {
	mode := models.ParseLoadMode(query.Get(r, "mode"))
	commentID, err := httperr.PathID(r, "commentID")
	if err != nil {
		h.ErrLog.Respond(w, r, "parse comment id", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list replies")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if mode == models.LoadDeleted && !authz.CanAdministerGroup(r, p.GroupID) {
		h.ErrLog.Respond(w, r, "list deleted replies", httperr.ErrForbidden)
		return
	}
	list, err := projectqueries.LoadCommentReplies(ctx, h.DB, commentID, mode)
	if err != nil {
		h.ErrLog.Respond(w, r, "list replies", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"replies": list})
}

// HandleReply handles POST /projects/{projectID}/comments/{commentID}/replies.
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "reply", httperr.ErrUnauthorized)
		return
	}
	commentID, err := httperr.PathID(r, "commentID")
	if err != nil {
		h.ErrLog.Respond(w, r, "parse comment id", err)
		return
	}
	var in bodyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode reply", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reply")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	c, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		h.ErrLog.Respond(w, r, "load comment", err)
		return
	}
	if c.ProjectID != p.ID {
		h.ErrLog.Respond(w, r, "load comment", httperr.ErrNotFound)
		return
	}
	reply, err := h.Comments.Reply(ctx, c, actor.ID, in.clean())
	if err != nil {
		h.ErrLog.Respond(w, r, "create reply", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, reply)
}

// ownReply loads {replyID} and checks the caller may change it: its author,
// or (when adminOK) an admin of the project's group.
func (h *Handler) ownReply(ctx context.Context, r *http.Request, adminOK bool) (models.CommentReply, error) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		return models.CommentReply{}, httperr.ErrUnauthorized
	}
	id, err := httperr.PathID(r, "replyID")
	if err != nil {
		return models.CommentReply{}, err
	}
	p, err := h.project(ctx, r)
	if err != nil {
		return models.CommentReply{}, err
	}
	reply, err := h.Comments.GetReply(ctx, id)
	if err != nil {
		return models.CommentReply{}, err
	}
	if reply.ProjectID != p.ID {
		return models.CommentReply{}, httperr.ErrNotFound
	}
	if reply.AuthorID != actor.ID && !(adminOK && actor.CanAdminister(p.GroupID)) {
		return models.CommentReply{}, httperr.ErrForbidden
	}
	return reply, nil
}

// HandleEditReply handles PATCH /projects/{projectID}/comments/replies/{replyID}.
func (h *Handler) HandleEditReply(w http.ResponseWriter, r *http.Request) {
	var in bodyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode reply", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "edit reply")
	defer cancel()

	reply, err := h.ownReply(ctx, r, false)
	if err != nil {
		h.ErrLog.Respond(w, r, "edit reply", err)
		return
	}
	if err := h.Comments.EditReply(ctx, reply.ID, in.clean()); err != nil {
		h.ErrLog.Respond(w, r, "edit reply", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteReply handles DELETE /projects/{projectID}/comments/replies/{replyID}.
func (h *Handler) HandleDeleteReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete reply")
	defer cancel()

	reply, err := h.ownReply(ctx, r, true)
	if err != nil {
		h.ErrLog.Respond(w, r, "delete reply", err)
		return
	}
	if err := h.Comments.DeleteReply(ctx, reply.ID); err != nil {
		h.ErrLog.Respond(w, r, "delete reply", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
