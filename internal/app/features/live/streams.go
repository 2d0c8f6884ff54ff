package live

import (
	"context"
	"net/http"

	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/livesync"
	"github.com/dalemusser/investwest/internal/app/system/normalize"
	"github.com/dalemusser/investwest/internal/app/system/paging"
	"github.com/dalemusser/investwest/internal/app/system/projectfilter"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeProjects streams the project list. ?group= narrows the feed to one
// group; the usual list filters apply to every snapshot.
func (h *Handler) ServeProjects(w http.ResponseWriter, r *http.Request) {
	f, err := projectfilter.FromRequest(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project filter", err)
		return
	}
	key := projectstore.Key{Kind: projectstore.ByAll}
	match := bson.M{}
	if raw := normalize.GroupID(query.Get(r, "group")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.ErrLog.BadRequest(w, "invalid group id")
			return
		}
		key = projectstore.Key{Kind: projectstore.ByGroup, ID: id}
		match["group_id"] = id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "seed live projects")
	seed, err := projectqueries.ListProjects(ctx, h.DB, key, paging.MaxLimit, projectfilter.Filter{})
	cancel()
	if err != nil {
		h.ErrLog.Respond(w, r, "seed live projects", err)
		return
	}

	view := func(ps []models.Project) []models.Project {
		out := make([]models.Project, 0, len(ps))
		for _, p := range ps {
			if f.Match(p) && authz.CanSeeProject(r, p) {
				out = append(out, p)
			}
		}
		return out
	}
	stream(w, r, h.Log, "projects", h.Feeds.Projects(match), seed, livesync.Options[models.Project]{
		ID: func(p models.Project) primitive.ObjectID { return p.ID },
	}, view)
}

// ServePledges streams a project's pledges. Investors who are neither the
// issuer nor a group admin only see their own commitment.
func (h *Handler) ServePledges(w http.ResponseWriter, r *http.Request) {
	p, err := h.project(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "seed live pledges")
	seed, err := projectqueries.LoadPledges(ctx, h.DB, p.ID)
	cancel()
	if err != nil {
		h.ErrLog.Respond(w, r, "seed live pledges", err)
		return
	}

	actor, _ := authz.ActorFrom(r)
	all := actor.ID == p.IssuerID || actor.CanAdminister(p.GroupID)
	view := func(items []models.Pledge) []models.Pledge {
		if all {
			return items
		}
		var own []models.Pledge
		for _, pl := range items {
			if pl.InvestorID == actor.ID {
				own = append(own, pl)
			}
		}
		return own
	}
	stream(w, r, h.Log, "pledges", h.Feeds.Pledges(bson.M{"project_id": p.ID}), seed, livesync.Options[models.Pledge]{
		ID:      func(pl models.Pledge) primitive.ObjectID { return pl.ID },
		Deleted: models.Pledge.Voided,
		Resolve: func(ctx context.Context, pl models.Pledge) (models.Pledge, error) {
			prof, err := h.profile(ctx, pl.InvestorID)
			pl.Investor = prof
			return pl, err
		},
		Preserve: func(old, in models.Pledge) models.Pledge {
			if in.Investor == nil && in.InvestorID == old.InvestorID {
				in.Investor = old.Investor
			}
			return in
		},
	}, view)
}

// ServeComments streams a project's comments.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	p, err := h.project(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "seed live comments")
	seed, err := projectqueries.LoadComments(ctx, h.DB, p.ID)
	cancel()
	if err != nil {
		h.ErrLog.Respond(w, r, "seed live comments", err)
		return
	}

	stream(w, r, h.Log, "comments", h.Feeds.Comments(bson.M{"project_id": p.ID}), seed, livesync.Options[models.Comment]{
		ID: func(c models.Comment) primitive.ObjectID { return c.ID },
		Resolve: func(ctx context.Context, c models.Comment) (models.Comment, error) {
			prof, err := h.profile(ctx, c.AuthorID)
			c.Author = prof
			return c, err
		},
		Preserve: func(old, in models.Comment) models.Comment {
			if in.Author == nil {
				in.Author = old.Author
			}
			return in
		},
	}, nil)
}

// ServeThreads streams the live threads of a forum to group members.
func (h *Handler) ServeThreads(w http.ResponseWriter, r *http.Request) {
	id, err := httperr.PathID(r, "forumID")
	if err != nil {
		h.ErrLog.Respond(w, r, "bad forum id", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "seed live threads")
	defer cancel()

	forum, err := h.Forums.GetForum(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "load forum", err)
		return
	}
	actor, _ := authz.ActorFrom(r)
	if forum.Deleted || (actor.GroupID != forum.GroupID && !actor.CanAdminister(forum.GroupID)) {
		h.ErrLog.Respond(w, r, "load forum", httperr.ErrNotFound)
		return
	}
	seed, err := projectqueries.LoadThreads(ctx, h.DB, forum.ID, models.LoadLive)
	if err != nil {
		h.ErrLog.Respond(w, r, "seed live threads", err)
		return
	}
	cancel()

	stream(w, r, h.Log, "threads", h.Feeds.Threads(bson.M{"forum_id": forum.ID}), seed, livesync.Options[models.ForumThread]{
		ID:      func(t models.ForumThread) primitive.ObjectID { return t.ID },
		Deleted: func(t models.ForumThread) bool { return t.Deleted },
		Resolve: func(ctx context.Context, t models.ForumThread) (models.ForumThread, error) {
			prof, err := h.profile(ctx, t.AuthorID)
			t.Author = prof
			return t, err
		},
		Preserve: func(old, in models.ForumThread) models.ForumThread {
			if in.Author == nil {
				in.Author = old.Author
			}
			return in
		},
	}, nil)
}

// ServeNotifications streams the caller's inbox, newest first.
func (h *Handler) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "live notifications", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "seed live notifications")
	seed, err := h.Inbox.ListByRecipient(ctx, actor.ID, false, paging.MaxLimit)
	cancel()
	if err != nil {
		h.ErrLog.Respond(w, r, "seed live notifications", err)
		return
	}

	stream(w, r, h.Log, "notifications", h.Feeds.Notifications(bson.M{"recipient_id": actor.ID}), seed, livesync.Options[models.Notification]{
		ID: func(n models.Notification) primitive.ObjectID { return n.ID },
	}, nil)
}

// project loads {projectID} and hides it from callers who may not see it.
func (h *Handler) project(r *http.Request) (models.Project, error) {
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		return models.Project{}, err
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load project")
	defer cancel()
	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if !authz.CanSeeProject(r, p) {
		return models.Project{}, httperr.ErrNotFound
	}
	return p, nil
}
