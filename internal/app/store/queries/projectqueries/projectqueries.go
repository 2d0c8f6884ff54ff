// Package projectqueries provides composite read-only queries around
// projects: the project with its group, issuer and pledges, and the
// discussion lists with their authors resolved.
package projectqueries

import (
	"context"
	"fmt"

	commentstore "github.com/dalemusser/investwest/internal/app/store/comments"
	forumstore "github.com/dalemusser/investwest/internal/app/store/forums"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	votestore "github.com/dalemusser/investwest/internal/app/store/votes"
	"github.com/dalemusser/investwest/internal/app/system/projectfilter"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// ProjectView is a project with its related records loaded.
type ProjectView struct {
	Project     models.Project         `json:"project"`
	Group       models.GroupProperties `json:"group"`
	Issuer      *models.UserProfile    `json:"issuer"`
	Pledges     []models.Pledge        `json:"pledges,omitempty"`
	TotalPledge float64                `json:"total_pledged,omitempty"`
}

// LoadProject loads a project, then its group and issuer (and its pledges
// when withPledges is set) concurrently. Any failed fetch fails the whole
// view; no partial result is returned.
func LoadProject(ctx context.Context, db *mongo.Database, id primitive.ObjectID, withPledges bool) (ProjectView, error) {
	p, err := projectstore.New(db).GetByID(ctx, id)
	if err != nil {
		return ProjectView{}, err
	}

	view := ProjectView{Project: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grp, err := groupstore.New(db).GetByID(gctx, p.GroupID)
		if err != nil {
			return fmt.Errorf("load group: %w", err)
		}
		view.Group = grp
		return nil
	})
	g.Go(func() error {
		u, err := userstore.New(db).GetByID(gctx, p.IssuerID)
		if err != nil {
			return fmt.Errorf("load issuer: %w", err)
		}
		view.Issuer = u.Profile()
		return nil
	})
	if withPledges {
		g.Go(func() error {
			pledges, err := LoadPledges(gctx, db, p.ID)
			if err != nil {
				return fmt.Errorf("load pledges: %w", err)
			}
			view.Pledges = pledges
			view.TotalPledge = pledgestore.Total(pledges)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ProjectView{}, err
	}
	return view, nil
}

// ListProjects runs one keyed store query bounded by limit, then applies
// the in-memory filter.
func ListProjects(ctx context.Context, db *mongo.Database, key projectstore.Key, limit int64, f projectfilter.Filter) ([]models.Project, error) {
	ps, err := projectstore.New(db).Find(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	return projectfilter.Apply(ps, f), nil
}

// LoadPledges returns the project's non-void pledges with investor profiles.
func LoadPledges(ctx context.Context, db *mongo.Database, projectID primitive.ObjectID) ([]models.Pledge, error) {
	pledges, err := pledgestore.New(db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, pledges,
		func(p models.Pledge) primitive.ObjectID { return p.InvestorID },
		func(p *models.Pledge, u *models.UserProfile) { p.Investor = u })
	return pledges, err
}

// LoadVotes returns the project's non-void votes with investor profiles.
func LoadVotes(ctx context.Context, db *mongo.Database, projectID primitive.ObjectID) ([]models.Vote, error) {
	votes, err := votestore.New(db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, votes,
		func(v models.Vote) primitive.ObjectID { return v.InvestorID },
		func(v *models.Vote, u *models.UserProfile) { v.Investor = u })
	return votes, err
}

// LoadComments returns a project's comments with authors.
func LoadComments(ctx context.Context, db *mongo.Database, projectID primitive.ObjectID) ([]models.Comment, error) {
	cs, err := commentstore.New(db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, cs,
		func(c models.Comment) primitive.ObjectID { return c.AuthorID },
		func(c *models.Comment, u *models.UserProfile) { c.Author = u })
	return cs, err
}

// LoadCommentReplies returns one side of a comment's reply partition.
func LoadCommentReplies(ctx context.Context, db *mongo.Database, commentID primitive.ObjectID, mode models.LoadMode) ([]models.CommentReply, error) {
	rs, err := commentstore.New(db).ListReplies(ctx, commentID, mode)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, rs,
		func(r models.CommentReply) primitive.ObjectID { return r.AuthorID },
		func(r *models.CommentReply, u *models.UserProfile) { r.Author = u })
	return rs, err
}

// LoadForums returns one side of a group's forum partition.
func LoadForums(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID, mode models.LoadMode) ([]models.Forum, error) {
	fs, err := forumstore.New(db).ListForums(ctx, groupID, mode)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, fs,
		func(f models.Forum) primitive.ObjectID { return f.AuthorID },
		func(f *models.Forum, u *models.UserProfile) { f.Author = u })
	return fs, err
}

// LoadThreads returns one side of a forum's thread partition.
func LoadThreads(ctx context.Context, db *mongo.Database, forumID primitive.ObjectID, mode models.LoadMode) ([]models.ForumThread, error) {
	ts, err := forumstore.New(db).ListThreads(ctx, forumID, mode)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, ts,
		func(t models.ForumThread) primitive.ObjectID { return t.AuthorID },
		func(t *models.ForumThread, u *models.UserProfile) { t.Author = u })
	return ts, err
}

// LoadThreadReplies returns one side of a thread's reply partition.
func LoadThreadReplies(ctx context.Context, db *mongo.Database, threadID primitive.ObjectID, mode models.LoadMode) ([]models.ThreadReply, error) {
	rs, err := forumstore.New(db).ListReplies(ctx, threadID, mode)
	if err != nil {
		return nil, err
	}
	err = attach(ctx, db, rs,
		func(r models.ThreadReply) primitive.ObjectID { return r.AuthorID },
		func(r *models.ThreadReply, u *models.UserProfile) { r.Author = u })
	return rs, err
}

// attach resolves every referenced user in one query. Items whose user no
// longer exists are left without a profile.
func attach[T any](ctx context.Context, db *mongo.Database, items []T, ref func(T) primitive.ObjectID, set func(*T, *models.UserProfile)) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, ref(it))
	}
	profiles, err := userstore.New(db).Profiles(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve profiles: %w", err)
	}
	for i := range items {
		if u, ok := profiles[ref(items[i])]; ok {
			set(&items[i], u)
		}
	}
	return nil
}
