package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test %s: %v", coll, err)
	}
}

// CreateGroup creates an active group with default settings.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.GroupProperties {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.GroupProperties{
		ID:       primitive.NewObjectID(),
		Name:     name,
		NameCI:   text.Fold(name),
		Username: text.Fold(name) + "-" + primitive.NewObjectID().Hex()[18:],
		Status:   models.GroupActive,
		Settings: models.GroupSettings{
			ProjectVisibility: models.VisibilityRestricted,
			PitchExpiryDays:   models.DefaultPitchExpiryDays,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "groups", g)
	return g
}

// CreateUser creates a user with the given role. homeGroup may be nil.
func (f *Fixtures) CreateUser(ctx context.Context, first, last, email, role string, homeGroup *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		FirstName:   first,
		LastName:    last,
		Email:       email,
		EmailCI:     text.Fold(email),
		Role:        role,
		HomeGroupID: homeGroup,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	u.FullNameCI = text.Fold(u.FullName())
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates a group admin for groupID.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string, groupID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Group", "Admin", email, models.RoleAdmin, &groupID)
}

// CreateIssuer creates an issuer whose home group is groupID.
func (f *Fixtures) CreateIssuer(ctx context.Context, email string, groupID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Issa", "Issuer", email, models.RoleIssuer, &groupID)
}

// CreateInvestor creates an investor whose home group is groupID.
func (f *Fixtures) CreateInvestor(ctx context.Context, email string, groupID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Ivan", "Investor", email, models.RoleInvestor, &groupID)
}

// CreateProject creates a project in the given status. Projects at or past
// the pitch phase get a pitch expiring 30 days from now.
func (f *Fixtures) CreateProject(ctx context.Context, name string, groupID, issuerID primitive.ObjectID, status models.ProjectStatus, vis models.Visibility) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		IssuerID:   issuerID,
		Name:       name,
		NameCI:     text.Fold(name),
		Sector:     "Technology",
		SectorCI:   text.Fold("Technology"),
		Visibility: vis,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status >= models.StatusBeingChecked {
		p.Pitch = &models.Pitch{
			Status:      models.PitchOnGoing,
			PostedDate:  now,
			ExpiredDate: now.AddDate(0, 0, 30),
		}
	}
	f.insert(ctx, "projects", p)
	return p
}

// CreatePledge inserts a pledge; an empty amount inserts a void pledge.
func (f *Fixtures) CreatePledge(ctx context.Context, projectID, investorID primitive.ObjectID, amount string) models.Pledge {
	f.t.Helper()

	p := models.Pledge{
		ID:          primitive.NewObjectID(),
		ProjectID:   projectID,
		InvestorID:  investorID,
		Amount:      amount,
		CreatedByID: investorID,
		Date:        time.Now().UTC(),
	}
	f.insert(ctx, "pledges", p)
	return p
}

// CreateVote inserts a vote; an empty voted value inserts a void vote.
func (f *Fixtures) CreateVote(ctx context.Context, projectID, investorID primitive.ObjectID, voted string) models.Vote {
	f.t.Helper()

	v := models.Vote{
		ID:         primitive.NewObjectID(),
		ProjectID:  projectID,
		InvestorID: investorID,
		Voted:      voted,
		Date:       time.Now().UTC(),
	}
	f.insert(ctx, "votes", v)
	return v
}

// CreateForum creates a forum in groupID; deleted sets the soft-delete flag.
func (f *Fixtures) CreateForum(ctx context.Context, name string, groupID, authorID primitive.ObjectID, deleted bool) models.Forum {
	f.t.Helper()

	now := time.Now().UTC()
	fm := models.Forum{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Name:      name,
		NameCI:    text.Fold(name),
		Deleted:   deleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "forums", fm)
	return fm
}

// CreateThread creates a thread in forumID.
func (f *Fixtures) CreateThread(ctx context.Context, name string, forumID, authorID primitive.ObjectID, deleted bool) models.ForumThread {
	f.t.Helper()

	now := time.Now().UTC()
	th := models.ForumThread{
		ID:        primitive.NewObjectID(),
		ForumID:   forumID,
		AuthorID:  authorID,
		Name:      name,
		Message:   "Thread body",
		Deleted:   deleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "forum_threads", th)
	return th
}

// CreateThreadReply creates a reply in threadID.
func (f *Fixtures) CreateThreadReply(ctx context.Context, threadID, authorID primitive.ObjectID, deleted bool) models.ThreadReply {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.ThreadReply{
		ID:        primitive.NewObjectID(),
		ThreadID:  threadID,
		AuthorID:  authorID,
		Message:   "Reply body",
		Deleted:   deleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "forum_thread_replies", r)
	return r
}
