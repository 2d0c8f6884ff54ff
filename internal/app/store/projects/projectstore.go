// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KeyKind names the single server-side predicate of a project query.
type KeyKind int

const (
	ByAll KeyKind = iota
	ByVisibility
	ByGroup
	ByIssuer
	ByStatusRange
)

// Key is the one indexed predicate a project query pushes to the store.
// Everything else is filtered in memory by the caller.
type Key struct {
	Kind       KeyKind
	Visibility models.Visibility
	ID         primitive.ObjectID // group or issuer
	StatusFrom models.ProjectStatus
	StatusTo   models.ProjectStatus // inclusive
}

// Filter renders the key as a Mongo filter.
func (k Key) Filter() bson.M {
	switch k.Kind {
	case ByVisibility:
		return bson.M{"visibility": k.Visibility}
	case ByGroup:
		return bson.M{"group_id": k.ID}
	case ByIssuer:
		return bson.M{"issuer_id": k.ID}
	case ByStatusRange:
		return bson.M{"status": bson.M{"$gte": k.StatusFrom, "$lte": k.StatusTo}}
	}
	return bson.M{}
}

var ErrNameRequired = errors.New("project name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Collection exposes the underlying collection for change-stream feeds.
func (s *Store) Collection() *mongo.Collection { return s.c }

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Create inserts a new draft project.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.Name == "" {
		return models.Project{}, ErrNameRequired
	}
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Status = models.StatusDraft
	p.Pitch = nil
	p.PrimaryOffer = nil
	p.TemporarilyClosed = false
	p.NameCI = text.Fold(p.Name)
	p.SectorCI = text.Fold(p.Sector)
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Replace writes the whole record, last write wins. UpdatedAt is stamped
// here and returned so callers can derive idempotency keys from it.
// Returns mongo.ErrNoDocuments when the project does not exist.
func (s *Store) Replace(ctx context.Context, p models.Project) (models.Project, error) {
	p.NameCI = text.Fold(p.Name)
	p.SectorCI = text.Fold(p.Sector)
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return models.Project{}, err
	}
	if res.MatchedCount == 0 {
		return models.Project{}, mongo.ErrNoDocuments
	}
	return p, nil
}

// Find returns at most limit projects matching key, most recently updated
// first. A limit <= 0 means no ceiling.
func (s *Store) Find(ctx context.Context, key Key, limit int64) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, key.Filter(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindExpiredPitches returns projects still in the pitch phase whose pitch
// expired before now.
func (s *Store) FindExpiredPitches(ctx context.Context, now time.Time, limit int64) ([]models.Project, error) {
	filter := bson.M{
		"status":             models.StatusPitchPhase,
		"pitch.expired_date": bson.M{"$lt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "pitch.expired_date", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a draft project. Projects past draft are never deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.StatusDraft})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
