// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateUsername = errors.New("a group with this username already exists")
	ErrBadStatus         = errors.New("group status must be active or suspended")
	errUsernameNeeded    = errors.New("group username is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupProperties, error) {
	var g models.GroupProperties
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.GroupProperties{}, err
	}
	return g, nil
}

// GetByUsername looks a group up by its URL slug.
func (s *Store) GetByUsername(ctx context.Context, username string) (models.GroupProperties, error) {
	var g models.GroupProperties
	if err := s.c.FindOne(ctx, bson.M{"username": strings.ToLower(strings.TrimSpace(username))}).Decode(&g); err != nil {
		return models.GroupProperties{}, err
	}
	return g, nil
}

// Create inserts a group. New groups start active with restricted project
// visibility unless the caller provided settings.
func (s *Store) Create(ctx context.Context, g models.GroupProperties) (models.GroupProperties, error) {
	g.Username = strings.ToLower(strings.TrimSpace(g.Username))
	if g.Username == "" {
		return models.GroupProperties{}, errUsernameNeeded
	}
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Status = models.GroupActive
	if !g.Settings.ProjectVisibility.Valid() {
		g.Settings.ProjectVisibility = models.VisibilityRestricted
	}
	if g.Settings.PitchExpiryDays <= 0 {
		g.Settings.PitchExpiryDays = models.DefaultPitchExpiryDays
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupProperties{}, ErrDuplicateUsername
		}
		return models.GroupProperties{}, err
	}
	return g, nil
}

// UpdateInfo changes the descriptive fields of a group. An empty name is
// left unchanged; the description can be cleared.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc, website string) error {
	set := bson.M{
		"description": desc,
		"website":     website,
		"updated_at":  time.Now().UTC(),
	}
	if strings.TrimSpace(name) != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	return s.update(ctx, id, set)
}

// UpdateSettings replaces the settings sub-document.
func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, st models.GroupSettings) error {
	if !st.ProjectVisibility.Valid() {
		return errors.New("invalid project visibility")
	}
	if st.PitchExpiryDays <= 0 {
		st.PitchExpiryDays = models.DefaultPitchExpiryDays
	}
	return s.update(ctx, id, bson.M{"settings": st, "updated_at": time.Now().UTC()})
}

// SetLogo records the storage path of the group's logo.
func (s *Store) SetLogo(ctx context.Context, id primitive.ObjectID, path string) error {
	return s.update(ctx, id, bson.M{"logo_path": path, "updated_at": time.Now().UTC()})
}

// SetStatus suspends or reactivates a group.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st models.GroupStatus) error {
	if st != models.GroupActive && st != models.GroupSuspended {
		return ErrBadStatus
	}
	return s.update(ctx, id, bson.M{"status": st, "updated_at": time.Now().UTC()})
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateUsername
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// List returns groups ordered by name. Suspended groups are included only
// when includeSuspended is set.
func (s *Store) List(ctx context.Context, includeSuspended bool) ([]models.GroupProperties, error) {
	filter := bson.M{}
	if !includeSuspended {
		filter["status"] = models.GroupActive
	}
	return s.find(ctx, filter)
}

// ListChildren returns the courses belonging to a university group.
func (s *Store) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.GroupProperties, error) {
	return s.find(ctx, bson.M{"parent_id": parentID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.GroupProperties, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.GroupProperties
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
