package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/normalize"
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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "superadmin"|"admin"|"issuer"|"investor"`)
	errGroupNeeded    = errors.New("admin must have home_group_id")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.FullNameCI = text.Fold(u.FullName())
	u.Email = normalize.Email(u.Email)
	u.EmailCI = text.Fold(u.Email)
	u.Role = normalize.Role(u.Role)

	switch u.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleIssuer, models.RoleInvestor:
	default:
		return models.User{}, errBadRole
	}
	if u.Role == models.RoleAdmin && u.HomeGroupID == nil {
		return models.User{}, errGroupNeeded
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	LinkedIn       string
	ProfilePicture string
}

// UpdateProfile replaces the editable profile fields of a user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	u := models.User{FirstName: normalize.Name(upd.FirstName), LastName: normalize.Name(upd.LastName)}
	set := bson.M{
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"full_name_ci": text.Fold(u.FullName()),
		"linkedin":     upd.LinkedIn,
		"updated_at":   time.Now().UTC(),
	}
	if upd.ProfilePicture != "" {
		set["profile_picture"] = upd.ProfilePicture
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetProfilePicture records the storage path of the user's picture.
func (s *Store) SetProfilePicture(ctx context.Context, id primitive.ObjectID, path string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"profile_picture": path, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetHomeGroup moves a user into groupID. A nil groupID clears membership.
func (s *Store) SetHomeGroup(ctx context.Context, id primitive.ObjectID, groupID *primitive.ObjectID) error {
	var upd bson.M
	if groupID == nil {
		upd = bson.M{"$unset": bson.M{"home_group_id": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}}
	} else {
		upd = bson.M{"$set": bson.M{"home_group_id": *groupID, "updated_at": time.Now().UTC()}}
	}
	_, err := s.c.UpdateByID(ctx, id, upd)
	return err
}

// ListByGroup returns users whose home group is groupID, optionally
// restricted to one role, ordered by name.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, role string) ([]models.User, error) {
	filter := bson.M{"home_group_id": groupID}
	if role != "" {
		filter["role"] = normalize.Role(role)
	}
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profiles resolves user ids to their public profile. Unknown ids are
// absent from the result.
func (s *Store) Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserProfile, error) {
	out := make(map[primitive.ObjectID]*models.UserProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.Profile()
	}
	return out, cur.Err()
}

// EnsureSuperAdmin creates a superadmin for email, or promotes the existing
// account. It reports whether anything changed.
func (s *Store) EnsureSuperAdmin(ctx context.Context, email string) (bool, error) {
	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleSuperAdmin && existing.HomeGroupID == nil {
			return false, nil
		}
		_, err := s.c.UpdateByID(ctx, existing.ID, bson.M{
			"$set":   bson.M{"role": models.RoleSuperAdmin, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"home_group_id": ""},
		})
		return err == nil, err
	case errors.Is(err, mongo.ErrNoDocuments):
		_, err := s.Create(ctx, models.User{
			FirstName: "Super",
			LastName:  "Admin",
			Email:     email,
			Role:      models.RoleSuperAdmin,
		})
		return err == nil, err
	default:
		return false, err
	}
}
