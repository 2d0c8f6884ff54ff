// internal/app/store/invitations/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/normalize"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost for hashing invitation tokens.
const BcryptCost = 10

var (
	// ErrInvalidToken is returned when the presented token does not match.
	ErrInvalidToken = errors.New("invalid invitation token")
	// ErrInvalidInviteState is returned when the invitation is not in a state
	// that allows the requested change.
	ErrInvalidInviteState = errors.New("invitation state does not allow this change")
	// ErrAlreadyMember is returned when re-inviting an active member.
	ErrAlreadyMember = errors.New("user is already an active member of this group")
	errBadType       = errors.New(`invitation type must be "issuer" or "investor"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invited_users")}
}

// InviteInput describes who is being invited.
type InviteInput struct {
	GroupID   primitive.ObjectID
	InvitedBy primitive.ObjectID
	Email     string
	FirstName string
	LastName  string
	Type      string
}

// Invite creates or refreshes the invitation of an email address to a
// group and returns it with a fresh plain-text token. The token is only
// stored hashed. Declined and departed users may be invited again; kicked
// out users may not.
func (s *Store) Invite(ctx context.Context, in InviteInput) (models.InvitedUser, string, error) {
	typ := normalize.Role(in.Type)
	if typ != models.RoleIssuer && typ != models.RoleInvestor {
		return models.InvitedUser{}, "", errBadType
	}
	email := normalize.Email(in.Email)
	emailCI := text.Fold(email)

	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), BcryptCost)
	if err != nil {
		return models.InvitedUser{}, "", err
	}
	now := time.Now().UTC()

	var existing models.InvitedUser
	err = s.c.FindOne(ctx, bson.M{"group_id": in.GroupID, "email_ci": emailCI}).Decode(&existing)
	switch {
	case err == nil:
		switch existing.Status {
		case models.InviteActive:
			return models.InvitedUser{}, "", ErrAlreadyMember
		case models.InviteKickedOut:
			return models.InvitedUser{}, "", ErrInvalidInviteState
		}
		set := bson.M{
			"first_name":    normalize.Name(in.FirstName),
			"last_name":     normalize.Name(in.LastName),
			"type":          typ,
			"status":        models.InviteNotRegistered,
			"invited_by_id": in.InvitedBy,
			"token_hash":    string(hash),
			"invited_at":    now,
			"updated_at":    now,
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var inv models.InvitedUser
		if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set}, opts).Decode(&inv); err != nil {
			return models.InvitedUser{}, "", err
		}
		return inv, token, nil
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return models.InvitedUser{}, "", err
	}

	inv := models.InvitedUser{
		ID:          primitive.NewObjectID(),
		GroupID:     in.GroupID,
		Email:       email,
		EmailCI:     emailCI,
		FirstName:   normalize.Name(in.FirstName),
		LastName:    normalize.Name(in.LastName),
		Type:        typ,
		Status:      models.InviteNotRegistered,
		InvitedByID: in.InvitedBy,
		TokenHash:   string(hash),
		InvitedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		return models.InvitedUser{}, "", err
	}
	return inv, token, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.InvitedUser, error) {
	var inv models.InvitedUser
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		return models.InvitedUser{}, err
	}
	return inv, nil
}

// ListByGroup returns a group's invitations, optionally restricted to statuses.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, statuses ...models.InviteStatus) ([]models.InvitedUser, error) {
	filter := bson.M{"group_id": groupID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "invited_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.InvitedUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accept verifies the token and activates the invitation for userID.
func (s *Store) Accept(ctx context.Context, id primitive.ObjectID, token string, userID primitive.ObjectID) (models.InvitedUser, error) {
	if err := s.verify(ctx, id, token); err != nil {
		return models.InvitedUser{}, err
	}
	now := time.Now().UTC()
	return s.transition(ctx, id,
		[]models.InviteStatus{models.InviteNotRegistered, models.InviteDeclinedToRegister},
		bson.M{"status": models.InviteActive, "official_user_id": userID, "joined_at": now})
}

// Decline records that the invitee does not want to join.
func (s *Store) Decline(ctx context.Context, id primitive.ObjectID, token string) (models.InvitedUser, error) {
	if err := s.verify(ctx, id, token); err != nil {
		return models.InvitedUser{}, err
	}
	return s.transition(ctx, id,
		[]models.InviteStatus{models.InviteNotRegistered},
		bson.M{"status": models.InviteDeclinedToRegister})
}

// Leave is a member leaving the group voluntarily.
func (s *Store) Leave(ctx context.Context, id, userID primitive.ObjectID) (models.InvitedUser, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return models.InvitedUser{}, err
	}
	if inv.OfficialUserID == nil || *inv.OfficialUserID != userID {
		return models.InvitedUser{}, ErrInvalidInviteState
	}
	return s.transition(ctx, id, []models.InviteStatus{models.InviteActive}, bson.M{"status": models.InviteLeft})
}

// KickOut removes an active member from the group.
func (s *Store) KickOut(ctx context.Context, id primitive.ObjectID) (models.InvitedUser, error) {
	return s.transition(ctx, id, []models.InviteStatus{models.InviteActive}, bson.M{"status": models.InviteKickedOut})
}

func (s *Store) verify(ctx context.Context, id primitive.ObjectID, token string) error {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(token)) != nil {
		return ErrInvalidToken
	}
	return nil
}

// transition applies set only when the invitation is in one of from.
func (s *Store) transition(ctx context.Context, id primitive.ObjectID, from []models.InviteStatus, set bson.M) (models.InvitedUser, error) {
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var inv models.InvitedUser
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": set}, opts).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return models.InvitedUser{}, getErr
		}
		return models.InvitedUser{}, ErrInvalidInviteState
	}
	if err != nil {
		return models.InvitedUser{}, err
	}
	return inv, nil
}
