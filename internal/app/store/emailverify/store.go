// Package emailverify stores the one-time codes and links used for email
// sign-in. Codes are kept only as bcrypt hashes and expire through a TTL
// index.
package emailverify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultExpiry = 10 * time.Minute
	MaxAttempts   = 5
	bcryptCost    = 10
	tokenBytes    = 32
)

var (
	ErrNotFound        = errors.New("sign-in code not found or expired")
	ErrInvalidCode     = errors.New("invalid sign-in code")
	ErrTooManyAttempts = errors.New("too many sign-in attempts")
)

// Challenge is one pending sign-in for a user. A new challenge replaces
// any earlier one.
type Challenge struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	CodeHash  string             `bson:"code_hash"`
	Token     string             `bson:"token"`
	Attempts  int                `bson:"attempts"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New uses DefaultExpiry when expiry is not positive.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("signin_challenges"), expiry: expiry}
}

func (s *Store) Expiry() time.Duration { return s.expiry }

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_signin_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("uniq_signin_token").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("uniq_signin_user").SetUnique(true),
		},
	})
	return err
}

// Issue replaces the user's pending challenge and returns the plain code
// and link token. Only the code hash is stored.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID) (code, token string, err error) {
	code, err = newCode()
	if err != nil {
		return "", "", err
	}
	token, err = newToken()
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("hash code: %w", err)
	}

	now := time.Now().UTC()
	ch := Challenge{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CodeHash:  string(hash),
		Token:     token,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	_, err = s.c.ReplaceOne(ctx, bson.M{"user_id": userID}, ch, options.Replace().SetUpsert(true))
	if err != nil {
		return "", "", fmt.Errorf("store challenge: %w", err)
	}
	return code, token, nil
}

// VerifyCode consumes the user's challenge when code matches. Every call
// counts as an attempt; after MaxAttempts the challenge is unusable.
func (s *Store) VerifyCode(ctx context.Context, userID primitive.ObjectID, code string) error {
	var ch Challenge
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "expires_at": bson.M{"$gt": time.Now().UTC()}},
		bson.M{"$inc": bson.M{"attempts": 1}},
	).Decode(&ch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ch.Attempts >= MaxAttempts {
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		return ErrInvalidCode
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": ch.ID})
	return err
}

// ConsumeToken exchanges a link token for the user it was issued to.
func (s *Store) ConsumeToken(ctx context.Context, token string) (primitive.ObjectID, error) {
	var ch Challenge
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&ch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return ch.UserID, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
