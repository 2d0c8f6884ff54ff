// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrAlreadyPending = errors.New("a request to join this group is already pending")
	ErrNotPending     = errors.New("request to join has already been decided")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("join_requests")}
}

// Create files a pending request for userID to join groupID.
func (s *Store) Create(ctx context.Context, groupID, userID primitive.ObjectID) (models.JoinRequest, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID, "status": models.JoinPending})
	if err != nil {
		return models.JoinRequest{}, err
	}
	if n > 0 {
		return models.JoinRequest{}, ErrAlreadyPending
	}
	jr := models.JoinRequest{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		UserID:      userID,
		Status:      models.JoinPending,
		RequestedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, jr); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&jr); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// ListPending returns a group's undecided requests, oldest first.
func (s *Store) ListPending(ctx context.Context, groupID primitive.ObjectID) ([]models.JoinRequest, error) {
	return s.find(ctx, bson.M{"group_id": groupID, "status": models.JoinPending})
}

// ListByUser returns every request a user has made.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.JoinRequest, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.JoinRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.JoinRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decide accepts or rejects a pending request.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, accept bool, decidedBy primitive.ObjectID) (models.JoinRequest, error) {
	st := models.JoinRejected
	if accept {
		st = models.JoinAccepted
	}
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var jr models.JoinRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.JoinPending},
		bson.M{"$set": bson.M{"status": st, "decided_at": now, "decided_by_id": decidedBy}},
		opts).Decode(&jr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return models.JoinRequest{}, getErr
		}
		return models.JoinRequest{}, ErrNotPending
	}
	if err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}
