// internal/app/store/votes/votestore.go
package votestore

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

var ErrEmptyVote = errors.New("vote value is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("votes")}
}

// Collection exposes the underlying collection for change-stream feeds.
func (s *Store) Collection() *mongo.Collection { return s.c }

// Cast records or changes an investor's vote on a project.
func (s *Store) Cast(ctx context.Context, projectID, investorID primitive.ObjectID, voted string) (models.Vote, error) {
	if voted == "" {
		return models.Vote{}, ErrEmptyVote
	}
	filter := bson.M{"project_id": projectID, "investor_id": investorID}
	update := bson.M{
		"$set":         bson.M{"voted": voted, "date": time.Now().UTC()},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var v models.Vote
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v); err != nil {
		return models.Vote{}, err
	}
	return v, nil
}

// Withdraw voids the investor's vote. Returns mongo.ErrNoDocuments when
// there is no vote.
func (s *Store) Withdraw(ctx context.Context, projectID, investorID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "investor_id": investorID},
		bson.M{"$set": bson.M{"voted": "", "date": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByProject returns the non-void votes of a project.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID, "voted": bson.M{"$ne": ""}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Vote
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of non-void votes on a project.
func (s *Store) Count(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"project_id": projectID, "voted": bson.M{"$ne": ""}})
}
