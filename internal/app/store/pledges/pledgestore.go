// internal/app/store/pledges/pledgestore.go
package pledgestore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEmptyAmount is returned when a pledge is made with the void amount.
// Withdraw is the only way to void a pledge.
var ErrEmptyAmount = errors.New("pledge amount is required")

// activeFilter excludes void pledges.
var activeFilter = bson.M{"$ne": ""}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pledges")}
}

// Collection exposes the underlying collection for change-stream feeds.
func (s *Store) Collection() *mongo.Collection { return s.c }

// Upsert records an investor's pledge to a project, replacing the amount of
// an existing pledge (including a previously withdrawn one).
func (s *Store) Upsert(ctx context.Context, projectID, investorID, createdBy primitive.ObjectID, amount string) (models.Pledge, error) {
	if amount == "" {
		return models.Pledge{}, ErrEmptyAmount
	}
	now := time.Now().UTC()
	filter := bson.M{"project_id": projectID, "investor_id": investorID}
	update := bson.M{
		"$set": bson.M{
			"amount":        amount,
			"created_by_id": createdBy,
			"date":          now,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p models.Pledge
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		return models.Pledge{}, err
	}
	return p, nil
}

// Withdraw voids the investor's pledge by clearing its amount.
// Returns mongo.ErrNoDocuments when there is no pledge.
func (s *Store) Withdraw(ctx context.Context, projectID, investorID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "investor_id": investorID},
		bson.M{"$set": bson.M{"amount": "", "date": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByProject returns the non-void pledges of a project in pledge order.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Pledge, error) {
	return s.find(ctx, bson.M{"project_id": projectID, "amount": activeFilter})
}

// ListByInvestor returns an investor's non-void pledges.
func (s *Store) ListByInvestor(ctx context.Context, investorID primitive.ObjectID) ([]models.Pledge, error) {
	return s.find(ctx, bson.M{"investor_id": investorID, "amount": activeFilter})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Pledge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Pledge
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Total sums the amounts of pledges. Void and unparsable amounts count as zero.
func Total(pledges []models.Pledge) float64 {
	var sum float64
	for _, p := range pledges {
		if p.Voided() {
			continue
		}
		if f, err := strconv.ParseFloat(p.Amount, 64); err == nil {
			sum += f
		}
	}
	return sum
}
