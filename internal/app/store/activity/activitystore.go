// internal/app/store/activity/activitystore.go
package activitystore

import (
	"context"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Action names recorded in the activity log.
const (
	ActionPitchDecided       = "pitch_decided"
	ActionAdmissionDecided   = "admission_decided"
	ActionOfferDecided       = "offer_decided"
	ActionOfferCreated       = "offer_created"
	ActionClosureToggled     = "closure_toggled"
	ActionPitchRevived       = "pitch_revived"
	ActionSubmittedForReview = "submitted_for_review"
	ActionPitchExpired       = "pitch_expired"
	ActionOfferClosed        = "offer_closed"
	ActionProjectCreated     = "project_created"
	ActionProjectEdited      = "project_edited"
	ActionGroupUpdated       = "group_updated"
	ActionGroupStatusChanged = "group_status_changed"
	ActionUserInvited        = "user_invited"
	ActionMemberRemoved      = "member_removed"
	ActionJoinDecided        = "join_decided"
)

// Store manages activity records.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activities")}
}

// Record appends an activity. A repeated idempotency key is not an error:
// the earlier record stands and inserted is false.
func (s *Store) Record(ctx context.Context, a models.Activity) (inserted bool, err error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Time.IsZero() {
		a.Time = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if a.IdempotencyKey != "" && wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByUser retrieves recent activities performed by a user.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Activity, error) {
	return s.find(ctx, bson.M{"user_id": userID}, limit)
}

// ListBySubject retrieves recent activities about one user, group or project.
func (s *Store) ListBySubject(ctx context.Context, subject models.Subject, limit int64) ([]models.Activity, error) {
	return s.find(ctx, bson.M{"subject.kind": subject.Kind, "subject.id": subject.ID}, limit)
}

// ListByUserInTimeRange retrieves a user's activities within a time range, oldest first.
func (s *Store) ListByUserInTimeRange(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]models.Activity, error) {
	filter := bson.M{
		"user_id": userID,
		"time": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
