// internal/app/store/comments/commentstore.go
package commentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrEmptyBody = errors.New("comment body is required")

// Store covers comments and their replies.
type Store struct {
	comments *mongo.Collection
	replies  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		comments: db.Collection("comments"),
		replies:  db.Collection("comment_replies"),
	}
}

// Collection exposes the comments collection for change-stream feeds.
func (s *Store) Collection() *mongo.Collection { return s.comments }

// RepliesCollection exposes the replies collection for change-stream feeds.
func (s *Store) RepliesCollection() *mongo.Collection { return s.replies }

func (s *Store) Create(ctx context.Context, projectID, authorID primitive.ObjectID, body string) (models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return models.Comment{}, ErrEmptyBody
	}
	now := time.Now().UTC()
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.comments.InsertOne(ctx, c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Comment, error) {
	var c models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// ListByProject returns a project's comments oldest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.comments.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reply adds a reply to a comment.
func (s *Store) Reply(ctx context.Context, comment models.Comment, authorID primitive.ObjectID, body string) (models.CommentReply, error) {
	if strings.TrimSpace(body) == "" {
		return models.CommentReply{}, ErrEmptyBody
	}
	now := time.Now().UTC()
	r := models.CommentReply{
		ID:        primitive.NewObjectID(),
		CommentID: comment.ID,
		ProjectID: comment.ProjectID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.replies.InsertOne(ctx, r); err != nil {
		return models.CommentReply{}, err
	}
	return r, nil
}

func (s *Store) GetReply(ctx context.Context, id primitive.ObjectID) (models.CommentReply, error) {
	var r models.CommentReply
	if err := s.replies.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.CommentReply{}, err
	}
	return r, nil
}

// EditReply changes the body of a live reply.
func (s *Store) EditReply(ctx context.Context, id primitive.ObjectID, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	res, err := s.replies.UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"body": body, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteReply soft deletes a reply.
func (s *Store) DeleteReply(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.replies.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListReplies returns the replies of a comment on one side of the soft-delete partition.
func (s *Store) ListReplies(ctx context.Context, commentID primitive.ObjectID, mode models.LoadMode) ([]models.CommentReply, error) {
	return s.findReplies(ctx, bson.M{"comment_id": commentID, "deleted": mode.Deleted()})
}

// ListProjectReplies returns every reply under a project's comments.
func (s *Store) ListProjectReplies(ctx context.Context, projectID primitive.ObjectID, mode models.LoadMode) ([]models.CommentReply, error) {
	return s.findReplies(ctx, bson.M{"project_id": projectID, "deleted": mode.Deleted()})
}

func (s *Store) findReplies(ctx context.Context, filter bson.M) ([]models.CommentReply, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.replies.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CommentReply
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
