// internal/app/store/forums/forumstore.go
package forumstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrMessageRequired = errors.New("message is required")
)

// Store covers the forum -> thread -> reply hierarchy. Every level is soft
// deleted; loads select one side of the partition with a models.LoadMode.
type Store struct {
	forums  *mongo.Collection
	threads *mongo.Collection
	replies *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		forums:  db.Collection("forums"),
		threads: db.Collection("forum_threads"),
		replies: db.Collection("forum_thread_replies"),
	}
}

func (s *Store) ForumsCollection() *mongo.Collection  { return s.forums }
func (s *Store) ThreadsCollection() *mongo.Collection { return s.threads }
func (s *Store) RepliesCollection() *mongo.Collection { return s.replies }

/* -------------------------------------------------------------------------- */
/* Forums                                                                     */
/* -------------------------------------------------------------------------- */

func (s *Store) CreateForum(ctx context.Context, groupID, authorID primitive.ObjectID, name, desc string) (models.Forum, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Forum{}, ErrNameRequired
	}
	now := time.Now().UTC()
	f := models.Forum{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		AuthorID:    authorID,
		Name:        name,
		NameCI:      text.Fold(name),
		Description: desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.forums.InsertOne(ctx, f); err != nil {
		return models.Forum{}, err
	}
	return f, nil
}

func (s *Store) GetForum(ctx context.Context, id primitive.ObjectID) (models.Forum, error) {
	var f models.Forum
	if err := s.forums.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return models.Forum{}, err
	}
	return f, nil
}

// ListForums returns a group's forums ordered by name.
func (s *Store) ListForums(ctx context.Context, groupID primitive.ObjectID, mode models.LoadMode) ([]models.Forum, error) {
	var out []models.Forum
	err := find(ctx, s.forums, bson.M{"group_id": groupID, "deleted": mode.Deleted()},
		bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}, &out)
	return out, err
}

func (s *Store) EditForum(ctx context.Context, id primitive.ObjectID, name, desc string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	return setLive(ctx, s.forums, id, bson.M{"name": name, "name_ci": text.Fold(name), "description": desc})
}

func (s *Store) DeleteForum(ctx context.Context, id primitive.ObjectID) error {
	return softDelete(ctx, s.forums, id)
}

/* -------------------------------------------------------------------------- */
/* Threads                                                                    */
/* -------------------------------------------------------------------------- */

func (s *Store) CreateThread(ctx context.Context, forumID, authorID primitive.ObjectID, name, message string) (models.ForumThread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ForumThread{}, ErrNameRequired
	}
	if strings.TrimSpace(message) == "" {
		return models.ForumThread{}, ErrMessageRequired
	}
	now := time.Now().UTC()
	th := models.ForumThread{
		ID:        primitive.NewObjectID(),
		ForumID:   forumID,
		AuthorID:  authorID,
		Name:      name,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.threads.InsertOne(ctx, th); err != nil {
		return models.ForumThread{}, err
	}
	return th, nil
}

func (s *Store) GetThread(ctx context.Context, id primitive.ObjectID) (models.ForumThread, error) {
	var th models.ForumThread
	if err := s.threads.FindOne(ctx, bson.M{"_id": id}).Decode(&th); err != nil {
		return models.ForumThread{}, err
	}
	return th, nil
}

// ListThreads returns a forum's threads, newest first.
func (s *Store) ListThreads(ctx context.Context, forumID primitive.ObjectID, mode models.LoadMode) ([]models.ForumThread, error) {
	var out []models.ForumThread
	err := find(ctx, s.threads, bson.M{"forum_id": forumID, "deleted": mode.Deleted()},
		bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, &out)
	return out, err
}

func (s *Store) EditThread(ctx context.Context, id primitive.ObjectID, name, message string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	return setLive(ctx, s.threads, id, bson.M{"name": name, "message": message})
}

func (s *Store) DeleteThread(ctx context.Context, id primitive.ObjectID) error {
	return softDelete(ctx, s.threads, id)
}

/* -------------------------------------------------------------------------- */
/* Replies                                                                    */
/* -------------------------------------------------------------------------- */

func (s *Store) CreateReply(ctx context.Context, threadID, authorID primitive.ObjectID, message string) (models.ThreadReply, error) {
	if strings.TrimSpace(message) == "" {
		return models.ThreadReply{}, ErrMessageRequired
	}
	now := time.Now().UTC()
	r := models.ThreadReply{
		ID:        primitive.NewObjectID(),
		ThreadID:  threadID,
		AuthorID:  authorID,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.replies.InsertOne(ctx, r); err != nil {
		return models.ThreadReply{}, err
	}
	return r, nil
}

func (s *Store) GetReply(ctx context.Context, id primitive.ObjectID) (models.ThreadReply, error) {
	var r models.ThreadReply
	if err := s.replies.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.ThreadReply{}, err
	}
	return r, nil
}

// ListReplies returns a thread's replies, oldest first.
func (s *Store) ListReplies(ctx context.Context, threadID primitive.ObjectID, mode models.LoadMode) ([]models.ThreadReply, error) {
	var out []models.ThreadReply
	err := find(ctx, s.replies, bson.M{"thread_id": threadID, "deleted": mode.Deleted()},
		bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, &out)
	return out, err
}

func (s *Store) EditReply(ctx context.Context, id primitive.ObjectID, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	return setLive(ctx, s.replies, id, bson.M{"message": message})
}

func (s *Store) DeleteReply(ctx context.Context, id primitive.ObjectID) error {
	return softDelete(ctx, s.replies, id)
}

/* -------------------------------------------------------------------------- */
/* Helpers                                                                    */
/* -------------------------------------------------------------------------- */

func find(ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D, out any) error {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

// setLive updates a record that has not been deleted.
func setLive(ctx context.Context, c *mongo.Collection, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := c.UpdateOne(ctx, bson.M{"_id": id, "deleted": false}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func softDelete(ctx context.Context, c *mongo.Collection, id primitive.ObjectID) error {
	res, err := c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
