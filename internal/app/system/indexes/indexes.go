// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"groups", groupsIndexes()},
		{"projects", projectsIndexes()},
		{"pledges", pledgesIndexes()},
		{"votes", votesIndexes()},
		{"comments", commentsIndexes()},
		{"comment_replies", commentRepliesIndexes()},
		{"forums", forumsIndexes()},
		{"forum_threads", forumThreadsIndexes()},
		{"forum_thread_replies", threadRepliesIndexes()},
		{"invited_users", invitedUsersIndexes()},
		{"join_requests", joinRequestsIndexes()},
		{"notifications", notificationsIndexes()},
		{"activities", activitiesIndexes()},
	}

	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listExisting(ctx, coll)

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolVal(desiredUnique) == boolVal(ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Name or uniqueness differs: drop and recreate with the desired options.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(desiredUnique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(desiredUnique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Desired index sets                                                         */
/* -------------------------------------------------------------------------- */

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniqueIdx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

// sparseUniqueIdx ignores documents without the key (idempotency keys are optional).
func sparseUniqueIdx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true).SetSparse(true)}
}

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniqueIdx("uniq_users_email_ci", bson.D{{Key: "email_ci", Value: 1}}),
		idx("idx_users_home_group_role", bson.D{{Key: "home_group_id", Value: 1}, {Key: "role", Value: 1}}),
		idx("idx_users_name_ci", bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
	}
}

func groupsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniqueIdx("uniq_groups_username", bson.D{{Key: "username", Value: 1}}),
		idx("idx_groups_name_ci", bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		idx("idx_groups_parent", bson.D{{Key: "parent_id", Value: 1}}),
	}
}

func projectsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_projects_visibility", bson.D{{Key: "visibility", Value: 1}, {Key: "updated_at", Value: -1}}),
		idx("idx_projects_group", bson.D{{Key: "group_id", Value: 1}, {Key: "updated_at", Value: -1}}),
		idx("idx_projects_issuer", bson.D{{Key: "issuer_id", Value: 1}, {Key: "updated_at", Value: -1}}),
		idx("idx_projects_status", bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}}),
		idx("idx_projects_pitch_expiry", bson.D{{Key: "status", Value: 1}, {Key: "pitch.expired_date", Value: 1}}),
	}
}

func pledgesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_pledges_project", bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: 1}}),
		uniqueIdx("uniq_pledges_project_investor", bson.D{{Key: "project_id", Value: 1}, {Key: "investor_id", Value: 1}}),
		idx("idx_pledges_investor", bson.D{{Key: "investor_id", Value: 1}}),
	}
}

func votesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_votes_project", bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: 1}}),
		uniqueIdx("uniq_votes_project_investor", bson.D{{Key: "project_id", Value: 1}, {Key: "investor_id", Value: 1}}),
	}
}

func commentsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_comments_project", bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}}),
	}
}

func commentRepliesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_comment_replies_comment", bson.D{{Key: "comment_id", Value: 1}, {Key: "deleted", Value: 1}, {Key: "created_at", Value: 1}}),
		idx("idx_comment_replies_project", bson.D{{Key: "project_id", Value: 1}}),
	}
}

func forumsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_forums_group", bson.D{{Key: "group_id", Value: 1}, {Key: "deleted", Value: 1}, {Key: "name_ci", Value: 1}}),
	}
}

func forumThreadsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_threads_forum", bson.D{{Key: "forum_id", Value: 1}, {Key: "deleted", Value: 1}, {Key: "created_at", Value: -1}}),
	}
}

func threadRepliesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_thread_replies_thread", bson.D{{Key: "thread_id", Value: 1}, {Key: "deleted", Value: 1}, {Key: "created_at", Value: 1}}),
	}
}

func invitedUsersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniqueIdx("uniq_invited_group_email", bson.D{{Key: "group_id", Value: 1}, {Key: "email_ci", Value: 1}}),
		idx("idx_invited_official_user", bson.D{{Key: "official_user_id", Value: 1}}),
	}
}

func joinRequestsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_join_requests_group_status", bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}}),
		idx("idx_join_requests_user", bson.D{{Key: "user_id", Value: 1}}),
	}
}

func notificationsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_notifications_recipient", bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}),
		sparseUniqueIdx("uniq_notifications_idem", bson.D{{Key: "idempotency_key", Value: 1}}),
	}
}

func activitiesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_activities_user", bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}),
		idx("idx_activities_subject", bson.D{{Key: "subject.kind", Value: 1}, {Key: "subject.id", Value: 1}, {Key: "time", Value: -1}}),
		sparseUniqueIdx("uniq_activities_idem", bson.D{{Key: "idempotency_key", Value: 1}}),
	}
}
