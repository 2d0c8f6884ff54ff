// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("projects", projectsSchema())
	ensure("pledges", pledgesSchema())
	ensure("votes", votesSchema())
	ensure("invited_users", invitedUsersSchema())

	// Discussion, inbox and audit collections have no validator.
	for _, c := range []string{
		"comments", "comment_replies",
		"forums", "forum_threads", "forum_thread_replies",
		"join_requests", "notifications", "activities",
	} {
		ensure(c, nil)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErrMatches(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func intEnum(lo, hi int) bson.M {
	vals := bson.A{}
	for i := lo; i <= hi; i++ {
		vals = append(vals, i)
	}
	return bson.M{"enum": vals}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "role"},
			"properties": bson.M{
				"email":    nonBlank,
				"email_ci": nonBlank,
				"role":     bson.M{"enum": bson.A{"superadmin", "admin", "issuer", "investor"}},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "username", "status"},
			"properties": bson.M{
				"name":     nonBlank,
				"name_ci":  nonBlank,
				"username": nonBlank,
				"status":   intEnum(0, 1),
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "issuer_id", "name", "status", "visibility"},
			"properties": bson.M{
				"group_id":   bson.M{"bsonType": "objectId"},
				"issuer_id":  bson.M{"bsonType": "objectId"},
				"name":       nonBlank,
				"status":     intEnum(0, 8),
				"visibility": intEnum(0, 2),
				"pitch": bson.M{
					"bsonType":   "object",
					"properties": bson.M{"status": intEnum(0, 4)},
				},
				"primary_offer": bson.M{
					"bsonType":   "object",
					"properties": bson.M{"status": intEnum(0, 2)},
				},
			},
		},
	}
}

func pledgesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "investor_id", "amount"},
			"properties": bson.M{
				"project_id":  bson.M{"bsonType": "objectId"},
				"investor_id": bson.M{"bsonType": "objectId"},
				"amount":      bson.M{"bsonType": "string"},
			},
		},
	}
}

func votesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "investor_id", "voted"},
			"properties": bson.M{
				"project_id":  bson.M{"bsonType": "objectId"},
				"investor_id": bson.M{"bsonType": "objectId"},
				"voted":       bson.M{"bsonType": "string"},
			},
		},
	}
}

func invitedUsersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "email", "email_ci", "status", "type"},
			"properties": bson.M{
				"group_id": bson.M{"bsonType": "objectId"},
				"email":    nonBlank,
				"email_ci": nonBlank,
				"status":   intEnum(0, 4),
				"type":     bson.M{"enum": bson.A{"issuer", "investor"}},
			},
		},
	}
}
