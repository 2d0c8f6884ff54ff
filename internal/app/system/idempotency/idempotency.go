// Package idempotency derives deterministic step keys and guards effect
// steps (notifications, emails, activity rows) against double execution
// when a lifecycle operation is retried.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const keyPrefix = "investwest:idem:"

// Key returns sha256(projectID|action|basis|recipient) as hex. basis is the
// project's timestamp before the transition, so distinct transitions produce
// distinct keys while a retried one does not.
func Key(projectID primitive.ObjectID, action string, basis time.Time, recipient string) string {
	return hash(projectID.Hex(), action, basis.UTC().Format(time.RFC3339Nano), recipient)
}

func hash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Guard claims a key before a side effect is performed.
type Guard interface {
	// Acquire returns true if the caller is the first to claim key.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release gives the key back so a later retry may perform the step.
	Release(ctx context.Context, key string) error
}

// RedisGuard implements Guard with SET NX and a TTL.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard creates a guard whose claims expire after ttl.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, keyPrefix+key, time.Now().UTC().Unix(), g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, keyPrefix+key).Err()
}

// NopGuard always grants the claim. Used when Redis is not configured; the
// unique idempotency_key index in Mongo still prevents duplicate rows.
type NopGuard struct{}

func (NopGuard) Acquire(context.Context, string) (bool, error) { return true, nil }
func (NopGuard) Release(context.Context, string) error         { return nil }

// OpenRedis connects and pings a Redis server.
func OpenRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}
