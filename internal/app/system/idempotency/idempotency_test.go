package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/investwest/internal/app/system/idempotency"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestKey_Deterministic(t *testing.T) {
	pid := primitive.NewObjectID()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := idempotency.Key(pid, "pitch_go_live", at, "u1")
	b := idempotency.Key(pid, "pitch_go_live", at, "u1")
	if a != b {
		t.Error("same inputs should give the same key")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}

	variants := []string{
		idempotency.Key(pid, "pitch_go_live", at, "u2"),
		idempotency.Key(pid, "pitch_rejected", at, "u1"),
		idempotency.Key(pid, "pitch_go_live", at.Add(time.Millisecond), "u1"),
		idempotency.Key(primitive.NewObjectID(), "pitch_go_live", at, "u1"),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d collided with base key", i)
		}
	}
}

func TestKey_NormalizesTimezone(t *testing.T) {
	pid := primitive.NewObjectID()
	utc := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("X", 3600))
	if idempotency.Key(pid, "a", utc, "r") != idempotency.Key(pid, "a", local, "r") {
		t.Error("the same instant in different zones should give the same key")
	}
}

func TestRedisGuard(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := idempotency.OpenRedis(ctx, s.Addr(), 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	g := idempotency.NewRedisGuard(rdb, time.Hour)

	ok, err := g.Acquire(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("first Acquire: ok=%v err=%v", ok, err)
	}
	ok, err = g.Acquire(ctx, "k1")
	if err != nil || ok {
		t.Fatalf("second Acquire should be refused: ok=%v err=%v", ok, err)
	}

	if err := g.Release(ctx, "k1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, _ = g.Acquire(ctx, "k1")
	if !ok {
		t.Error("Acquire after Release should succeed")
	}

	s.FastForward(2 * time.Hour)
	ok, _ = g.Acquire(ctx, "k1")
	if !ok {
		t.Error("claim should expire after ttl")
	}
}

func TestOpenRedis_Failure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := idempotency.OpenRedis(ctx, "not-a-real-host:6379", 0); err == nil {
		t.Fatal("expected error, got nil")
	}
}
