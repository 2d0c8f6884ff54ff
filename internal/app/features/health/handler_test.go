package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/investwest/internal/app/features/health"
	"github.com/dalemusser/investwest/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func serve(t *testing.T, h *health.Handler) (int, response) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	code, resp := serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("got %+v", resp)
	}
	if resp.Redis != "" {
		t.Errorf("redis should be omitted when not configured, got %q", resp.Redis)
	}
}

func TestServe_RedisDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	handler := health.NewHandler(db.Client(), rdb, zap.NewNop())
	if _, resp := serve(t, handler); resp.Redis != "connected" {
		t.Fatalf("redis = %q, want connected", resp.Redis)
	}

	mr.Close()
	code, resp := serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("redis outage should not fail health, got %d", code)
	}
	if resp.Status != "degraded" || resp.Redis != "disconnected" {
		t.Errorf("got %+v", resp)
	}
}
