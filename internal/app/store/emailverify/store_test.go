package emailverify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/investwest/internal/app/store/emailverify"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueAndVerifyCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := emailverify.New(db, 0)
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	if s.Expiry() != emailverify.DefaultExpiry {
		t.Errorf("Expiry = %v", s.Expiry())
	}

	user := primitive.NewObjectID()
	code, _, err := s.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code %q is not 6 digits", code)
	}

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := s.VerifyCode(ctx, user, wrong); !errors.Is(err, emailverify.ErrInvalidCode) {
		t.Errorf("wrong code: err = %v", err)
	}
	if err := s.VerifyCode(ctx, user, code); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if err := s.VerifyCode(ctx, user, code); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("reused code: err = %v", err)
	}
}

func TestIssueReplacesEarlierChallenge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := emailverify.New(db, time.Minute)
	user := primitive.NewObjectID()
	_, first, err := s.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, second, err := s.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue again: %v", err)
	}

	if _, err := s.ConsumeToken(ctx, first); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("stale token: err = %v", err)
	}
	got, err := s.ConsumeToken(ctx, second)
	if err != nil || got != user {
		t.Fatalf("ConsumeToken = %v, %v", got, err)
	}
	if _, err := s.ConsumeToken(ctx, second); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("token reused: err = %v", err)
	}
}

func TestVerifyCode_AttemptLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := emailverify.New(db, 0)
	user := primitive.NewObjectID()
	code, _, err := s.Issue(ctx, user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < emailverify.MaxAttempts; i++ {
		_ = s.VerifyCode(ctx, user, wrong)
	}
	if err := s.VerifyCode(ctx, user, code); !errors.Is(err, emailverify.ErrTooManyAttempts) {
		t.Errorf("after limit: err = %v", err)
	}
}
