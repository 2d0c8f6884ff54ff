package profile_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/features/profile"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.uber.org/zap"
)

func TestServeMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Me Angels")
	u := fx.CreateInvestor(ctx, "me@m.test", g.ID)
	h := profile.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	var out struct {
		SignedIn bool         `json:"signed_in"`
		User     *models.User `json:"user"`
	}

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewJSONRequest("GET", "/", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &out)
	if out.SignedIn || out.User != nil {
		t.Errorf("anonymous = %+v", out)
	}

	rec = testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest("GET", "/", nil, testutil.FromUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &out)
	if !out.SignedIn || out.User == nil || out.User.ID != u.ID {
		t.Errorf("signed in = %+v", out)
	}
}

func TestHandleUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Edit Angels")
	u := fx.CreateIssuer(ctx, "edit@m.test", g.ID)
	h := profile.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PATCH", "/", map[string]string{
		"first_name": "  grace ",
		"last_name":  "Hopper",
		"linkedin":   "ftp://nope",
	}, testutil.FromUser(u)))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PATCH", "/", map[string]string{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"linkedin":   "https://linkedin.com/in/grace",
	}, testutil.FromUser(u)))
	rec.AssertStatus(t, http.StatusOK)

	got, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName() != "Grace Hopper" || got.LinkedIn != "https://linkedin.com/in/grace" {
		t.Errorf("user = %+v", got)
	}
}

func TestServeLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "History Angels")
	u := fx.CreateInvestor(ctx, "h@m.test", g.ID)
	h := profile.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	if err := h.Logins.Record(ctx, httptest.NewRequest("POST", "/login/verify", nil), u.ID, models.SignInCode); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeLogins(rec, testutil.NewAuthenticatedRequest("GET", "/logins", nil, testutil.FromUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Logins []models.LoginRecord `json:"logins"`
	}
	rec.DecodeJSON(t, &out)
	if len(out.Logins) != 1 || out.Logins[0].Method != models.SignInCode {
		t.Errorf("logins = %+v", out.Logins)
	}
}
