package invitations_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/features/invitations"
	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	invitestore "github.com/dalemusser/investwest/internal/app/store/invitations"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.uber.org/zap"
)

type queue struct {
	mu   sync.Mutex
	jobs []notify.Job
}

func (q *queue) Enqueue(_ context.Context, job notify.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type env struct {
	h     *invitations.Handler
	q     *queue
	fx    *testutil.Fixtures
	group models.GroupProperties
	admin models.User
}

func newEnv(t *testing.T) (env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Valley Angels")
	q := &queue{}
	audit := auditlog.New(activitystore.New(db), logger, auditlog.Config{})
	return env{
		h:     invitations.NewHandler(db, audit, q, "https://invest.test", uierrors.NewErrorLogger(logger), logger),
		q:     q,
		fx:    fx,
		group: g,
		admin: fx.CreateAdmin(ctx, "admin@v.test", g.ID),
	}, ctx
}

func req(method string, body any, u *models.User, params ...string) *http.Request {
	var r *http.Request
	if u == nil {
		r = testutil.NewJSONRequest(method, "/", body)
	} else {
		r = testutil.NewAuthenticatedRequest(method, "/", body, testutil.FromUser(*u))
	}
	for i := 0; i+1 < len(params); i += 2 {
		r = testutil.WithChiURLParam(r, params[i], params[i+1])
	}
	return r
}

func (e env) invite(t *testing.T, ctx context.Context, email string) (models.InvitedUser, string) {
	t.Helper()
	inv, token, err := e.h.Invites.Invite(ctx, invitestore.InviteInput{
		GroupID: e.group.ID, InvitedBy: e.admin.ID, Email: email, FirstName: "Nia", Type: models.RoleInvestor,
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	return inv, token
}

func TestHandleInvite_QueuesEmail(t *testing.T) {
	e, _ := newEnv(t)
	body := map[string]any{
		"group_id": e.group.ID.Hex(), "email": "nia@v.test", "first_name": "Nia", "type": "investor",
	}

	rec := testutil.NewRecorder()
	e.h.HandleInvite(rec, req("POST", body, &e.admin))
	rec.AssertStatus(t, http.StatusCreated)
	var inv models.InvitedUser
	rec.DecodeJSON(t, &inv)
	if inv.Status != models.InviteNotRegistered {
		t.Errorf("status = %v", inv.Status)
	}
	if len(e.q.jobs) != 1 || e.q.jobs[0].Email == nil {
		t.Fatalf("jobs = %+v", e.q.jobs)
	}
	mail := e.q.jobs[0].Email
	if mail.To != "nia@v.test" || !strings.Contains(mail.TextBody, "https://invest.test/invitations/"+inv.ID.Hex()+"/accept?token=") {
		t.Errorf("email = %+v", mail)
	}
}

func TestHandleInvite_Validation(t *testing.T) {
	e, ctx := newEnv(t)
	investor := e.fx.CreateInvestor(ctx, "angel@v.test", e.group.ID)

	rec := testutil.NewRecorder()
	e.h.HandleInvite(rec, req("POST", map[string]any{"group_id": e.group.ID.Hex(), "email": "x@v.test", "type": "investor"}, &investor))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleInvite(rec, req("POST", map[string]any{"group_id": e.group.ID.Hex(), "email": "x@v.test", "type": "admin"}, &e.admin))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestAcceptLeaveAndKickOut(t *testing.T) {
	e, ctx := newEnv(t)
	inv, token := e.invite(t, ctx, "nia@v.test")
	nia := e.fx.CreateUser(ctx, "Nia", "Jones", "nia@v.test", models.RoleInvestor, nil)
	stranger := e.fx.CreateUser(ctx, "Sam", "Else", "sam@v.test", models.RoleInvestor, nil)

	rec := testutil.NewRecorder()
	e.h.HandleAccept(rec, req("POST", map[string]any{"token": token}, &stranger, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleAccept(rec, req("POST", map[string]any{"token": "wrong"}, &nia, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleAccept(rec, req("POST", map[string]any{"token": token}, &nia, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	u, err := e.h.Users.GetByID(ctx, nia.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.HomeGroupID == nil || *u.HomeGroupID != e.group.ID {
		t.Fatalf("home group = %v", u.HomeGroupID)
	}

	// Only an admin can remove a member.
	rec = testutil.NewRecorder()
	e.h.HandleKickOut(rec, req("POST", nil, &nia, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleKickOut(rec, req("POST", nil, &e.admin, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	var after models.InvitedUser
	rec.DecodeJSON(t, &after)
	if after.Status != models.InviteKickedOut {
		t.Errorf("status = %v", after.Status)
	}
	u, _ = e.h.Users.GetByID(ctx, nia.ID)
	if u.HomeGroupID != nil {
		t.Errorf("home group not cleared")
	}

	// Kicked out members cannot leave or be re-invited.
	rec = testutil.NewRecorder()
	e.h.HandleLeave(rec, req("POST", nil, &nia, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusConflict)

	rec = testutil.NewRecorder()
	e.h.HandleInvite(rec, req("POST", map[string]any{"group_id": e.group.ID.Hex(), "email": "nia@v.test", "type": "investor"}, &e.admin))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestLeave(t *testing.T) {
	e, ctx := newEnv(t)
	inv, token := e.invite(t, ctx, "lee@v.test")
	lee := e.fx.CreateUser(ctx, "Lee", "Hart", "lee@v.test", models.RoleInvestor, nil)
	if _, err := e.h.Invites.Accept(ctx, inv.ID, token, lee.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	rec := testutil.NewRecorder()
	e.h.HandleLeave(rec, req("POST", nil, &e.admin, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusConflict)

	rec = testutil.NewRecorder()
	e.h.HandleLeave(rec, req("POST", nil, &lee, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
}

func TestDecline_TokenOnly(t *testing.T) {
	e, ctx := newEnv(t)
	inv, token := e.invite(t, ctx, "dee@v.test")

	rec := testutil.NewRecorder()
	e.h.HandleDecline(rec, req("POST", map[string]any{"token": "nope"}, nil, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	e.h.HandleDecline(rec, req("POST", map[string]any{"token": token}, nil, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	e.h.HandleDecline(rec, req("POST", map[string]any{"token": token}, nil, "inviteID", inv.ID.Hex()))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeList(t *testing.T) {
	e, ctx := newEnv(t)
	e.invite(t, ctx, "a@v.test")
	e.invite(t, ctx, "b@v.test")

	var out struct {
		Invitations []models.InvitedUser `json:"invitations"`
	}
	rec := testutil.NewRecorder()
	e.h.ServeList(rec, req("GET", nil, &e.admin))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &out)
	if len(out.Invitations) != 2 {
		t.Errorf("invitations = %d, want 2", len(out.Invitations))
	}

	r := req("GET", nil, &e.admin)
	r.URL.RawQuery = "status=9"
	rec = testutil.NewRecorder()
	e.h.ServeList(rec, r)
	rec.AssertStatus(t, http.StatusBadRequest)
}
