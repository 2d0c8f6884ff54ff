package notifications_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/features/notifications"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestInbox(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Inbox Angels")
	me := fx.CreateInvestor(ctx, "me@i.test", g.ID)
	you := fx.CreateInvestor(ctx, "you@i.test", g.ID)
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	var mine []models.Notification
	for i := 0; i < 3; i++ {
		n := models.Notification{
			ID:          primitive.NewObjectID(),
			RecipientID: me.ID,
			Kind:        "project_decision",
			Message:     "hello",
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if _, err := h.Inbox.Insert(ctx, n); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		mine = append(mine, n)
	}

	req := func(u models.User, method string, params ...string) *http.Request {
		r := testutil.NewAuthenticatedRequest(method, "/", nil, testutil.FromUser(u))
		for i := 0; i+1 < len(params); i += 2 {
			r = testutil.WithChiURLParam(r, params[i], params[i+1])
		}
		return r
	}
	var out struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int64                 `json:"unread"`
	}

	rec := testutil.NewRecorder()
	h.HandleMarkRead(rec, req(you, "POST", "notificationID", mine[0].ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.HandleMarkRead(rec, req(me, "POST", "notificationID", mine[0].ID.Hex()))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	h.ServeList(rec, req(me, "GET"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &out)
	if len(out.Notifications) != 3 || out.Unread != 2 {
		t.Errorf("list = %d unread = %d", len(out.Notifications), out.Unread)
	}
	if out.Notifications[0].ID != mine[2].ID {
		t.Errorf("newest first: got %s", out.Notifications[0].ID.Hex())
	}

	r := req(me, "GET")
	r.URL.RawQuery = "unread=1"
	rec = testutil.NewRecorder()
	h.ServeList(rec, r)
	rec.DecodeJSON(t, &out)
	if len(out.Notifications) != 2 {
		t.Errorf("unread list = %d, want 2", len(out.Notifications))
	}

	rec = testutil.NewRecorder()
	h.HandleMarkAllRead(rec, req(me, "POST"))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, req(you, "DELETE", "notificationID", mine[1].ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, req(me, "DELETE", "notificationID", mine[1].ID.Hex()))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	h.ServeList(rec, req(me, "GET"))
	rec.DecodeJSON(t, &out)
	if len(out.Notifications) != 2 || out.Unread != 0 {
		t.Errorf("after delete: list = %d unread = %d", len(out.Notifications), out.Unread)
	}
}
