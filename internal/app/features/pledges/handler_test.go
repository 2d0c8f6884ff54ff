package pledges_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/features/pledges"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h        *pledges.Handler
	fx       *testutil.Fixtures
	group    models.GroupProperties
	issuer   models.User
	investor models.User
}

func newEnv(t *testing.T) (env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Campus Angels")
	return env{
		h:        pledges.NewHandler(db, uierrors.NewErrorLogger(logger), logger),
		fx:       fx,
		group:    g,
		issuer:   fx.CreateIssuer(ctx, "founder@campus.test", g.ID),
		investor: fx.CreateInvestor(ctx, "angel@campus.test", g.ID),
	}, ctx
}

func (e env) offerProject(t *testing.T, ctx context.Context) models.Project {
	t.Helper()
	p := e.fx.CreateProject(ctx, "Offer", e.group.ID, e.issuer.ID, models.StatusPrimaryOfferPhase, models.VisibilityRestricted)
	p.PrimaryOffer = &models.PrimaryOffer{
		Status:      models.OfferOnGoing,
		PostedDate:  time.Now().UTC(),
		ExpiredDate: time.Now().UTC().AddDate(0, 1, 0),
	}
	saved, err := e.h.Projects.Replace(ctx, p)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	return saved
}

func TestPledge_MakeEditWithdraw(t *testing.T) {
	e, ctx := newEnv(t)
	p := e.offerProject(t, ctx)
	user := testutil.FromUser(e.investor)

	for _, amount := range []string{"500", "750"} {
		req := testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"amount": amount}, user)
		req = testutil.WithChiURLParam(req, "projectID", p.ID.Hex())
		rec := testutil.NewRecorder()
		e.h.HandlePledge(rec, req)
		rec.AssertStatus(t, http.StatusOK)
	}

	list, err := e.h.Pledges.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(list) != 1 || list[0].Amount != "750" {
		t.Fatalf("one pledge per investor expected, got %+v", list)
	}

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", nil, user), "projectID", p.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleWithdrawPledge(rec, req)
	rec.AssertStatus(t, http.StatusNoContent)

	list, err = e.h.Pledges.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("withdrawn pledge should be void, got %+v", list)
	}
}

func TestPledge_RejectsBadAmountAndClosedProject(t *testing.T) {
	e, ctx := newEnv(t)
	p := e.offerProject(t, ctx)
	user := testutil.FromUser(e.investor)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"amount": "-3"}, user), "projectID", p.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandlePledge(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)

	p.TemporarilyClosed = true
	if _, err := e.h.Projects.Replace(ctx, p); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"amount": "10"}, user), "projectID", p.ID.Hex())
	rec = testutil.NewRecorder()
	e.h.HandlePledge(rec, req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServePledges_InvestorSeesOwnOnly(t *testing.T) {
	e, ctx := newEnv(t)
	p := e.offerProject(t, ctx)
	other := e.fx.CreateInvestor(ctx, "other@campus.test", e.group.ID)
	e.fx.CreatePledge(ctx, p.ID, e.investor.ID, "100")
	e.fx.CreatePledge(ctx, p.ID, other.ID, "300")

	var resp struct {
		Pledges []models.Pledge `json:"pledges"`
		Total   float64         `json:"total"`
	}

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/", nil, testutil.FromUser(e.investor)), "projectID", p.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.ServePledges(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &resp)
	if len(resp.Pledges) != 1 || resp.Total != 400 {
		t.Errorf("investor view: %+v", resp)
	}

	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/", nil, testutil.FromUser(e.issuer)), "projectID", p.ID.Hex())
	rec = testutil.NewRecorder()
	e.h.ServePledges(rec, req)
	rec.DecodeJSON(t, &resp)
	if len(resp.Pledges) != 2 {
		t.Errorf("issuer should see every pledge, got %d", len(resp.Pledges))
	}
	for _, pl := range resp.Pledges {
		if pl.Investor == nil {
			t.Errorf("pledge %s has no investor profile", pl.ID.Hex())
		}
	}
}

func TestVote_OnlyDuringPitch(t *testing.T) {
	e, ctx := newEnv(t)
	pitch := e.fx.CreateProject(ctx, "Pitch", e.group.ID, e.issuer.ID, models.StatusPitchPhase, models.VisibilityRestricted)
	offer := e.offerProject(t, ctx)
	user := testutil.FromUser(e.investor)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"voted": "yes"}, user), "projectID", pitch.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleVote(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"voted": "yes"}, user), "projectID", offer.ID.Hex())
	rec = testutil.NewRecorder()
	e.h.HandleVote(rec, req)
	rec.AssertStatus(t, http.StatusConflict)

	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/", nil, testutil.FromUser(e.issuer)), "projectID", pitch.ID.Hex())
	rec = testutil.NewRecorder()
	e.h.ServeVotes(rec, req)
	var resp struct {
		Counts map[string]int `json:"counts"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Counts["yes"] != 1 {
		t.Errorf("counts = %v", resp.Counts)
	}
}

func TestVote_IssuerForbidden(t *testing.T) {
	e, ctx := newEnv(t)
	pitch := e.fx.CreateProject(ctx, "Pitch", e.group.ID, e.issuer.ID, models.StatusPitchPhase, models.VisibilityRestricted)
	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", map[string]any{"voted": "yes"}, testutil.FromUser(e.issuer)), "projectID", pitch.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleVote(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
}
