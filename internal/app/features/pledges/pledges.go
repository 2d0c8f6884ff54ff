package pledges

import (
	"net/http"

	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/normalize"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type pledgeList struct {
	Pledges []models.Pledge `json:"pledges"`
	Total   float64         `json:"total"`
	Count   int             `json:"count"`
}

// ServePledges handles GET /projects/{projectID}/pledges. The issuer and
// group admins see every live pledge; investors see only their own. The
// total always covers every live pledge.
func (h *Handler) ServePledges(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFrom(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list pledges")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	all, err := projectqueries.LoadPledges(ctx, h.DB, p.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "list pledges", err)
		return
	}

	resp := pledgeList{Total: pledgestore.Total(all), Count: len(all), Pledges: all}
	if !canSeeAll(actor, p) {
		own := make([]models.Pledge, 0, 1)
		for _, pl := range all {
			if pl.InvestorID == actor.ID && !actor.ID.IsZero() {
				own = append(own, pl)
			}
		}
		resp.Pledges = own
	}
	httperr.JSON(w, http.StatusOK, resp)
}

type pledgeInput struct {
	Amount     string `json:"amount" validate:"required,amount" label:"Amount"`
	InvestorID string `json:"investor_id" validate:"omitempty,objectid" label:"Investor"`
}

// HandlePledge handles PUT /projects/{projectID}/pledges: make or edit the
// caller's pledge. Group admins may pledge on behalf of an investor by
// naming investor_id.
func (h *Handler) HandlePledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "pledge", httperr.ErrUnauthorized)
		return
	}
	var in pledgeInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode pledge", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "pledge")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if !acceptingPledges(p) {
		httperr.Error(w, http.StatusConflict, "this project is not accepting pledges")
		return
	}

	investor := actor.ID
	if in.InvestorID != "" {
		if !actor.CanAdminister(p.GroupID) {
			h.ErrLog.Respond(w, r, "pledge", httperr.ErrForbidden)
			return
		}
		investor, _ = primitive.ObjectIDFromHex(in.InvestorID)
	} else if actor.Role != models.RoleInvestor {
		h.ErrLog.Respond(w, r, "pledge", httperr.ErrForbidden)
		return
	}

	pl, err := h.Pledges.Upsert(ctx, p.ID, investor, actor.ID, normalize.Amount(in.Amount))
	if err != nil {
		h.ErrLog.Respond(w, r, "save pledge", err)
		return
	}
	h.Log.Info("pledge saved",
		zap.String("project_id", p.ID.Hex()),
		zap.String("investor_id", investor.Hex()))
	httperr.JSON(w, http.StatusOK, pl)
}

// HandleWithdrawPledge handles DELETE /projects/{projectID}/pledges.
// The pledge is voided, not removed.
func (h *Handler) HandleWithdrawPledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "withdraw pledge", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "withdraw pledge")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if !acceptingPledges(p) {
		httperr.Error(w, http.StatusConflict, "this project is not accepting pledges")
		return
	}
	if err := h.Pledges.Withdraw(ctx, p.ID, actor.ID); err != nil {
		h.ErrLog.Respond(w, r, "withdraw pledge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func acceptingPledges(p models.Project) bool {
	return p.Status == models.StatusPrimaryOfferPhase &&
		!p.TemporarilyClosed &&
		p.PrimaryOffer != nil &&
		p.PrimaryOffer.Status == models.OfferOnGoing
}
