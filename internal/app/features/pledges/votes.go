package pledges

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
)

type voteList struct {
	Votes  []models.Vote  `json:"votes"`
	Counts map[string]int `json:"counts"`
}

// ServeVotes handles GET /projects/{projectID}/votes. Counts per value are
// public; individual votes follow the same rule as pledges.
func (h *Handler) ServeVotes(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFrom(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list votes")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	all, err := projectqueries.LoadVotes(ctx, h.DB, p.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "list votes", err)
		return
	}

	resp := voteList{Counts: map[string]int{}, Votes: make([]models.Vote, 0, len(all))}
	seeAll := canSeeAll(actor, p)
	for _, v := range all {
		resp.Counts[v.Voted]++
		if seeAll || (!actor.ID.IsZero() && v.InvestorID == actor.ID) {
			resp.Votes = append(resp.Votes, v)
		}
	}
	httperr.JSON(w, http.StatusOK, resp)
}

type voteInput struct {
	Voted string `json:"voted"`
}

// HandleVote handles PUT /projects/{projectID}/votes during the pitch phase.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "vote", httperr.ErrUnauthorized)
		return
	}
	if actor.Role != models.RoleInvestor {
		h.ErrLog.Respond(w, r, "vote", httperr.ErrForbidden)
		return
	}
	var in voteInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode vote", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "vote")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if !acceptingVotes(p) {
		httperr.Error(w, http.StatusConflict, "this project is not accepting votes")
		return
	}
	v, err := h.Votes.Cast(ctx, p.ID, actor.ID, strings.TrimSpace(in.Voted))
	if err != nil {
		h.ErrLog.Respond(w, r, "save vote", err)
		return
	}
	httperr.JSON(w, http.StatusOK, v)
}

// HandleWithdrawVote handles DELETE /projects/{projectID}/votes.
func (h *Handler) HandleWithdrawVote(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "withdraw vote", httperr.ErrUnauthorized)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "withdraw vote")
	defer cancel()

	p, err := h.project(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if !acceptingVotes(p) {
		httperr.Error(w, http.StatusConflict, "this project is not accepting votes")
		return
	}
	if err := h.Votes.Withdraw(ctx, p.ID, actor.ID); err != nil {
		h.ErrLog.Respond(w, r, "withdraw vote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func acceptingVotes(p models.Project) bool {
	return p.Status == models.StatusPitchPhase && !p.TemporarilyClosed
}
