package projects

import (
	"errors"
	"net/http"

	"github.com/dalemusser/investwest/internal/app/lifecycle"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// transitionResponse carries the saved project. Warning is set when the
// project was saved but some notifications could not be queued; retrying
// the same request will not duplicate the ones that were.
type transitionResponse struct {
	Project models.Project `json:"project"`
	Warning string         `json:"warning,omitempty"`
}

type decisionInput struct {
	Approve    *bool              `json:"approve"`
	Visibility *models.Visibility `json:"visibility"`
}

func (in decisionInput) decision() (lifecycle.Decision, error) {
	if in.Approve == nil {
		return lifecycle.Decision{}, errors.Join(httperr.ErrBadRequest, errors.New("approve is required"))
	}
	d := lifecycle.Decision{Approve: *in.Approve, Visibility: models.VisibilityKeep}
	if in.Visibility != nil {
		if *in.Visibility != models.VisibilityKeep && !in.Visibility.Valid() {
			return d, errors.Join(httperr.ErrBadRequest, errors.New("visibility must be -1, 0, 1 or 2"))
		}
		d.Visibility = *in.Visibility
	}
	return d, nil
}

type offerInput struct {
	ExpiryDate string `json:"expiry_date"`
	Valuation  string `json:"valuation"`
	Notes      string `json:"notes"`
}

type reviveInput struct {
	ExpiryDate string `json:"expiry_date"`
}

type closeOfferInput struct {
	Successful *bool `json:"successful"`
}

// step is one lifecycle call bound to its decoded input.
type step func(actor models.Actor, id primitive.ObjectID) (models.Project, error)

// transition resolves the actor and project id, runs s and writes the outcome.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, s step) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, op, httperr.ErrUnauthorized)
		return
	}
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		h.ErrLog.Respond(w, r, op, err)
		return
	}

	p, err := s(actor, id)
	switch {
	case errors.Is(err, lifecycle.ErrEffectsIncomplete):
		h.Log.Warn("project saved with incomplete effects",
			zap.String("op", op),
			zap.String("project_id", id.Hex()),
			zap.Error(err))
		httperr.JSON(w, http.StatusOK, transitionResponse{
			Project: p,
			Warning: "saved; some notifications are delayed",
		})
	case err != nil:
		h.ErrLog.Respond(w, r, op, err)
	default:
		httperr.JSON(w, http.StatusOK, transitionResponse{Project: p})
	}
}

// HandlePitchDecision handles POST /projects/{projectID}/pitch-decision.
func (h *Handler) HandlePitchDecision(w http.ResponseWriter, r *http.Request) {
	var in decisionInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	d, err := in.decision()
	if err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	h.transition(w, r, "pitch decision", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "pitch decision")
		defer cancel()
		return h.Lifecycle.DecidePitchGoLive(ctx, actor, id, d)
	})
}

// HandleAdmissionDecision handles POST /projects/{projectID}/admission-decision.
func (h *Handler) HandleAdmissionDecision(w http.ResponseWriter, r *http.Request) {
	var in decisionInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	d, err := in.decision()
	if err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	h.transition(w, r, "admission decision", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admission decision")
		defer cancel()
		return h.Lifecycle.DecidePledgeAdmission(ctx, actor, id, d.Approve)
	})
}

// HandleOfferDecision handles POST /projects/{projectID}/offer-decision.
func (h *Handler) HandleOfferDecision(w http.ResponseWriter, r *http.Request) {
	var in decisionInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	d, err := in.decision()
	if err != nil {
		h.ErrLog.Respond(w, r, "decode decision", err)
		return
	}
	h.transition(w, r, "offer decision", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "offer decision")
		defer cancel()
		return h.Lifecycle.DecidePledgeGoLive(ctx, actor, id, d)
	})
}

// HandleCreateOffer handles POST /projects/{projectID}/offer.
func (h *Handler) HandleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var in offerInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode offer", err)
		return
	}
	h.transition(w, r, "create offer", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create offer")
		defer cancel()
		return h.Lifecycle.CreatePledge(ctx, actor, id, lifecycle.OfferInput{
			ExpiryDate: in.ExpiryDate,
			Valuation:  in.Valuation,
			Notes:      in.Notes,
		})
	})
}

// HandleToggleClosure handles POST /projects/{projectID}/closure.
func (h *Handler) HandleToggleClosure(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "toggle closure", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "toggle closure")
		defer cancel()
		return h.Lifecycle.ToggleTemporaryClosure(ctx, actor, id)
	})
}

// HandleRevive handles POST /projects/{projectID}/revive.
func (h *Handler) HandleRevive(w http.ResponseWriter, r *http.Request) {
	var in reviveInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode revive", err)
		return
	}
	expiry, err := lifecycle.ParseDate(in.ExpiryDate)
	if err != nil {
		h.ErrLog.Respond(w, r, "decode revive", err)
		return
	}
	h.transition(w, r, "revive pitch", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "revive pitch")
		defer cancel()
		return h.Lifecycle.RevivePitch(ctx, actor, id, expiry)
	})
}

// HandleSubmit handles POST /projects/{projectID}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit project", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit project")
		defer cancel()
		return h.Lifecycle.SubmitForReview(ctx, actor, id)
	})
}

// HandleCloseOffer handles POST /projects/{projectID}/close-offer.
func (h *Handler) HandleCloseOffer(w http.ResponseWriter, r *http.Request) {
	var in closeOfferInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode close offer", err)
		return
	}
	if in.Successful == nil {
		h.ErrLog.BadRequest(w, "successful is required")
		return
	}
	h.transition(w, r, "close offer", func(actor models.Actor, id primitive.ObjectID) (models.Project, error) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "close offer")
		defer cancel()
		return h.Lifecycle.CloseOffer(ctx, actor, id, *in.Successful)
	})
}
