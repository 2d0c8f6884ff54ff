package projects

import (
	"net/http"

	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/normalize"
	"github.com/dalemusser/investwest/internal/app/system/paging"
	"github.com/dalemusser/investwest/internal/app/system/projectfilter"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Projects []models.Project `json:"projects"`
	Count    int              `json:"count"`
}

// ServeList handles GET /projects.
//
// Query parameters:
//
//	group=<id> | issuer=<id|me>   server-side key (at most one)
//	phase=any|live|successful|failed|<status>
//	sector=<text>                 case and accent insensitive contains
//	visibility=0,1,2
//	limit=<n>                     result ceiling, applied before filtering
//
// Without group or issuer the key is the phase's status range; visitors
// only ever query public projects.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, err := projectfilter.FromRequest(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project filter", err)
		return
	}
	key, err := listKey(r, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project key", err)
		return
	}
	limit := int64(paging.ParseLimit(r, paging.MaxLimit))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list projects")
	defer cancel()

	ps, err := projectqueries.ListProjects(ctx, h.DB, key, limit, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "list projects", err)
		return
	}

	visible := make([]models.Project, 0, len(ps))
	for _, p := range ps {
		if authz.CanSeeProject(r, p) {
			visible = append(visible, p)
		}
	}
	httperr.JSON(w, http.StatusOK, listResponse{Projects: visible, Count: len(visible)})
}

// listKey picks the single indexed predicate for a list request.
func listKey(r *http.Request, f projectfilter.Filter) (projectstore.Key, error) {
	actor, signedIn := authz.ActorFrom(r)
	if !signedIn {
		return projectstore.Key{Kind: projectstore.ByVisibility, Visibility: models.VisibilityPublic}, nil
	}

	if raw := normalize.GroupID(query.Get(r, "group")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return projectstore.Key{}, httperr.ErrBadRequest
		}
		return projectstore.Key{Kind: projectstore.ByGroup, ID: id}, nil
	}
	if raw := query.Get(r, "issuer"); raw != "" {
		if raw == "me" {
			return projectstore.Key{Kind: projectstore.ByIssuer, ID: actor.ID}, nil
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return projectstore.Key{}, httperr.ErrBadRequest
		}
		return projectstore.Key{Kind: projectstore.ByIssuer, ID: id}, nil
	}

	switch f.Phase {
	case projectfilter.PhaseLive:
		return statusRange(models.StatusPitchPhase, models.StatusPrimaryOfferPhase), nil
	case projectfilter.PhaseSuccessful, projectfilter.PhaseFailed, projectfilter.PhaseExact:
		return statusRange(f.Status, f.Status), nil
	}
	return projectstore.Key{Kind: projectstore.ByAll}, nil
}

func statusRange(from, to models.ProjectStatus) projectstore.Key {
	return projectstore.Key{Kind: projectstore.ByStatusRange, StatusFrom: from, StatusTo: to}
}
