package projects

import (
	"errors"
	"net/http"

	"github.com/dalemusser/investwest/internal/app/store/queries/projectqueries"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeDetail handles GET /projects/{projectID}. With ?pledges=1 the
// view includes the live pledges and their total.
//
// Projects the caller may not see are reported as not found.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	id, err := httperr.PathID(r, "projectID")
	if err != nil {
		h.ErrLog.Respond(w, r, "parse project id", err)
		return
	}
	withPledges := query.Get(r, "pledges") == "1" || query.Get(r, "pledges") == "true"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "load project")
	defer cancel()

	view, err := projectqueries.LoadProject(ctx, h.DB, id, withPledges)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.Log.Warn("project view failed",
				zap.String("project_id", id.Hex()),
				zap.Error(err))
		}
		h.ErrLog.Respond(w, r, "load project", err)
		return
	}
	if !authz.CanSeeProject(r, view.Project) {
		h.ErrLog.Respond(w, r, "load project", httperr.ErrNotFound)
		return
	}
	httperr.JSON(w, http.StatusOK, view)
}
