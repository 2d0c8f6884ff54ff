package activity

import (
	"net/http"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/paging"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// dateRange reads start and end (YYYY-MM-DD). ok is false when neither is
// set; end covers the whole day.
func dateRange(r *http.Request) (start, end time.Time, ok bool, err error) {
	s, e := query.Get(r, "start"), query.Get(r, "end")
	if s == "" && e == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	end = time.Now().UTC()
	start = end.AddDate(0, 0, -30)
	if s != "" {
		if start, err = time.Parse("2006-01-02", s); err != nil {
			return start, end, false, httperr.ErrBadRequest
		}
	}
	if e != "" {
		t, perr := time.Parse("2006-01-02", e)
		if perr != nil {
			return start, end, false, httperr.ErrBadRequest
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return start, end, false, httperr.ErrBadRequest
	}
	return start, end, true, nil
}

// targetUser reads ?user=<id|me>, defaulting to the caller.
func targetUser(r *http.Request, actor models.Actor) (primitive.ObjectID, error) {
	raw := query.Get(r, "user")
	if raw == "" || raw == "me" {
		return actor.ID, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, httperr.ErrBadRequest
	}
	return id, nil
}

// ServeList handles GET /activities?user=<id|me>[&start=&end=][&limit=].
// With a date range the result is oldest first; otherwise the most recent
// entries come first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	list, ok := h.userActivities(w, r)
	if !ok {
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"activities": list})
}

func (h *Handler) userActivities(w http.ResponseWriter, r *http.Request) ([]models.Activity, bool) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list activities", httperr.ErrUnauthorized)
		return nil, false
	}
	userID, err := targetUser(r, actor)
	if err != nil {
		h.ErrLog.BadRequest(w, "user must be a valid id or \"me\"")
		return nil, false
	}
	start, end, ranged, err := dateRange(r)
	if err != nil {
		h.ErrLog.BadRequest(w, "start and end must be YYYY-MM-DD with start before end")
		return nil, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list activities")
	defer cancel()

	if err := h.canSeeUser(ctx, actor, userID); err != nil {
		h.ErrLog.Respond(w, r, "list activities", err)
		return nil, false
	}
	var list []models.Activity
	if ranged {
		list, err = h.Activities.ListByUserInTimeRange(ctx, userID, start, end)
	} else {
		list, err = h.Activities.ListByUser(ctx, userID, int64(paging.ParseLimit(r, paging.PageSize)))
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "list activities", err)
		return nil, false
	}
	return list, true
}

// ServeSubject handles GET /activities/subject?kind=user|group|project&id=.
func (h *Handler) ServeSubject(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "list subject activities", httperr.ErrUnauthorized)
		return
	}
	id, err := primitive.ObjectIDFromHex(query.Get(r, "id"))
	if err != nil {
		h.ErrLog.BadRequest(w, "id must be a valid id")
		return
	}
	subject := models.Subject{Kind: models.SubjectKind(query.Get(r, "kind")), ID: id}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list subject activities")
	defer cancel()

	if err := h.canSeeSubject(ctx, r, actor, subject); err != nil {
		h.ErrLog.Respond(w, r, "list subject activities", err)
		return
	}
	list, err := h.Activities.ListBySubject(ctx, subject, int64(paging.ParseLimit(r, paging.PageSize)))
	if err != nil {
		h.ErrLog.Respond(w, r, "list subject activities", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"activities": list})
}
