// internal/app/system/httperr/httperr.go
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/investwest/internal/app/lifecycle"
	commentstore "github.com/dalemusser/investwest/internal/app/store/comments"
	"github.com/dalemusser/investwest/internal/app/store/emailverify"
	forumstore "github.com/dalemusser/investwest/internal/app/store/forums"
	groupstore "github.com/dalemusser/investwest/internal/app/store/groups"
	invitestore "github.com/dalemusser/investwest/internal/app/store/invitations"
	joinrequeststore "github.com/dalemusser/investwest/internal/app/store/joinrequests"
	pledgestore "github.com/dalemusser/investwest/internal/app/store/pledges"
	projectstore "github.com/dalemusser/investwest/internal/app/store/projects"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	votestore "github.com/dalemusser/investwest/internal/app/store/votes"
	"github.com/dalemusser/investwest/internal/app/system/projectfilter"
	"github.com/dalemusser/investwest/internal/app/system/uploads"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Errors raised by handlers themselves.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("sign in required")
	ErrForbidden    = errors.New("you do not have access to this resource")
	ErrNotFound     = errors.New("not found")
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

var table = []struct {
	err    error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{lifecycle.ErrInvalidDate, http.StatusBadRequest},
	{lifecycle.ErrExpiryInPast, http.StatusBadRequest},
	{lifecycle.ErrInvalidValuation, http.StatusBadRequest},
	{projectfilter.ErrBadPhase, http.StatusBadRequest},
	{projectfilter.ErrBadVisibility, http.StatusBadRequest},
	{projectstore.ErrNameRequired, http.StatusBadRequest},
	{pledgestore.ErrEmptyAmount, http.StatusBadRequest},
	{votestore.ErrEmptyVote, http.StatusBadRequest},
	{commentstore.ErrEmptyBody, http.StatusBadRequest},
	{forumstore.ErrNameRequired, http.StatusBadRequest},
	{forumstore.ErrMessageRequired, http.StatusBadRequest},
	{groupstore.ErrBadStatus, http.StatusBadRequest},
	{uploads.ErrBadSubfolder, http.StatusBadRequest},
	{uploads.ErrBadCollection, http.StatusBadRequest},
	{storage.ErrInvalidPath, http.StatusBadRequest},

	{ErrUnauthorized, http.StatusUnauthorized},
	{emailverify.ErrNotFound, http.StatusUnauthorized},
	{emailverify.ErrInvalidCode, http.StatusUnauthorized},

	{ErrForbidden, http.StatusForbidden},
	{lifecycle.ErrNotAdmin, http.StatusForbidden},
	{lifecycle.ErrNotOwner, http.StatusForbidden},
	{invitestore.ErrInvalidToken, http.StatusForbidden},

	{ErrNotFound, http.StatusNotFound},
	{mongo.ErrNoDocuments, http.StatusNotFound},

	{lifecycle.ErrInvalidTransition, http.StatusConflict},
	{userstore.ErrDuplicateEmail, http.StatusConflict},
	{groupstore.ErrDuplicateUsername, http.StatusConflict},
	{invitestore.ErrInvalidInviteState, http.StatusConflict},
	{invitestore.ErrAlreadyMember, http.StatusConflict},
	{joinrequeststore.ErrAlreadyPending, http.StatusConflict},
	{joinrequeststore.ErrNotPending, http.StatusConflict},

	{uploads.ErrTooLarge, http.StatusRequestEntityTooLarge},

	{emailverify.ErrTooManyAttempts, http.StatusTooManyRequests},

	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// Status maps err to an HTTP status. Unknown errors are 500.
func Status(err error) int {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// Write sends err as {"error": "..."}. Server errors are logged and their
// details are not exposed.
func Write(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status := Status(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Error(err))
		}
		msg = http.StatusText(status)
	}
	Error(w, status, msg)
}

// Error sends a message with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// JSON encodes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Decode reads a JSON body into v. Unknown fields are rejected.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrBadRequest
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, raw)
	}
	return id, nil
}
