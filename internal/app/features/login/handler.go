// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	"github.com/dalemusser/investwest/internal/app/lifecycle"
	"github.com/dalemusser/investwest/internal/app/store/emailverify"
	loginstore "github.com/dalemusser/investwest/internal/app/store/logins"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/dalemusser/investwest/internal/app/system/httperr"
	"github.com/dalemusser/investwest/internal/app/system/inputval"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/app/system/ratelimit"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler signs users in with a one-time code or link sent to their email.
type Handler struct {
	Users    *userstore.Store
	Codes    *emailverify.Store
	Logins   *loginstore.Store
	Sessions *auth.SessionManager
	Notify   lifecycle.Dispatcher
	Limiter  *ratelimit.Limiter // per email address
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	SiteName string
	BaseURL  string
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, dispatcher lifecycle.Dispatcher, limiter *ratelimit.Limiter,
	codeTTL time.Duration, baseURL string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Codes:    emailverify.New(db, codeTTL),
		Logins:   loginstore.New(db),
		Sessions: sm,
		Notify:   dispatcher,
		Limiter:  limiter,
		ErrLog:   errLog,
		Log:      logger,
		SiteName: "Invest West",
		BaseURL:  baseURL,
	}
}

type requestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRequestCode handles POST /login. The answer is 202 whether or not
// the address belongs to a user.
func (h *Handler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	var in requestInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode sign-in request", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(text.Fold(in.Email)) {
		httperr.Error(w, http.StatusTooManyRequests, "too many sign-in requests, try again later")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "request sign-in code")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Info("sign-in requested for unknown email")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "load user", err)
		return
	}

	code, token, err := h.Codes.Issue(ctx, u.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "issue sign-in code", err)
		return
	}
	email := mailer.BuildSignInEmail(mailer.SignInEmailData{
		SiteName:  h.SiteName,
		Code:      code,
		SignInURL: h.BaseURL + "/login/link?token=" + url.QueryEscape(token),
		ExpiresIn: h.Codes.Expiry().String(),
	})
	email.To = u.Email
	job := notify.Job{Key: "signin:" + token, Email: &email}
	if err := h.Notify.Enqueue(ctx, job); err != nil {
		h.ErrLog.Respond(w, r, "queue sign-in email", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type verifyInput struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// HandleVerify handles POST /login/verify and starts a session.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var in verifyInput
	if err := httperr.Decode(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "decode sign-in code", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.JSON(w, http.StatusBadRequest, res)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify sign-in code")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Respond(w, r, "verify sign-in code", emailverify.ErrInvalidCode)
		return
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "load user", err)
		return
	}
	if err := h.Codes.VerifyCode(ctx, u.ID, in.Code); err != nil {
		h.ErrLog.Respond(w, r, "verify sign-in code", err)
		return
	}
	if err := h.signIn(w, r, u, models.SignInCode); err != nil {
		h.ErrLog.Respond(w, r, "start session", err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"user": u.Profile()})
}

// HandleLink handles GET /login/link?token= from the emailed link and
// redirects home once signed in.
func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	token := query.Get(r, "token")
	if token == "" {
		h.ErrLog.BadRequest(w, "missing token")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "consume sign-in link")
	defer cancel()

	id, err := h.Codes.ConsumeToken(ctx, token)
	if err != nil {
		h.ErrLog.Respond(w, r, "consume sign-in link", err)
		return
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "load user", err)
		return
	}
	if err := h.signIn(w, r, u, models.SignInLink); err != nil {
		h.ErrLog.Respond(w, r, "start session", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u *models.User, method string) error {
	if err := h.Sessions.SignIn(w, r, u.ID.Hex()); err != nil {
		return err
	}
	// History is best effort; the session is already issued.
	if err := h.Logins.Record(r.Context(), r, u.ID, method); err != nil {
		h.Log.Warn("record sign-in", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("method", method))
	return nil
}
