// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	activityfeature "github.com/dalemusser/investwest/internal/app/features/activity"
	commentsfeature "github.com/dalemusser/investwest/internal/app/features/comments"
	errorsfeature "github.com/dalemusser/investwest/internal/app/features/errors"
	forumsfeature "github.com/dalemusser/investwest/internal/app/features/forums"
	groupsfeature "github.com/dalemusser/investwest/internal/app/features/groups"
	healthfeature "github.com/dalemusser/investwest/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/investwest/internal/app/features/invitations"
	joinrequestsfeature "github.com/dalemusser/investwest/internal/app/features/joinrequests"
	livefeature "github.com/dalemusser/investwest/internal/app/features/live"
	loginfeature "github.com/dalemusser/investwest/internal/app/features/login"
	logoutfeature "github.com/dalemusser/investwest/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/investwest/internal/app/features/notifications"
	pledgesfeature "github.com/dalemusser/investwest/internal/app/features/pledges"
	profilefeature "github.com/dalemusser/investwest/internal/app/features/profile"
	projectsfeature "github.com/dalemusser/investwest/internal/app/features/projects"
	uploadsfeature "github.com/dalemusser/investwest/internal/app/features/uploads"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router. WAFFLE calls it after Startup,
// so the shared services are available.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := current()
	if s == nil {
		return nil, errors.New("startup did not complete")
	}
	db := deps.MongoDatabase

	// Secure cookies in production.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user per request so role and group changes apply at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(errorsHandler.Recoverer)
	r.Use(sessionMgr.LoadSessionUser)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, s.dispatcher, s.emailLimit, appCfg.SignInCodeExpiry, appCfg.BaseURL, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler, s.ipLimit))
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, logger), sessionMgr))
	r.Mount("/me", profilefeature.Routes(profilefeature.NewHandler(db, errLog, logger), sessionMgr))

	// Projects with their pledges, votes and comments nested under /{projectID}.
	pledgesHandler := pledgesfeature.NewHandler(db, errLog, logger)
	commentsHandler := commentsfeature.NewHandler(db, errLog, logger)
	projectsHandler := projectsfeature.NewHandler(db, s.lifecycle, s.audit, errLog, logger)
	r.Mount("/projects", projectsfeature.Routes(projectsHandler, sessionMgr, map[string]http.Handler{
		"pledges":  pledgesfeature.PledgeRoutes(pledgesHandler, sessionMgr),
		"votes":    pledgesfeature.VoteRoutes(pledgesHandler, sessionMgr),
		"comments": commentsfeature.Routes(commentsHandler, sessionMgr),
	}))

	// Group discussion
	forumsHandler := forumsfeature.NewHandler(db, errLog, logger)
	r.Mount("/forums", forumsfeature.Routes(forumsHandler, sessionMgr))
	r.Mount("/threads", forumsfeature.ThreadRoutes(forumsHandler, sessionMgr))

	// Groups and membership
	r.Mount("/groups", groupsfeature.Routes(groupsfeature.NewHandler(db, s.audit, errLog, logger), sessionMgr))
	invitationsHandler := invitationsfeature.NewHandler(db, s.audit, s.dispatcher, appCfg.BaseURL, errLog, logger)
	r.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr, s.ipLimit))
	joinHandler := joinrequestsfeature.NewHandler(db, s.audit, s.dispatcher, errLog, logger)
	r.Mount("/join-requests", joinrequestsfeature.Routes(joinHandler, sessionMgr))

	// Inbox and history
	r.Mount("/notifications", notificationsfeature.Routes(notificationsfeature.NewHandler(db, errLog, logger), sessionMgr))
	r.Mount("/activities", activityfeature.Routes(activityfeature.NewHandler(db, errLog, logger), sessionMgr))

	// Files
	r.Mount("/uploads", uploadsfeature.Routes(uploadsfeature.NewHandler(db, s.files, errLog, logger), sessionMgr))
	r.Get(s.filesURL+"/*", uploadsfeature.FileServer(s.files))

	// Real-time streams
	liveHandler := livefeature.NewHandler(db, livefeature.MongoFeeds(db, logger), errLog, logger)
	r.Mount("/live", livefeature.Routes(liveHandler, sessionMgr))

	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	logger.Info("routes mounted", zap.String("files", s.filesURL))
	return r, nil
}
