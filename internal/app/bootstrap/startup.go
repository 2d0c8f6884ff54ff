// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/investwest/internal/app/lifecycle"
	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	notificationstore "github.com/dalemusser/investwest/internal/app/store/notifications"
	userstore "github.com/dalemusser/investwest/internal/app/store/users"
	"github.com/dalemusser/investwest/internal/app/system/auditlog"
	"github.com/dalemusser/investwest/internal/app/system/idempotency"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/notify"
	"github.com/dalemusser/investwest/internal/app/system/ratelimit"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/app/system/uploads"
	"github.com/dalemusser/investwest/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// services are the long-lived runtime pieces built in Startup and shared
// by BuildHandler and Shutdown.
type services struct {
	audit       *auditlog.Logger
	dispatcher  *notify.Dispatcher
	lifecycle   *lifecycle.Service
	pitchExpiry *workers.PitchExpiry
	files       *storage.Local
	filesURL    string
	emailLimit  *ratelimit.Limiter
	ipLimit     *ratelimit.Limiter
}

var (
	svcMu sync.Mutex
	svc   *services
)

func current() *services {
	svcMu.Lock()
	defer svcMu.Unlock()
	return svc
}

// Startup runs after schema setup and before the handler is built. It
// ensures the superadmin and starts the notification dispatcher and the
// pitch expiry worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, logger); err != nil {
			return err
		}
	}

	s, err := buildServices(appCfg, deps, logger)
	if err != nil {
		return err
	}
	s.dispatcher.Start()
	s.pitchExpiry.Start()

	svcMu.Lock()
	svc = s
	svcMu.Unlock()
	return nil
}

func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	db := deps.MongoDatabase

	audit := auditlog.New(activitystore.New(db), logger, auditlog.Config{
		Lifecycle: appCfg.AuditLogLifecycle,
		Admin:     appCfg.AuditLogAdmin,
	})

	var guard idempotency.Guard = idempotency.NopGuard{}
	if deps.Redis != nil {
		guard = idempotency.NewRedisGuard(deps.Redis, appCfg.IdempotencyTTL)
	}
	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	dispatcher := notify.New(notify.Config{
		QueueSize:   appCfg.NotifyQueueSize,
		RatePerSec:  float64(appCfg.NotifyRatePerSec),
		Burst:       appCfg.NotifyBurst,
		MaxAttempts: appCfg.NotifyMaxAttempts,
	}, notificationstore.New(db), mail, guard, logger)

	life := lifecycle.NewService(db, audit, dispatcher, logger)

	files, err := uploads.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}

	return &services{
		audit:       audit,
		dispatcher:  dispatcher,
		lifecycle:   life,
		pitchExpiry: workers.NewPitchExpiry(life, logger, appCfg.PitchExpiryInterval, 0),
		files:       files,
		filesURL:    strings.TrimRight(appCfg.StorageLocalURL, "/"),
		emailLimit:  ratelimit.New(appCfg.SignInPerEmailMin, time.Minute),
		ipLimit:     ratelimit.New(appCfg.SignInPerIPMin, time.Minute),
	}, nil
}

// ensureSuperAdmin creates or promotes the configured superadmin.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	changed, err := userstore.New(deps.MongoDatabase).EnsureSuperAdmin(ctx, email)
	if err != nil {
		logger.Error("ensure superadmin failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("ensure superadmin: %w", err)
	}
	if changed {
		logger.Info("superadmin ensured", zap.String("email", email))
	}
	return nil
}
