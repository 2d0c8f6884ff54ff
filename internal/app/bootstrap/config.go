// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys are loaded through WAFFLE's config system:
//   - config files: mongo_uri, session_name, ...
//   - environment: INVESTWEST_MONGO_URI, INVESTWEST_SESSION_NAME, ...
//   - flags: --mongo_uri, --session_name, ...
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "investwest", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for notification idempotency (blank disables)"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "idempotency_ttl", Default: "72h", Desc: "How long a delivered notification key is remembered"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "investwest-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime"},

	{Name: "storage_type", Default: "local", Desc: "Storage backend (local)"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage root for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@investwest.test", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Invest West", Desc: "From display name"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},

	{Name: "signin_code_expiry", Default: "10m", Desc: "Sign-in code and link lifetime"},
	{Name: "signin_per_email_min", Default: 3, Desc: "Sign-in code requests per email per minute"},
	{Name: "signin_per_ip_min", Default: 30, Desc: "Unauthenticated auth requests per IP per minute"},

	{Name: "notify_queue_size", Default: 1024, Desc: "Notification queue capacity"},
	{Name: "notify_rate_per_sec", Default: 20, Desc: "Notification deliveries per second"},
	{Name: "notify_burst", Default: 5, Desc: "Notification delivery burst"},
	{Name: "notify_max_attempts", Default: 3, Desc: "Delivery attempts per notification"},

	{Name: "pitch_expiry_check_interval", Default: "5m", Desc: "How often expired pitches are parked for review"},

	{Name: "audit_log_lifecycle", Default: "all", Desc: "Project event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin user (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and the app config. Precedence is
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, v, err := config.LoadWithAppConfig(logger, "INVESTWEST", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		RedisAddr:      v.String("redis_addr"),
		RedisDB:        v.Int("redis_db"),
		IdempotencyTTL: v.Duration("idempotency_ttl", 72*time.Hour),

		SessionKey:    v.String("session_key"),
		SessionName:   v.String("session_name"),
		SessionDomain: v.String("session_domain"),
		SessionMaxAge: v.Duration("session_max_age", 30*24*time.Hour),

		StorageType:      v.String("storage_type"),
		StorageLocalPath: v.String("storage_local_path"),
		StorageLocalURL:  v.String("storage_local_url"),

		MailSMTPHost: v.String("mail_smtp_host"),
		MailSMTPPort: v.Int("mail_smtp_port"),
		MailSMTPUser: v.String("mail_smtp_user"),
		MailSMTPPass: v.String("mail_smtp_pass"),
		MailFrom:     v.String("mail_from"),
		MailFromName: v.String("mail_from_name"),

		BaseURL: v.String("base_url"),

		SignInCodeExpiry:  v.Duration("signin_code_expiry", 10*time.Minute),
		SignInPerEmailMin: v.Int("signin_per_email_min"),
		SignInPerIPMin:    v.Int("signin_per_ip_min"),

		NotifyQueueSize:   v.Int("notify_queue_size"),
		NotifyRatePerSec:  v.Int("notify_rate_per_sec"),
		NotifyBurst:       v.Int("notify_burst"),
		NotifyMaxAttempts: v.Int("notify_max_attempts"),

		PitchExpiryInterval: v.Duration("pitch_expiry_check_interval", 5*time.Minute),

		AuditLogLifecycle: v.String("audit_log_lifecycle"),
		AuditLogAdmin:     v.String("audit_log_admin"),

		SuperAdminEmail: v.String("superadmin_email"),
	}

	// Timeouts are read before ConnectDB uses them.
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later at connect
// or request time.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.StorageType != "local" {
		return fmt.Errorf("storage_type %q is not supported (use local)", appCfg.StorageType)
	}
	if !strings.HasPrefix(appCfg.StorageLocalURL, "/") || len(appCfg.StorageLocalURL) < 2 {
		return fmt.Errorf("storage_local_url must be a path below / (got %q)", appCfg.StorageLocalURL)
	}
	if appCfg.NotifyRatePerSec <= 0 || appCfg.NotifyQueueSize <= 0 {
		return fmt.Errorf("notify_rate_per_sec and notify_queue_size must be positive")
	}
	if coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in prod")
	}
	return nil
}
