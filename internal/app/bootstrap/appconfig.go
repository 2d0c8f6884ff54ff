// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds Invest West configuration on top of WAFFLE's CoreConfig
// (ports, TLS, logging, CORS). Values come from config files, INVESTWEST_*
// environment variables or flags; see LoadConfig.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the notification idempotency guard. Blank disables it and
	// delivery relies on the notifications unique index alone.
	RedisAddr      string
	RedisDB        int
	IdempotencyTTL time.Duration

	// Sessions
	SessionKey    string // must be strong in production
	SessionName   string
	SessionDomain string // blank means current host
	SessionMaxAge time.Duration

	// File storage. Only "local" is served by this build.
	StorageType      string
	StorageLocalPath string
	StorageLocalURL  string // URL prefix local files are served under

	// Email/SMTP (Mailpit locally, SES in prod)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// BaseURL prefixes links in emails.
	BaseURL string

	// Sign-in
	SignInCodeExpiry  time.Duration
	SignInPerEmailMin int // code requests per email per minute
	SignInPerIPMin    int // unauthenticated auth calls per IP per minute

	// Notification dispatcher
	NotifyQueueSize   int
	NotifyRatePerSec  int
	NotifyBurst       int
	NotifyMaxAttempts int

	// PitchExpiryInterval is how often expired pitches are parked for review.
	PitchExpiryInterval time.Duration

	// Activity logging: "all", "db", "log" or "off".
	AuditLogLifecycle string
	AuditLogAdmin     string

	// SuperAdminEmail is promoted (or created) as superadmin on startup.
	SuperAdminEmail string
}
