// Package config loads the service configuration from environment variables.
// envconfig maps the variables onto the struct fields.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds ALL application settings.
type Config struct {
	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Comma separated list of origins allowed to call the API from the browser ("*" allows any).
	CORSOriginsRaw string   `envconfig:"CORS_ORIGINS" default:"*"`
	CORSOrigins    []string `envconfig:"-"`

	// --- Database ---
	// Inside docker-compose the host is the service name; override with DB_HOST=localhost locally.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"progress"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"progress"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Device store (Redis) ---
	// Empty address keeps device state in process memory (dev only, lost on restart).
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	DeviceStoreTTL time.Duration `envconfig:"DEVICE_STORE_TTL" default:"0"`

	// --- Auth ---
	// HS256 secret shared with the managed auth backend that issues session tokens.
	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET" required:"true"`
	// argon2id hash of the admin token, see scripts/generate_hash.go. Empty disables admin routes.
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH" default:""`

	// --- Telegram ---
	TelegramBotToken      string  `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramRatePerSecond float64 `envconfig:"TELEGRAM_RATE_PER_SECOND" default:"25"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Madrid"`
	// Rotated log file (lumberjack). Empty = stdout only.
	LogFile       string `envconfig:"LOG_FILE" default:""`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"7"`

	// --- Streak ---
	StreakReminderThreshold int `envconfig:"STREAK_REMINDER_THRESHOLD" default:"3"`
	StreakReminderHour      int `envconfig:"STREAK_REMINDER_HOUR" default:"18"`

	// --- Points ---
	ReviewRewardPoints int64  `envconfig:"REVIEW_REWARD_POINTS" default:"50"`
	ReconcileCron      string `envconfig:"RECONCILE_CRON" default:"30 3 * * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureTelegramEnabled  bool `envconfig:"FEATURE_TELEGRAM_ENABLED" default:"true"`
	FeatureRemindersEnabled bool `envconfig:"FEATURE_REMINDERS_ENABLED" default:"true"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location returns the time zone that defines calendar days for streaks.
// Falls back to UTC when the zone database does not know APP_TIMEZONE.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelegramEnabled reports whether outbound Telegram messages are configured.
func (c *Config) TelegramEnabled() bool {
	return c.FeatureTelegramEnabled && c.TelegramBotToken != ""
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.AuthJWTSecret) < 16 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 16 characters")
	}
	if c.StreakReminderHour < 0 || c.StreakReminderHour > 23 {
		return fmt.Errorf("STREAK_REMINDER_HOUR must be within 0..23")
	}
	if c.ReviewRewardPoints <= 0 {
		return fmt.Errorf("REVIEW_REWARD_POINTS must be > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.TelegramRatePerSecond <= 0 {
		return fmt.Errorf("TELEGRAM_RATE_PER_SECOND must be > 0")
	}
	if _, err := cron.ParseStandard(c.ReconcileCron); err != nil {
		return fmt.Errorf("RECONCILE_CRON: %w", err)
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	return nil
}

// Load reads environment variables and fills Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.CORSOrigins = splitCSV(cfg.CORSOriginsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
