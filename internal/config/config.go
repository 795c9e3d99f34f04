// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
	Audience  string `yaml:"audience"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	// RequireSignature refuses webhooks when WebhookSecret is empty instead
	// of trusting the raw payload.
	RequireSignature bool `yaml:"require_signature" env:"STRIPE_REQUIRE_SIGNATURE"`
	// BaseURL overrides the API endpoint (stripe-mock, tests).
	BaseURL string `yaml:"base_url"`
}

type BillingConfig struct {
	AllowedPrices    []string      `yaml:"allowed_prices"`
	DefaultReturnURL string        `yaml:"default_return_url"`
	SyncLockTTL      time.Duration `yaml:"sync_lock_ttl"`
	SyncRateLimit    int           `yaml:"sync_rate_limit"`
	SyncRateWindow   time.Duration `yaml:"sync_rate_window"`
	EventDedupeTTL   time.Duration `yaml:"event_dedupe_ttl"`
}

type AlertConfig struct {
	TelegramToken string  `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatIDs       []int64 `yaml:"chat_ids"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subscriber      string `yaml:"subscriber"`
	TTL             int    `yaml:"ttl"`
	ClickURL        string `yaml:"click_url"`
}

// AccessorConfig enables the WhatsApp assistant endpoint when a token or
// secret is set.
type AccessorConfig struct {
	ServiceToken       string `yaml:"service_token" env:"ACCESSOR_SERVICE_TOKEN"`
	PublicReportSecret string `yaml:"public_report_secret" env:"ACCESSOR_PUBLIC_REPORT_SECRET"`
	SiteURL            string `yaml:"site_url" env:"SITE_URL"`
}

func (a AccessorConfig) Enabled() bool {
	return a.ServiceToken != "" || a.PublicReportSecret != ""
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileGrace    time.Duration `yaml:"reconcile_grace"`
	ReconcileRetry    time.Duration `yaml:"reconcile_retry"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
	ReminderInterval  time.Duration `yaml:"reminder_interval"`
	ReminderBatch     int           `yaml:"reminder_batch"`
	Timezone          string        `yaml:"timezone"`
	Workers           int           `yaml:"workers"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Billing   BillingConfig   `yaml:"billing"`
	Alert     AlertConfig     `yaml:"alert"`
	Push      PushConfig      `yaml:"push"`
	Accessor  AccessorConfig  `yaml:"accessor"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Language  string          `yaml:"language" env:"APP_LANGUAGE"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when empty), overlays
// environment variables (a local .env is honoured) and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 20 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, 10*time.Minute)
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = "authenticated"
	}
	cfg.Billing.SyncLockTTL = normalizeTTL(cfg.Billing.SyncLockTTL, 30*time.Second)
	if cfg.Billing.SyncRateLimit <= 0 {
		cfg.Billing.SyncRateLimit = 5
	}
	cfg.Billing.SyncRateWindow = normalizeTTL(cfg.Billing.SyncRateWindow, time.Minute)
	cfg.Billing.EventDedupeTTL = normalizeTTL(cfg.Billing.EventDedupeTTL, 72*time.Hour)
	if cfg.Push.Subscriber == "" {
		cfg.Push.Subscriber = "mailto:suporte@venux.app"
	}
	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 86400
	}
	if cfg.Push.ClickURL == "" {
		cfg.Push.ClickURL = "/reminders"
	}
	cfg.Scheduler.ReconcileInterval = normalizeTTL(cfg.Scheduler.ReconcileInterval, time.Hour)
	cfg.Scheduler.ReconcileGrace = normalizeTTL(cfg.Scheduler.ReconcileGrace, 24*time.Hour)
	cfg.Scheduler.ReconcileRetry = normalizeTTL(cfg.Scheduler.ReconcileRetry, 24*time.Hour)
	if cfg.Scheduler.ReconcileBatch <= 0 {
		cfg.Scheduler.ReconcileBatch = 50
	}
	cfg.Scheduler.ReminderInterval = normalizeTTL(cfg.Scheduler.ReminderInterval, 15*time.Minute)
	if cfg.Scheduler.ReminderBatch <= 0 {
		cfg.Scheduler.ReminderBatch = 500
	}
	if cfg.Accessor.SiteURL == "" {
		cfg.Accessor.SiteURL = "https://app.venux.app"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Language == "" {
		cfg.Language = "pt-BR"
	}
}

// Validate performs the minimal checks needed to start serving.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Stripe.SecretKey == "" {
		return errors.New("stripe.secret_key is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	return nil
}

// Location resolves the scheduler timezone; Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
