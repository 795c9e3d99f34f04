//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml with defaults", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://localhost/venux
redis:
  url: localhost:6379
stripe:
  secret_key: sk_test_123
auth:
  jwt_secret: secret
billing:
  allowed_prices: [price_monthly, price_quarterly]
`)
		cfg, err := LoadConfig(p, true)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTP.Port)
		assert.Equal(t, "authenticated", cfg.Auth.Audience)
		assert.Equal(t, 30*time.Second, cfg.Billing.SyncLockTTL)
		assert.Equal(t, []string{"price_monthly", "price_quarterly"}, cfg.Billing.AllowedPrices)
		assert.Equal(t, "pt-BR", cfg.Language)
		assert.Equal(t, time.UTC, cfg.Location())
		assert.True(t, cfg.Runtime.Dev)
		assert.Equal(t, 24*time.Hour, cfg.Scheduler.ReconcileRetry)
		assert.False(t, cfg.Accessor.Enabled())
		assert.Equal(t, "https://app.venux.app", cfg.Accessor.SiteURL)
	})

	t.Run("environment overrides secrets", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://file/db
redis:
  url: localhost:6379
auth:
  jwt_secret: secret
`)
		t.Setenv("STRIPE_SECRET_KEY", "sk_env")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
		t.Setenv("DATABASE_URL", "postgres://env/db")
		t.Setenv("ACCESSOR_SERVICE_TOKEN", "svc_env")

		cfg, err := LoadConfig(p, false)
		require.NoError(t, err)
		assert.Equal(t, "sk_env", cfg.Stripe.SecretKey)
		assert.Equal(t, "whsec_env", cfg.Stripe.WebhookSecret)
		assert.Equal(t, "postgres://env/db", cfg.Database.URL)
		assert.Equal(t, "svc_env", cfg.Accessor.ServiceToken)
		assert.True(t, cfg.Accessor.Enabled())
	})

	t.Run("missing required values", func(t *testing.T) {
		p := writeConfig(t, "log:\n  level: debug\n")
		_, err := LoadConfig(p, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.url")
	})

	t.Run("bad timezone", func(t *testing.T) {
		p := writeConfig(t, `
database: {url: x}
redis: {url: y}
stripe: {secret_key: z}
auth: {jwt_secret: s}
scheduler: {timezone: Nowhere/Atlantis}
`)
		_, err := LoadConfig(p, false)
		require.Error(t, err)
	})
}
