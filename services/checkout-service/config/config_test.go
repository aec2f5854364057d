package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSecrets map[string]map[string]string

func (s stubSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	if m, ok := s[name]; ok {
		return m, nil
	}
	return nil, errors.New("secret not found")
}

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "checkout")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "storefront")
	t.Setenv("STRIPE_API_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := fromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, []string{"US", "CA", "GB"}, cfg.AllowedShippingCountries)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 20*time.Second, cfg.ReconcileTimeout)
	assert.Equal(t, 48*time.Hour, cfg.SnapshotTTL)
	assert.False(t, cfg.CloudWatchEnabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECKOUT_CURRENCY", "EUR")
	t.Setenv("ALLOWED_SHIPPING_COUNTRIES", " de, fr ,")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("FRONTEND_URL", "https://shop.example.com/")

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, []string{"DE", "FR"}, cfg.AllowedShippingCountries)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("RECONCILE_TIMEOUT", "soon")
	_, err := fromEnv()
	assert.ErrorContains(t, err, "RECONCILE_TIMEOUT")
}

func TestValidate_ListsMissingKeys(t *testing.T) {
	cfg := &Config{PostgresUser: "u", AllowedShippingCountries: []string{"US"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_PASSWORD")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.NotContains(t, err.Error(), "POSTGRES_USER")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user", PostgresHost: "localhost", StripeSecretKey: "sk_env"}
	cfg.ApplySecrets(context.Background(), stubSecrets{
		dbSecretName:     {"POSTGRES_USER": "secret-user", "POSTGRES_HOST": ""},
		stripeSecretName: {"STRIPE_API_KEY": "sk_secret", "STRIPE_WEBHOOK_SECRET": "whsec_secret"},
	})

	assert.Equal(t, "secret-user", cfg.PostgresUser)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "sk_secret", cfg.StripeSecretKey)
	assert.Equal(t, "whsec_secret", cfg.StripeWebhookKey)
}
