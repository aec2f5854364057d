package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
)

const (
	dbSecretName     = "checkout/DB_CREDENTIALS"
	stripeSecretName = "checkout/STRIPE_KEYS"
)

type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string

	StripeSecretKey  string
	StripeWebhookKey string
	StripeAPIURL     string // optional override, e.g. stripe-mock

	FrontendURL              string
	Currency                 string
	AllowedShippingCountries []string

	ProviderTimeout   time.Duration
	ReconcileTimeout  time.Duration
	SnapshotTTL       time.Duration
	ProcessedEventTTL time.Duration

	OrderSNSTopicARN       string
	ProviderEventsQueueURL string

	JWTSecret      string
	AllowedOrigins string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
}

// SecretSource resolves a JSON secret into key/value pairs.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads .env (when present) and the process environment. With
// AWS_USE_SECRETS=true database and Stripe credentials are overlaid from
// Secrets Manager.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			cfg.ApplySecrets(context.Background(), aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:                     getEnv("PORT", "8088"),
		AppEnv:                   getEnv("APP_ENV", "development"),
		PostgresUser:             os.Getenv("POSTGRES_USER"),
		PostgresPassword:         os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:               os.Getenv("POSTGRES_DB"),
		PostgresHost:             getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:             getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:          getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:         getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StripeSecretKey:          os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:         os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIURL:             os.Getenv("STRIPE_API_URL"),
		FrontendURL:              strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		Currency:                 strings.ToLower(getEnv("CHECKOUT_CURRENCY", "usd")),
		AllowedShippingCountries: splitList(getEnv("ALLOWED_SHIPPING_COUNTRIES", "US,CA,GB")),
		OrderSNSTopicARN:         os.Getenv("ORDER_SNS_TOPIC_ARN"),
		ProviderEventsQueueURL:   os.Getenv("PROVIDER_EVENTS_QUEUE_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		AllowedOrigins:           getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		CloudWatchEnabled:        os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace:      getEnv("CLOUDWATCH_NAMESPACE", "Storefront/Checkout"),
		CloudWatchLogGroup:       os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"PROVIDER_TIMEOUT", "10s", &cfg.ProviderTimeout},
		{"RECONCILE_TIMEOUT", "20s", &cfg.ReconcileTimeout},
		{"CHECKOUT_SNAPSHOT_TTL", "48h", &cfg.SnapshotTTL},
		{"PROCESSED_EVENT_TTL", "72h", &cfg.ProcessedEventTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", d.key)
		}
		*d.dst = v
	}

	return cfg, nil
}

// ApplySecrets overlays credentials found in the secret store. Missing
// secrets or keys leave the environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, src SecretSource) {
	if m, err := src.GetSecretMap(ctx, dbSecretName); err == nil {
		overlay(m, map[string]*string{
			"POSTGRES_USER":     &c.PostgresUser,
			"POSTGRES_PASSWORD": &c.PostgresPassword,
			"POSTGRES_DB":       &c.PostgresDB,
			"POSTGRES_HOST":     &c.PostgresHost,
			"POSTGRES_PORT":     &c.PostgresPort,
		})
	}
	if m, err := src.GetSecretMap(ctx, stripeSecretName); err == nil {
		overlay(m, map[string]*string{
			"STRIPE_API_KEY":        &c.StripeSecretKey,
			"STRIPE_WEBHOOK_SECRET": &c.StripeWebhookKey,
		})
	}
}

// Validate reports every missing required key at once.
func (c *Config) Validate() error {
	required := []struct{ key, val string }{
		{"POSTGRES_USER", c.PostgresUser},
		{"POSTGRES_PASSWORD", c.PostgresPassword},
		{"POSTGRES_DB", c.PostgresDB},
		{"STRIPE_API_KEY", c.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookKey},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(c.AllowedShippingCountries) == 0 {
		return fmt.Errorf("ALLOWED_SHIPPING_COUNTRIES must list at least one country")
	}
	return nil
}

// PostgresDSN builds the lib/pq style DSN used by the gorm postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func overlay(src map[string]string, dst map[string]*string) {
	for key, ptr := range dst {
		if v, ok := src[key]; ok && v != "" {
			*ptr = v
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
