package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
	Eventing EventingConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig

	FeatureFlags FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FURIMA_FEATURE_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FURIMA_APP_ENV" required:"true"`
	Port         string `envconfig:"FURIMA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FURIMA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FURIMA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FURIMA_DB_DSN"`
	Driver string `envconfig:"FURIMA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FURIMA_DB_HOST"`
	LegacyPort     int    `envconfig:"FURIMA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FURIMA_DB_USER"`
	LegacyPassword string `envconfig:"FURIMA_DB_PASSWORD"`
	LegacyName     string `envconfig:"FURIMA_DB_NAME"`
	LegacySSLMode  string `envconfig:"FURIMA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FURIMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FURIMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FURIMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FURIMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"FURIMA_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FURIMA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FURIMA_REDIS_ADDR"`
	Password     string        `envconfig:"FURIMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"FURIMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FURIMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FURIMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FURIMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FURIMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FURIMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FURIMA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FURIMA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FURIMA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey string `envconfig:"FURIMA_STRIPE_API_KEY"`
	Secret string `envconfig:"FURIMA_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"FURIMA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	// MinChargeAmount is the processor's smallest chargeable total in yen.
	MinChargeAmount int `envconfig:"FURIMA_CHECKOUT_MIN_CHARGE_AMOUNT" default:"50"`
	// ReservationTTL bounds how long an unpaid reservation holds inventory.
	ReservationTTL time.Duration `envconfig:"FURIMA_CHECKOUT_RESERVATION_TTL" default:"30m"`
	// SuccessURL/CancelURL are the hosted-checkout redirect targets.
	SuccessURL string `envconfig:"FURIMA_CHECKOUT_SUCCESS_URL" default:"https://furima.example/checkout/success"`
	CancelURL  string `envconfig:"FURIMA_CHECKOUT_CANCEL_URL" default:"https://furima.example/checkout/cancel"`
	// DisplayNameCacheTTL bounds the buyer display-metadata cache.
	DisplayNameCacheTTL time.Duration `envconfig:"FURIMA_CHECKOUT_DISPLAY_NAME_CACHE_TTL" default:"10m"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"FURIMA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"FURIMA_PUBSUB_PROJECT_ID"`
	OrdersTopic        string `envconfig:"FURIMA_PUBSUB_ORDERS_TOPIC" default:"furima-order-events"`
	OrdersSubscription string `envconfig:"FURIMA_PUBSUB_ORDERS_SUBSCRIPTION" default:"furima-order-events-worker"`
	NotificationTopic  string `envconfig:"FURIMA_PUBSUB_NOTIFICATION_TOPIC" default:"furima-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FURIMA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FURIMA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FURIMA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
