package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Secrets       SecretsConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Stripe        StripeConfig
	Payments      PaymentsConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DRIFTPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"DRIFTPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DRIFTPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DRIFTPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DRIFTPAY_DB_DSN"`
	Driver string `envconfig:"DRIFTPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DRIFTPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"DRIFTPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DRIFTPAY_DB_USER"`
	LegacyPassword string `envconfig:"DRIFTPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"DRIFTPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"DRIFTPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DRIFTPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DRIFTPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DRIFTPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DRIFTPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DRIFTPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DRIFTPAY_REDIS_ADDR"`
	Password     string        `envconfig:"DRIFTPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"DRIFTPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DRIFTPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DRIFTPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DRIFTPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DRIFTPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DRIFTPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DRIFTPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DRIFTPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DRIFTPAY_JWT_EXPIRATION_MINUTES" default:"15"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SecretsConfig holds the Argon2id parameters used to hash service-account secrets.
type SecretsConfig struct {
	ArgonMemoryKB    int `envconfig:"DRIFTPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DRIFTPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DRIFTPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DRIFTPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DRIFTPAY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	TokenWindow      time.Duration `envconfig:"DRIFTPAY_AUTH_RATE_LIMIT_TOKEN_WINDOW" default:"1m"`
	TokenClientLimit int           `envconfig:"DRIFTPAY_AUTH_RATE_LIMIT_TOKEN_CLIENT_LIMIT" default:"10"`
	TokenIPLimit     int           `envconfig:"DRIFTPAY_AUTH_RATE_LIMIT_TOKEN_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DRIFTPAY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"DRIFTPAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DRIFTPAY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DRIFTPAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DRIFTPAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SellerAlertsTopic        string `envconfig:"DRIFTPAY_PUBSUB_SELLER_ALERTS_TOPIC" default:"dp-seller-alerts"`
	PaymentFactsTopic        string `envconfig:"DRIFTPAY_PUBSUB_PAYMENT_FACTS_TOPIC" default:"dp-payment-facts"`
	PaymentFactsSubscription string `envconfig:"DRIFTPAY_PUBSUB_PAYMENT_FACTS_SUBSCRIPTION" default:"dp-payment-facts-worker"`
}

type BigQueryConfig struct {
	Dataset              string `envconfig:"DRIFTPAY_BIGQUERY_DATASET" default:"driftpay_finance"`
	SaleFactsTable       string `envconfig:"DRIFTPAY_BIGQUERY_SALE_FACTS_TABLE" default:"sale_facts"`
	SettlementFactsTable string `envconfig:"DRIFTPAY_BIGQUERY_SETTLEMENT_FACTS_TABLE" default:"settlement_facts"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"DRIFTPAY_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"DRIFTPAY_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"DRIFTPAY_STRIPE_ENV" default:"test"`
	// Stripe retries webhook delivery for up to three days; a day of dedup
	// covers the burst retries without pinning every event id in Redis.
	WebhookGuardTTL time.Duration `envconfig:"DRIFTPAY_STRIPE_WEBHOOK_GUARD_TTL" default:"24h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PaymentsConfig struct {
	PlatformFeeBp          int           `envconfig:"DRIFTPAY_PAYMENTS_PLATFORM_FEE_BP" default:"1000"`
	Currency               string        `envconfig:"DRIFTPAY_PAYMENTS_CURRENCY" default:"usd"`
	OnboardNotifyThreshold int           `envconfig:"DRIFTPAY_PAYMENTS_ONBOARD_NOTIFY_THRESHOLD" default:"3"`
	ProvisionTimeout       time.Duration `envconfig:"DRIFTPAY_STRIPE_PROVISION_TIMEOUT" default:"15s"`
	TransferTimeout        time.Duration `envconfig:"DRIFTPAY_STRIPE_TRANSFER_TIMEOUT" default:"20s"`
	CapabilityTimeout      time.Duration `envconfig:"DRIFTPAY_STRIPE_CAPABILITY_TIMEOUT" default:"8s"`
}

func (p PaymentsConfig) validate() error {
	if p.PlatformFeeBp < 0 || p.PlatformFeeBp > 10000 {
		return fmt.Errorf("%s must be within [0,10000], got %d", EnvPlatformFeeBp, p.PlatformFeeBp)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("platform currency is required")
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DRIFTPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DRIFTPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DRIFTPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"DRIFTPAY_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"DRIFTPAY_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays int           `envconfig:"DRIFTPAY_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"DRIFTPAY_CRON_DLQ_RETENTION_DAYS" default:"90"`
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
