package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "DRIFTPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DRIFTPAY_APP_ENV"
	EnvPort     = "DRIFTPAY_APP_PORT"
	EnvLogLevel = "DRIFTPAY_LOG_LEVEL"

	EnvDBDSN  = "DRIFTPAY_DB_DSN"
	EnvDBHost = "DRIFTPAY_DB_HOST"
	EnvDBUser = "DRIFTPAY_DB_USER"
	EnvDBName = "DRIFTPAY_DB_NAME"

	EnvRedisURL = "DRIFTPAY_REDIS_URL"

	EnvJWTSecret = "DRIFTPAY_JWT_SECRET"
	EnvJWTIssuer = "DRIFTPAY_JWT_ISSUER"

	EnvStripeAPIKey        = "DRIFTPAY_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "DRIFTPAY_STRIPE_WEBHOOK_SECRET"

	EnvGCPProjectID = "DRIFTPAY_GCP_PROJECT_ID"

	EnvPlatformFeeBp = "DRIFTPAY_PAYMENTS_PLATFORM_FEE_BP"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
