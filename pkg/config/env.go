package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "ELITEJEWELS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "ELITEJEWELS_APP_ENV"
	EnvPort        = "ELITEJEWELS_APP_PORT"
	EnvDBDSN       = "ELITEJEWELS_DB_DSN"
	EnvDBHost      = "ELITEJEWELS_DB_HOST"
	EnvDBUser      = "ELITEJEWELS_DB_USER"
	EnvDBName      = "ELITEJEWELS_DB_NAME"
	EnvUseSQLite   = "ELITEJEWELS_USE_SQLITE"
	EnvRedisURL    = "ELITEJEWELS_REDIS_URL"
	EnvJWTSecret   = "ELITEJEWELS_JWT_SECRET"
	EnvJWTIssuer   = "ELITEJEWELS_JWT_ISSUER"
	EnvJWTExpMins  = "ELITEJEWELS_JWT_EXPIRATION_MINUTES"
	EnvGCSBucket   = "ELITEJEWELS_GCS_BUCKET_NAME"
	EnvOTPCooldown = "ELITEJEWELS_OTP_RESEND_COOLDOWN"
	EnvOrdersTopic = "ELITEJEWELS_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
