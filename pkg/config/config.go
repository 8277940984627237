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
	Password      PasswordConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Storefront    StorefrontConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ELITEJEWELS_APP_ENV" required:"true"`
	Port         string `envconfig:"ELITEJEWELS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ELITEJEWELS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ELITEJEWELS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"ELITEJEWELS_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type DBConfig struct {
	DSN        string `envconfig:"ELITEJEWELS_DB_DSN"`
	Driver     string `envconfig:"ELITEJEWELS_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"ELITEJEWELS_SQLITE_PATH" default:"elitejewels.db"`

	LegacyHost     string `envconfig:"ELITEJEWELS_DB_HOST"`
	LegacyPort     int    `envconfig:"ELITEJEWELS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ELITEJEWELS_DB_USER"`
	LegacyPassword string `envconfig:"ELITEJEWELS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ELITEJEWELS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ELITEJEWELS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ELITEJEWELS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ELITEJEWELS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ELITEJEWELS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ELITEJEWELS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ELITEJEWELS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ELITEJEWELS_REDIS_ADDR"`
	Password     string        `envconfig:"ELITEJEWELS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ELITEJEWELS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ELITEJEWELS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ELITEJEWELS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ELITEJEWELS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ELITEJEWELS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ELITEJEWELS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ELITEJEWELS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ELITEJEWELS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ELITEJEWELS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ELITEJEWELS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ELITEJEWELS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ELITEJEWELS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ELITEJEWELS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ELITEJEWELS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ELITEJEWELS_ARGON_KEY_LEN" default:"32"`
}

type OTPConfig struct {
	CodeLength     int           `envconfig:"ELITEJEWELS_OTP_CODE_LENGTH" default:"6"`
	TTL            time.Duration `envconfig:"ELITEJEWELS_OTP_TTL" default:"5m"`
	MaxAttempts    int           `envconfig:"ELITEJEWELS_OTP_MAX_ATTEMPTS" default:"5"`
	ResendCooldown time.Duration `envconfig:"ELITEJEWELS_OTP_RESEND_COOLDOWN" default:"4s"`
	CountryCode    string        `envconfig:"ELITEJEWELS_OTP_COUNTRY_CODE" default:"91"`
	PendingTTL     time.Duration `envconfig:"ELITEJEWELS_OTP_PENDING_SIGNUP_TTL" default:"15m"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit int           `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow       time.Duration `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPPhoneLimit   int           `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit      int           `envconfig:"ELITEJEWELS_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ELITEJEWELS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ELITEJEWELS_AUTO_MIGRATE" default:"false"`
	DemoAuth    bool `envconfig:"ELITEJEWELS_DEMO_AUTH" default:"false"`
	RedisFeed   bool `envconfig:"ELITEJEWELS_REDIS_FEED" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ELITEJEWELS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ELITEJEWELS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ELITEJEWELS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"ELITEJEWELS_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string        `envconfig:"ELITEJEWELS_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	UploadTimeout time.Duration `envconfig:"ELITEJEWELS_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"ELITEJEWELS_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured upload limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"ELITEJEWELS_PUBSUB_ORDERS_TOPIC"`

	OutboxBatchSize         int           `envconfig:"ELITEJEWELS_OUTBOX_BATCH_SIZE" default:"50"`
	OutboxMaxAttempts       int           `envconfig:"ELITEJEWELS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	OutboxPublishInterval   time.Duration `envconfig:"ELITEJEWELS_OUTBOX_PUBLISH_INTERVAL" default:"5s"`
	OutboxRetention         time.Duration `envconfig:"ELITEJEWELS_OUTBOX_RETENTION" default:"168h"`
	OutboxRetentionInterval time.Duration `envconfig:"ELITEJEWELS_OUTBOX_RETENTION_INTERVAL" default:"1h"`
}

type StorefrontConfig struct {
	MessagingHost       string        `envconfig:"ELITEJEWELS_MESSAGING_HOST" default:"wa.me"`
	MessagingRecipient  string        `envconfig:"ELITEJEWELS_MESSAGING_RECIPIENT" default:"919876543210"`
	CatalogPreviewSize  int           `envconfig:"ELITEJEWELS_CATALOG_PREVIEW_SIZE" default:"6"`
	RatesPollInterval   time.Duration `envconfig:"ELITEJEWELS_RATES_POLL_INTERVAL" default:"30s"`
	RatesPruneInterval  time.Duration `envconfig:"ELITEJEWELS_RATES_PRUNE_INTERVAL" default:"1h"`
	RatesHistoryKeep    int           `envconfig:"ELITEJEWELS_RATES_HISTORY_KEEP" default:"500"`
	CartTTL             time.Duration `envconfig:"ELITEJEWELS_CART_TTL" default:"720h"`
	ExpansionTTL        time.Duration `envconfig:"ELITEJEWELS_CATALOG_EXPANSION_TTL" default:"24h"`
	AdminOrderListLimit int           `envconfig:"ELITEJEWELS_ADMIN_ORDER_LIST_LIMIT" default:"200"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
