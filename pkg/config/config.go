package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "COLLECTZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv                 = "COLLECTZ_APP_ENV"
	EnvPort                   = "COLLECTZ_APP_PORT"
	EnvDBDSN                  = "COLLECTZ_DB_DSN"
	EnvDBHost                 = "COLLECTZ_DB_HOST"
	EnvDBUser                 = "COLLECTZ_DB_USER"
	EnvDBName                 = "COLLECTZ_DB_NAME"
	EnvRedisURL               = "COLLECTZ_REDIS_URL"
	EnvJWTSecret              = "COLLECTZ_JWT_SECRET"
	EnvJWTIssuer              = "COLLECTZ_JWT_ISSUER"
	EnvJWTExpMins             = "COLLECTZ_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "COLLECTZ_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "COLLECTZ_GCP_PROJECT_ID"
	EnvPubSubPickupTopic      = "COLLECTZ_PUBSUB_PICKUP_TOPIC"
	EnvPubSubNotificationSub  = "COLLECTZ_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "COLLECTZ_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvUseSQLite              = "COLLECTZ_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Mail          MailConfig
	CORS          CORSConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:collectz.db?cache=shared&_foreign_keys=on"
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COLLECTZ_APP_ENV" required:"true"`
	Port         string `envconfig:"COLLECTZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COLLECTZ_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"COLLECTZ_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"COLLECTZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COLLECTZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COLLECTZ_DB_DSN"`
	Driver string `envconfig:"COLLECTZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COLLECTZ_DB_HOST"`
	LegacyPort     int    `envconfig:"COLLECTZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COLLECTZ_DB_USER"`
	LegacyPassword string `envconfig:"COLLECTZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"COLLECTZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"COLLECTZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COLLECTZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COLLECTZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COLLECTZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COLLECTZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COLLECTZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COLLECTZ_REDIS_ADDR"`
	Password     string        `envconfig:"COLLECTZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"COLLECTZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COLLECTZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COLLECTZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COLLECTZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COLLECTZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COLLECTZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COLLECTZ_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COLLECTZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COLLECTZ_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"COLLECTZ_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COLLECTZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COLLECTZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COLLECTZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COLLECTZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COLLECTZ_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"COLLECTZ_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COLLECTZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COLLECTZ_AUTO_MIGRATE" default:"false"`
	EmailNotify bool `envconfig:"COLLECTZ_FEATURE_EMAIL_NOTIFY" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"COLLECTZ_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	RequestIdempotencyTTL time.Duration `envconfig:"COLLECTZ_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COLLECTZ_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COLLECTZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COLLECTZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PickupTopic              string `envconfig:"COLLECTZ_PUBSUB_PICKUP_TOPIC" default:"collectz-pickup-events"`
	NotificationSubscription string `envconfig:"COLLECTZ_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"collectz-pickup-notifications"`
	AnalyticsSubscription    string `envconfig:"COLLECTZ_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"collectz-pickup-analytics"`
	MaxOutstandingMessages   int    `envconfig:"COLLECTZ_PUBSUB_MAX_OUTSTANDING" default:"32"`
}

// BigQueryConfig names the warehouse tables the analytics worker streams into.
type BigQueryConfig struct {
	Dataset           string `envconfig:"COLLECTZ_BIGQUERY_DATASET" default:"collectz"`
	PickupEventsTable string `envconfig:"COLLECTZ_BIGQUERY_PICKUP_EVENTS_TABLE" default:"pickup_events"`
	RatingsTable      string `envconfig:"COLLECTZ_BIGQUERY_RATINGS_TABLE" default:"pickup_ratings"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COLLECTZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COLLECTZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COLLECTZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll cadence into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type MailConfig struct {
	SMTPHost     string `envconfig:"COLLECTZ_SMTP_HOST"`
	SMTPPort     int    `envconfig:"COLLECTZ_SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"COLLECTZ_SMTP_USERNAME"`
	SMTPPassword string `envconfig:"COLLECTZ_SMTP_PASSWORD"`
	FromAddress  string `envconfig:"COLLECTZ_SMTP_FROM" default:"no-reply@collectz.app"`
	FromName     string `envconfig:"COLLECTZ_SMTP_FROM_NAME" default:"CollectZ"`
}

// Enabled reports whether enough SMTP settings exist to dial a server.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.SMTPHost) != "" && m.SMTPPort > 0
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COLLECTZ_CORS_ALLOWED_ORIGINS" default:"*"`
	MaxAgeSeconds  int      `envconfig:"COLLECTZ_CORS_MAX_AGE" default:"300"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"COLLECTZ_CRON_INTERVAL" default:"24h"`
	OutboxRetentionDays       int           `envconfig:"COLLECTZ_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"COLLECTZ_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
	JobTimeout                time.Duration `envconfig:"COLLECTZ_CRON_JOB_TIMEOUT" default:"30m"`
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
