package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VENUEHQ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VENUEHQ_DB_DSN"
	EnvDBHost = "VENUEHQ_DB_HOST"
	EnvDBUser = "VENUEHQ_DB_USER"
	EnvDBName = "VENUEHQ_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Booking BookingConfig
	Webhook WebhookConfig
	Cron    CronConfig
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
	Env          string `envconfig:"VENUEHQ_APP_ENV" required:"true"`
	Port         string `envconfig:"VENUEHQ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENUEHQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENUEHQ_LOG_WARN_STACK" default:"false"`
	// BaseDomain is the apex domain tenant subdomains hang off of,
	// e.g. "venuehq.app" resolves "acme.venuehq.app" to slug "acme".
	BaseDomain string `envconfig:"VENUEHQ_BASE_DOMAIN" default:"venuehq.app"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENUEHQ_DB_DSN"`
	Driver string `envconfig:"VENUEHQ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENUEHQ_DB_HOST"`
	LegacyPort     int    `envconfig:"VENUEHQ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENUEHQ_DB_USER"`
	LegacyPassword string `envconfig:"VENUEHQ_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENUEHQ_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENUEHQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENUEHQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENUEHQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENUEHQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENUEHQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"VENUEHQ_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENUEHQ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENUEHQ_REDIS_ADDR"`
	Password     string        `envconfig:"VENUEHQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENUEHQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENUEHQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENUEHQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENUEHQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENUEHQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENUEHQ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type BookingConfig struct {
	// HoldTTL bounds how long a held booking blocks its date before the
	// expiry sweep releases it.
	HoldTTL time.Duration `envconfig:"VENUEHQ_BOOKING_HOLD_TTL" default:"30m"`
	// LockWait caps how long a hold/confirm transaction waits on a
	// contended row before failing fast with a conflict.
	LockWait time.Duration `envconfig:"VENUEHQ_BOOKING_LOCK_WAIT" default:"250ms"`
	// TxRetries bounds retries of transient transaction failures.
	TxRetries      int           `envconfig:"VENUEHQ_BOOKING_TX_RETRIES" default:"3"`
	TxRetryBackoff time.Duration `envconfig:"VENUEHQ_BOOKING_TX_RETRY_BACKOFF" default:"50ms"`
	// HoldRateLimit caps hold attempts per tenant per window; 0 disables
	// the throttle.
	HoldRateLimit  int           `envconfig:"VENUEHQ_BOOKING_HOLD_RATE_LIMIT" default:"120"`
	HoldRateWindow time.Duration `envconfig:"VENUEHQ_BOOKING_HOLD_RATE_WINDOW" default:"1m"`
}

type WebhookConfig struct {
	// DedupTTL is how long the Redis fast-path dedup marker lives; the
	// payment_events table remains the durable source of truth.
	DedupTTL time.Duration `envconfig:"VENUEHQ_WEBHOOK_DEDUP_TTL" default:"720h"`
	// RetentionWindow is how long terminal payment events are kept before
	// the retention sweep prunes them.
	RetentionWindow time.Duration `envconfig:"VENUEHQ_WEBHOOK_RETENTION_WINDOW" default:"2160h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VENUEHQ_CRON_INTERVAL" default:"1m"`
	LockKey  string        `envconfig:"VENUEHQ_CRON_LOCK_KEY" default:"vhq:cron:leader"`
	LockTTL  time.Duration `envconfig:"VENUEHQ_CRON_LOCK_TTL" default:"5m"`
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
