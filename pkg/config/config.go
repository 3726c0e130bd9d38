package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "MARKETDESK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical env var names, referenced from error messages and tests.
const (
	EnvAppEnv     = "MARKETDESK_APP_ENV"
	EnvPort       = "MARKETDESK_APP_PORT"
	EnvDBDSN      = "MARKETDESK_DB_DSN"
	EnvDBHost     = "MARKETDESK_DB_HOST"
	EnvDBUser     = "MARKETDESK_DB_USER"
	EnvDBName     = "MARKETDESK_DB_NAME"
	EnvRedisURL   = "MARKETDESK_REDIS_URL"
	EnvJWTSecret  = "MARKETDESK_JWT_SECRET"
	EnvJWTIssuer  = "MARKETDESK_JWT_ISSUER"
	EnvGCPProject = "MARKETDESK_GCP_PROJECT_ID"
	EnvAuditTopic = "MARKETDESK_PUBSUB_AUDIT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Settlement SettlementConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
	Cron       CronConfig
	RateLimit  RateLimitConfig
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
	Env          string `envconfig:"MARKETDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETDESK_DB_DSN"`
	Driver string `envconfig:"MARKETDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETDESK_DB_USER"`
	LegacyPassword string `envconfig:"MARKETDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	FeatureAutoMigrate bool `envconfig:"MARKETDESK_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETDESK_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"MARKETDESK_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MARKETDESK_JWT_ISSUER" required:"true"`
}

// SettlementConfig bounds the payout engine's store access and the orphan
// sweeper's grace window. Store calls past the timeout are reported as failed,
// never retried by the service.
type SettlementConfig struct {
	StoreTimeout      time.Duration `envconfig:"MARKETDESK_SETTLEMENT_STORE_TIMEOUT" default:"10s"`
	OrphanGraceWindow time.Duration `envconfig:"MARKETDESK_SETTLEMENT_ORPHAN_GRACE" default:"30m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MARKETDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"MARKETDESK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"MARKETDESK_PUBSUB_AUDIT_TOPIC" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MARKETDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MARKETDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MARKETDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig throttles mutating payout endpoints per source IP and per
// authenticated admin.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"MARKETDESK_RATELIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"MARKETDESK_RATELIMIT_IP" default:"120"`
	ActorLimit int           `envconfig:"MARKETDESK_RATELIMIT_ACTOR" default:"60"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MARKETDESK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MARKETDESK_CRON_LOCK_TTL" default:"55m"`
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
