package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "RECEIPTLINK_APP_ENV"
	EnvDBDSN  = "RECEIPTLINK_DB_DSN"
	EnvDBHost = "RECEIPTLINK_DB_HOST"
	EnvDBUser = "RECEIPTLINK_DB_USER"
	EnvDBName = "RECEIPTLINK_DB_NAME"
	EnvRedis  = "RECEIPTLINK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Matching     MatchingConfig
	ERP          ERPConfig
	CardSync     CardSyncConfig
	Outbox       OutboxConfig
	Ops          OpsConfig
	Credential   CredentialParams
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"RECEIPTLINK_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"RECEIPTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECEIPTLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RECEIPTLINK_SERVICE_KIND" default:"recon-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"RECEIPTLINK_DB_DSN"`
	Driver string `envconfig:"RECEIPTLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECEIPTLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"RECEIPTLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECEIPTLINK_DB_USER"`
	LegacyPassword string `envconfig:"RECEIPTLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECEIPTLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECEIPTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECEIPTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECEIPTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECEIPTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECEIPTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECEIPTLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RECEIPTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"RECEIPTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECEIPTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECEIPTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECEIPTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECEIPTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECEIPTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECEIPTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// MatchingConfig carries the tunables consumed by the scoring engine and the
// auto-match orchestrator.
type MatchingConfig struct {
	DateToleranceDays  int     `envconfig:"RECEIPTLINK_MATCHING_DATE_TOLERANCE_DAYS" default:"3"`
	AmountTolerance    float64 `envconfig:"RECEIPTLINK_MATCHING_AMOUNT_TOLERANCE" default:"0.01"`
	MinConfidenceScore float64 `envconfig:"RECEIPTLINK_MATCHING_MIN_CONFIDENCE_SCORE" default:"80"`
	BatchReceiptCap    int     `envconfig:"RECEIPTLINK_MATCHING_BATCH_RECEIPT_CAP" default:"1000"`
	Workers            int     `envconfig:"RECEIPTLINK_MATCHING_WORKERS" default:"4"`
	RequireApproval    bool    `envconfig:"RECEIPTLINK_MATCHING_REQUIRE_APPROVAL" default:"true"`

	// SystemUserID attributes scheduled auto-match batches to the dedicated
	// system user.
	SystemUserID string `envconfig:"RECEIPTLINK_MATCHING_SYSTEM_USER_ID"`
}

type ERPConfig struct {
	BaseURL     string        `envconfig:"RECEIPTLINK_ERP_BASE_URL"`
	APIToken    string        `envconfig:"RECEIPTLINK_ERP_API_TOKEN"`
	Timeout     time.Duration `envconfig:"RECEIPTLINK_ERP_TIMEOUT" default:"15s"`
	MaxAttempts int           `envconfig:"RECEIPTLINK_ERP_MAX_ATTEMPTS" default:"3"`
}

type CardSyncConfig struct {
	Enabled    bool          `envconfig:"RECEIPTLINK_CARDSYNC_ENABLED" default:"true"`
	Workers    int           `envconfig:"RECEIPTLINK_CARDSYNC_WORKERS" default:"4"`
	WindowDays int           `envconfig:"RECEIPTLINK_CARDSYNC_WINDOW_DAYS" default:"7"`
	Timeout    time.Duration `envconfig:"RECEIPTLINK_CARDSYNC_TIMEOUT" default:"30s"`

	ShinhanBaseURL      string `envconfig:"RECEIPTLINK_SHINHAN_BASE_URL"`
	ShinhanClientID     string `envconfig:"RECEIPTLINK_SHINHAN_CLIENT_ID"`
	ShinhanClientSecret string `envconfig:"RECEIPTLINK_SHINHAN_CLIENT_SECRET"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"RECEIPTLINK_OUTBOX_POLL_INTERVAL" default:"10s"`
	BatchSize    int           `envconfig:"RECEIPTLINK_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"RECEIPTLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type OpsConfig struct {
	Port string `envconfig:"RECEIPTLINK_OPS_PORT" default:"9090"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RECEIPTLINK_AUTO_MIGRATE" default:"false"`
}

// CredentialParams mirrors the Argon2id knobs applied when hashing stored
// card provider secrets.
type CredentialParams struct {
	MemoryKB    int `envconfig:"RECEIPTLINK_ARGON_MEMORY_KB" default:"65536"`
	Time        int `envconfig:"RECEIPTLINK_ARGON_TIME" default:"3"`
	Parallelism int `envconfig:"RECEIPTLINK_ARGON_PARALLELISM" default:"2"`
	SaltLen     int `envconfig:"RECEIPTLINK_ARGON_SALT_LEN" default:"16"`
	KeyLen      int `envconfig:"RECEIPTLINK_ARGON_KEY_LEN" default:"32"`
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
