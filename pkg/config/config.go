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

	EnvAppEnv = "FITMARKET_APP_ENV"
	EnvDBDSN  = "FITMARKET_DB_DSN"
	EnvDBHost = "FITMARKET_DB_HOST"
	EnvDBUser = "FITMARKET_DB_USER"
	EnvDBName = "FITMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Engine       EngineConfig
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
	Env          string `envconfig:"FITMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"FITMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FITMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FITMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FITMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FITMARKET_DB_DSN"`
	Driver string `envconfig:"FITMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FITMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"FITMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FITMARKET_DB_USER"`
	LegacyPassword string `envconfig:"FITMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"FITMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"FITMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FITMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FITMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FITMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FITMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FITMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FITMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"FITMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FITMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FITMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FITMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FITMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FITMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FITMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey  string        `envconfig:"FITMARKET_STRIPE_API_KEY"`
	Env     string        `envconfig:"FITMARKET_STRIPE_ENV" default:"test"`
	Timeout time.Duration `envconfig:"FITMARKET_STRIPE_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// EngineConfig carries the order/refund engine policy knobs.
type EngineConfig struct {
	RefundWindowDays      int           `envconfig:"FITMARKET_REFUND_WINDOW_DAYS" default:"7"`
	FlatShippingFee       string        `envconfig:"FITMARKET_FLAT_SHIPPING_FEE" default:"15.00"`
	FreeShippingThreshold string        `envconfig:"FITMARKET_FREE_SHIPPING_THRESHOLD" default:"100.00"`
	DefaultHoldDays       int           `envconfig:"FITMARKET_DEFAULT_HOLD_DAYS" default:"7"`
	RestockOnRefund       bool          `envconfig:"FITMARKET_RESTOCK_ON_REFUND" default:"false"`
	ReconcileAfter        time.Duration `envconfig:"FITMARKET_RECONCILE_PROCESSING_AFTER" default:"30m"`
	ReconcileBatchSize    int           `envconfig:"FITMARKET_RECONCILE_BATCH_SIZE" default:"50"`
	CheckoutRateLimit     int64         `envconfig:"FITMARKET_CHECKOUT_RATE_LIMIT" default:"10"`
	CheckoutRateWindow    time.Duration `envconfig:"FITMARKET_CHECKOUT_RATE_WINDOW" default:"1m"`
	BillingInterval       time.Duration `envconfig:"FITMARKET_BILLING_INTERVAL" default:"1h"`
	BillingBatchSize      int           `envconfig:"FITMARKET_BILLING_BATCH_SIZE" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FITMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FITMARKET_AUTO_MIGRATE" default:"false"`
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
