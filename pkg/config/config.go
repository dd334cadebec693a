package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Checkout     CheckoutConfig
	Reconciler   ReconcilerConfig
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
	Env          string `envconfig:"DECORLY_APP_ENV" required:"true"`
	Port         string `envconfig:"DECORLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DECORLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DECORLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DECORLY_DB_DSN"`
	Driver string `envconfig:"DECORLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DECORLY_DB_HOST"`
	LegacyPort     int    `envconfig:"DECORLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DECORLY_DB_USER"`
	LegacyPassword string `envconfig:"DECORLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"DECORLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"DECORLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DECORLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DECORLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DECORLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DECORLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DECORLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DECORLY_REDIS_ADDR"`
	Password     string        `envconfig:"DECORLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"DECORLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DECORLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DECORLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DECORLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DECORLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DECORLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DECORLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DECORLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DECORLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"DECORLY_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"DECORLY_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"DECORLY_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"DECORLY_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	TaxRateBps int    `envconfig:"DECORLY_CHECKOUT_TAX_RATE_BPS" default:"0"`
	Currency   string `envconfig:"DECORLY_CHECKOUT_CURRENCY" default:"USD"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `envconfig:"DECORLY_RECONCILER_INTERVAL" default:"5m"`
	BatchSize int           `envconfig:"DECORLY_RECONCILER_BATCH_SIZE" default:"25"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DECORLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DECORLY_AUTO_MIGRATE" default:"false"`
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
