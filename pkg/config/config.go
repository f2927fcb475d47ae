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
	FeatureFlags FeatureFlagsConfig
	LemonSqueezy LemonSqueezyConfig
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
	Env          string `envconfig:"LAUNCHBASE_APP_ENV" required:"true"`
	Port         string `envconfig:"LAUNCHBASE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LAUNCHBASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAUNCHBASE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LAUNCHBASE_DB_DSN"`
	Driver string `envconfig:"LAUNCHBASE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LAUNCHBASE_DB_HOST"`
	LegacyPort     int    `envconfig:"LAUNCHBASE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LAUNCHBASE_DB_USER"`
	LegacyPassword string `envconfig:"LAUNCHBASE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LAUNCHBASE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LAUNCHBASE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAUNCHBASE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAUNCHBASE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAUNCHBASE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAUNCHBASE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAUNCHBASE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LAUNCHBASE_REDIS_ADDR"`
	Password     string        `envconfig:"LAUNCHBASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAUNCHBASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAUNCHBASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAUNCHBASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAUNCHBASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAUNCHBASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAUNCHBASE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LAUNCHBASE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LAUNCHBASE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LAUNCHBASE_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"LAUNCHBASE_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LAUNCHBASE_AUTO_MIGRATE" default:"false"`
}

// LemonSqueezyConfig holds the payment provider credentials. Both the API key
// and the webhook signing secret are process-wide requirements: a missing
// value is a startup error, never a recoverable condition.
type LemonSqueezyConfig struct {
	APIKey        string        `envconfig:"LAUNCHBASE_LEMON_SQUEEZY_API_KEY" required:"true"`
	SigningSecret string        `envconfig:"LAUNCHBASE_LEMON_SQUEEZY_SIGNING_SECRET" required:"true"`
	StoreID       int64         `envconfig:"LAUNCHBASE_LEMON_SQUEEZY_STORE_ID" required:"true"`
	BaseURL       string        `envconfig:"LAUNCHBASE_LEMON_SQUEEZY_BASE_URL" default:"https://api.lemonsqueezy.com"`
	Timeout       time.Duration `envconfig:"LAUNCHBASE_LEMON_SQUEEZY_TIMEOUT" default:"15s"`
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
