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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	Carrier      CarrierConfig
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
	Env          string `envconfig:"CARIBCELL_APP_ENV" required:"true"`
	Port         string `envconfig:"CARIBCELL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARIBCELL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARIBCELL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARIBCELL_DB_DSN"`
	Driver string `envconfig:"CARIBCELL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARIBCELL_DB_HOST"`
	LegacyPort     int    `envconfig:"CARIBCELL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARIBCELL_DB_USER"`
	LegacyPassword string `envconfig:"CARIBCELL_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARIBCELL_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARIBCELL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARIBCELL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARIBCELL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARIBCELL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARIBCELL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARIBCELL_REDIS_URL" required:"true"`
	Password     string        `envconfig:"CARIBCELL_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARIBCELL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARIBCELL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARIBCELL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARIBCELL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARIBCELL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARIBCELL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARIBCELL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARIBCELL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARIBCELL_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"CARIBCELL_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARIBCELL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARIBCELL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARIBCELL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARIBCELL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARIBCELL_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CARIBCELL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CARIBCELL_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	SuccessURL string `envconfig:"CARIBCELL_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL  string `envconfig:"CARIBCELL_CHECKOUT_CANCEL_URL" required:"true"`
}

type StripeConfig struct {
	APIKey string `envconfig:"CARIBCELL_STRIPE_API_KEY"`
	Env    string `envconfig:"CARIBCELL_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CarrierConfig struct {
	BaseURL string        `envconfig:"CARIBCELL_CARRIER_BASE_URL"`
	APIKey  string        `envconfig:"CARIBCELL_CARRIER_API_KEY"`
	Timeout time.Duration `envconfig:"CARIBCELL_CARRIER_TIMEOUT" default:"15s"`
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
