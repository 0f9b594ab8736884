package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Session   SessionConfig
	Datastore DatastoreConfig
	OAuth     OAuthConfig
	Bootstrap BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds identity-store connection values. The DSN carries the
// privileged credentials; the store is a hard dependency.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig defines session token issuance parameters.
type SessionConfig struct {
	SigningSecret string
	TTLDays       int
	BcryptCost    int
}

// TTL returns the absolute session lifetime.
func (s SessionConfig) TTL() time.Duration {
	days := s.TTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// DatastoreConfig defines the downstream row-level-security token surface.
type DatastoreConfig struct {
	SigningSecret string
	TTLMinutes    int
}

// TTL returns the datastore token lifetime.
func (d DatastoreConfig) TTL() time.Duration {
	minutes := d.TTLMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// OAuthConfig holds Google OAuth client settings. Absence disables the OAuth
// routes rather than failing startup.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	CallbackURL        string
}

// Enabled reports whether the OAuth login path is configured.
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

// BootstrapConfig gates first-administrator creation behind a static shared
// secret. Unset disables the route entirely.
type BootstrapConfig struct {
	Secret string
}

// Enabled reports whether bootstrap is available.
func (b BootstrapConfig) Enabled() bool {
	return b.Secret != ""
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "identity-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			SigningSecret: os.Getenv("SESSION_SIGNING_SECRET"),
			TTLDays:       getEnvAsInt("SESSION_TTL_DAYS", 30),
			BcryptCost:    getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Datastore: DatastoreConfig{
			SigningSecret: os.Getenv("DATASTORE_SIGNING_SECRET"),
			TTLMinutes:    getEnvAsInt("DATASTORE_TOKEN_TTL_MINUTES", 60),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("OAUTH_GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
			CallbackURL:        os.Getenv("OAUTH_GOOGLE_CALLBACK_URL"),
		},
		Bootstrap: BootstrapConfig{
			Secret: os.Getenv("BOOTSTRAP_SECRET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the configuration the service refuses to run without.
// Serving traffic with a missing or shared signing secret would be a silent
// security downgrade, so these are startup failures rather than warnings.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	if c.Session.SigningSecret == "" {
		return errors.New("SESSION_SIGNING_SECRET is required")
	}
	if c.Datastore.SigningSecret == "" {
		return errors.New("DATASTORE_SIGNING_SECRET is required")
	}
	if c.Session.SigningSecret == c.Datastore.SigningSecret {
		return errors.New("SESSION_SIGNING_SECRET and DATASTORE_SIGNING_SECRET must be distinct")
	}
	if c.OAuth.Enabled() && c.OAuth.CallbackURL == "" {
		return errors.New("OAUTH_GOOGLE_CALLBACK_URL is required when OAuth is configured")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
