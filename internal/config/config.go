package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig        `toml:"app"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Logger     LoggerConfig     `toml:"logger"`
	Auth       AuthConfig       `toml:"auth"`
	Session    SessionConfig    `toml:"session"`
	Classifier ClassifierConfig `toml:"classifier"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string   `toml:"name"`
	Env                   string   `toml:"env"`
	Host                  string   `toml:"host"`
	Port                  string   `toml:"port"`
	Version               string   `toml:"version"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	AllowedOrigins        []string `toml:"allowed_origins"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string `toml:"dsn"`
	MaxConns       int32  `toml:"max_conns"`
	MinConns       int32  `toml:"min_conns"`
	RunMigrations  bool   `toml:"run_migrations"`
	ConnMaxIdleSec int32  `toml:"conn_max_idle_seconds"`
	ConnMaxLifeSec int32  `toml:"conn_max_life_seconds"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `toml:"level"`
}

// AuthConfig defines credential hashing parameters.
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// Session backends.
const (
	SessionBackendRedis  = "redis"
	SessionBackendCookie = "cookie"
)

// SessionConfig controls the session cookie and where session state lives.
type SessionConfig struct {
	Backend       string `toml:"backend"`
	CookieName    string `toml:"cookie_name"`
	Secret        string `toml:"secret"`
	MaxAgeMinutes int    `toml:"max_age_minutes"`
	Secure        bool   `toml:"secure"`
	SameSite      string `toml:"same_site"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Classifier backends.
const (
	ClassifierBackendModel        = "model"
	ClassifierBackendSpamAssassin = "spamassassin"
	ClassifierBackendNone         = "none"
)

// ClassifierConfig selects and configures the spam classifier.
type ClassifierConfig struct {
	Backend          string `toml:"backend"`
	ModelPath        string `toml:"model_path"`
	SpamdAddr        string `toml:"spamd_addr"`
	SpamdTimeoutSecs int    `toml:"spamd_timeout_seconds"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "mail-service",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "5000",
			Version:               "dev",
			RequestTimeoutSeconds: 30,
			AllowedOrigins:        []string{"http://localhost:3000"},
		},
		Postgres: PostgresConfig{
			MaxConns:       10,
			MinConns:       2,
			RunMigrations:  true,
			ConnMaxIdleSec: 30,
			ConnMaxLifeSec: 300,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			BcryptCost: 12,
		},
		Session: SessionConfig{
			Backend:       SessionBackendRedis,
			CookieName:    "mail_session",
			Secret:        "dev-secret",
			MaxAgeMinutes: 7 * 24 * 60,
			Secure:        false,
			SameSite:      "Lax",
			KeyPrefix:     "session:",
		},
		Classifier: ClassifierConfig{
			Backend:          ClassifierBackendModel,
			ModelPath:        "model/model.json",
			SpamdAddr:        "127.0.0.1:783",
			SpamdTimeoutSecs: 20,
		},
	}
}

// Load reads configuration from an optional TOML file (CONFIG_FILE) and then
// from environment variables, which take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		redisDB, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.Redis.DB = redisDB
	}

	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnv("APP_PORT", cfg.App.Port)
	cfg.App.Version = getEnv("APP_VERSION", cfg.App.Version)
	cfg.App.RequestTimeoutSeconds = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", cfg.App.RequestTimeoutSeconds)
	cfg.App.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", cfg.App.AllowedOrigins)

	cfg.Postgres.DSN = getEnv("POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Postgres.MaxConns = int32(getEnvAsInt("POSTGRES_MAX_CONNS", int(cfg.Postgres.MaxConns)))
	cfg.Postgres.MinConns = int32(getEnvAsInt("POSTGRES_MIN_CONNS", int(cfg.Postgres.MinConns)))
	cfg.Postgres.RunMigrations = getEnvAsBool("POSTGRES_RUN_MIGRATIONS", cfg.Postgres.RunMigrations)
	cfg.Postgres.ConnMaxIdleSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", int(cfg.Postgres.ConnMaxIdleSec)))
	cfg.Postgres.ConnMaxLifeSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", int(cfg.Postgres.ConnMaxLifeSec)))

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)

	cfg.Auth.BcryptCost = getEnvAsInt("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Session.Backend = strings.ToLower(getEnv("SESSION_BACKEND", cfg.Session.Backend))
	cfg.Session.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Session.CookieName)
	cfg.Session.Secret = getEnv("SECRET_KEY", cfg.Session.Secret)
	cfg.Session.MaxAgeMinutes = getEnvAsInt("SESSION_MAX_AGE_MINUTES", cfg.Session.MaxAgeMinutes)
	cfg.Session.Secure = getEnvAsBool("SESSION_COOKIE_SECURE", cfg.Session.Secure)
	cfg.Session.SameSite = getEnv("SESSION_COOKIE_SAMESITE", cfg.Session.SameSite)
	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", cfg.Session.KeyPrefix)

	cfg.Classifier.Backend = strings.ToLower(getEnv("CLASSIFIER_BACKEND", cfg.Classifier.Backend))
	cfg.Classifier.ModelPath = getEnv("CLASSIFIER_MODEL_PATH", cfg.Classifier.ModelPath)
	cfg.Classifier.SpamdAddr = getEnv("CLASSIFIER_SPAMD_ADDR", cfg.Classifier.SpamdAddr)
	cfg.Classifier.SpamdTimeoutSecs = getEnvAsInt("CLASSIFIER_SPAMD_TIMEOUT_SECONDS", cfg.Classifier.SpamdTimeoutSecs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendRedis, SessionBackendCookie:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Classifier.Backend {
	case ClassifierBackendModel, ClassifierBackendSpamAssassin, ClassifierBackendNone:
	default:
		return fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend)
	}
	if c.Session.Backend == SessionBackendCookie && strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("SECRET_KEY is required for cookie sessions")
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

// MaxAge returns the session lifetime.
func (s SessionConfig) MaxAge() time.Duration {
	if s.MaxAgeMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.MaxAgeMinutes) * time.Minute
}

// SameSiteMode maps the configured value onto the cookie attribute.
func (s SessionConfig) SameSiteMode() string {
	switch strings.ToLower(s.SameSite) {
	case "strict":
		return "Strict"
	case "none":
		return "None"
	default:
		return "Lax"
	}
}

// SpamdTimeout returns the dial timeout for spamd.
func (c ClassifierConfig) SpamdTimeout() time.Duration {
	if c.SpamdTimeoutSecs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.SpamdTimeoutSecs) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
