package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`
	// LogFile, when set, receives a rotated JSON copy of the log.
	LogFile string `env:"LOG_FILE"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres" validate:"oneof=postgres redis"`
	DatabaseURL string `env:"DATABASE_URL"                       validate:"required_if=StoreDriver postgres"`
	RedisURL    string `env:"REDIS_URL"                          validate:"required_if=StoreDriver redis"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"acct"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret  string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTIssuer  string `env:"JWT_ISSUER"          envDefault:"accounts"`
	BcryptCost int    `env:"BCRYPT_COST"         envDefault:"10" validate:"min=4,max=31"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	MailFrom     string `env:"MAIL_FROM"      validate:"required_if=Env production,required_if=Env staging"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Accounts"`

	// PublicBaseURL is where this API is reachable; emailed links point here.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	// AppBaseURL serves the browser pages the one-tap link redirects to.
	AppBaseURL         string   `env:"APP_BASE_URL"         envDefault:"http://localhost:3000" validate:"required,url"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	PermitReapSchedule string `env:"PERMIT_REAP_SCHEDULE" envDefault:"@every 1m"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SeedConfig is read by cmd/seed only.
type SeedConfig struct {
	Env         string `env:"ENV"          envDefault:"local"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres" validate:"oneof=postgres redis"`
	DatabaseURL string `env:"DATABASE_URL"                       validate:"required_if=StoreDriver postgres"`
	RedisURL    string `env:"REDIS_URL"                          validate:"required_if=StoreDriver redis"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"acct"`
	BcryptCost  int    `env:"BCRYPT_COST"  envDefault:"10" validate:"min=4,max=31"`

	AdminEmail    string `env:"SEED_ADMIN_EMAIL,required"    validate:"required,email"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD,required" validate:"required"`
	AdminName     string `env:"SEED_ADMIN_NAME"              envDefault:"Admin"`
}

func LoadSeed() (*SeedConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &SeedConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
