package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Port               string  `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	LogLevelName       string  `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	HTTPTimeoutSeconds int     `envconfig:"HTTP_TIMEOUT_SECONDS" default:"15" validate:"gt=0"`
	MaxUploadMB        int64   `envconfig:"MAX_UPLOAD_MB" default:"32" validate:"gt=0"`
	PublicDir          string  `envconfig:"PUBLIC_DIR" default:"public" validate:"required"`
	CurrencyRate       float64 `envconfig:"CURRENCY_RATE" default:"4.7" validate:"gt=0"`
	StoreBackend       string  `envconfig:"STORE_BACKEND" default:"memory" validate:"oneof=memory redis"`
	Redis              RedisConfig
}

// RedisConfig is read from REDIS_URL, REDIS_ADDR, REDIS_PASSWORD and REDIS_DB.
type RedisConfig struct {
	URL      string `envconfig:"URL"`
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"gte=0"`
}

// Load reads an optional .env file, then the process environment.
func Load(envFiles ...string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.LogLevelName = strings.ToLower(strings.TrimSpace(cfg.LogLevelName))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.StoreBackend == BackendRedis && c.Redis.URL == "" && c.Redis.Addr == "" {
		return fmt.Errorf("config validation failed: REDIS_URL or REDIS_ADDR is required for the redis backend")
	}
	return nil
}

func (c Config) LogLevel() slog.Level {
	switch c.LogLevelName {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }
