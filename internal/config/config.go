package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Port             int
	ModelSource      string
	ModelPath        string
	ModelName        string
	DatabaseURL      string
	DBPoolSize       int
	RedisURL         string
	CacheTTL         time.Duration
	LogLevel         string
	BatchConcurrency int
	MaxBatchSize     int
	RequestTimeout   time.Duration
}

var defaults = map[string]interface{}{
	"PORT":              8080,
	"MODEL_SOURCE":      SourceFile,
	"MODEL_PATH":        "model.json",
	"MODEL_NAME":        "nutrigrade-forest",
	"DATABASE_URL":      "",
	"DB_POOL_SIZE":      10,
	"REDIS_URL":         "",
	"CACHE_TTL":         "10m",
	"LOG_LEVEL":         "info",
	"BATCH_CONCURRENCY": 8,
	"MAX_BATCH_SIZE":    100,
	"REQUEST_TIMEOUT":   "30s",
}

// Load configuration from defaults overridden by env
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := &Config{
		Port:             k.Int("PORT"),
		ModelSource:      strings.ToLower(k.String("MODEL_SOURCE")),
		ModelPath:        k.String("MODEL_PATH"),
		ModelName:        k.String("MODEL_NAME"),
		DatabaseURL:      k.String("DATABASE_URL"),
		DBPoolSize:       k.Int("DB_POOL_SIZE"),
		RedisURL:         k.String("REDIS_URL"),
		LogLevel:         k.String("LOG_LEVEL"),
		BatchConcurrency: k.Int("BATCH_CONCURRENCY"),
		MaxBatchSize:     k.Int("MAX_BATCH_SIZE"),
	}
	var err error
	if cfg.CacheTTL, err = duration(k, "CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = duration(k, "REQUEST_TIMEOUT"); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// duration parses a Go duration string. An empty value falls back to the
// default; anything else that does not parse is rejected.
func duration(k *koanf.Koanf, key string) (time.Duration, error) {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		raw = defaults[key].(string)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, k.String(key), err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	return d, nil
}

func (c *Config) validate() error {
	switch c.ModelSource {
	case SourceFile:
		if c.ModelPath == "" {
			return fmt.Errorf("MODEL_PATH is required when MODEL_SOURCE=%s", SourceFile)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when MODEL_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown MODEL_SOURCE %q", c.ModelSource)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", c.MaxBatchSize)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
