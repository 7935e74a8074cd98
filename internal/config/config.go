package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Registry API client.
	APIBaseURL   string
	APITimeout   time.Duration
	APIRateLimit float64 // requests per second, 0 disables limiting
	APICacheSize int
	APICacheTTL  time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Sync pipeline.
	SyncSchedule string
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	BatchSize    int
	// BatchFlushInterval bounds how long the Kafka writer holds a partial batch.
	BatchFlushInterval time.Duration

	SessionDir string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	apiRateLimit, err := parseNonNegativeFloat("API_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	apiCacheSize, err := parsePositiveInt("API_CACHE_SIZE", 500)
	if err != nil {
		return nil, err
	}

	apiCacheTTL, err := parsePositiveDuration("API_CACHE_TTL", "1m")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:         sharedcfg.EnvOrDefault("API_BASE_URL", "https://back.gidroatlas.info"),
		APITimeout:         apiTimeout,
		APIRateLimit:       apiRateLimit,
		APICacheSize:       apiCacheSize,
		APICacheTTL:        apiCacheTTL,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		SyncSchedule:       sharedcfg.EnvOrDefault("SYNC_SCHEDULE", "@every 5m"),
		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "water-objects"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		SessionDir:         sharedcfg.EnvOrDefault("SESSION_DIR", defaultSessionDir()),
	}

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid API_BASE_URL")
	}
	if _, err := cron.ParseStandard(cfg.SyncSchedule); err != nil {
		return nil, fmt.Errorf("invalid SYNC_SCHEDULE: %w", err)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gidroatlas")
	}
	return ".gidroatlas"
}
