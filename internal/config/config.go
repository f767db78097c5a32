// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and record backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Required when either backend is postgres, and by cmd/migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL used when STORAGE_BACKEND=redis.
	RedisURL string `mapstructure:"REDIS_URL"`

	// StorageBackend holds the per-installation key-value entries: memory, redis or postgres.
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	// StorageNamespace prefixes every key so several installations can share one store.
	StorageNamespace string `mapstructure:"STORAGE_NAMESPACE"`
	// RecordBackend holds users, checkout records, currencies and audit logs: memory or postgres.
	RecordBackend string `mapstructure:"RECORD_BACKEND"`

	// SessionTimeout is the inactivity period after which the session expires (e.g. "30m").
	SessionTimeout string `mapstructure:"SESSION_TIMEOUT"`
	// SessionCheckInterval is how often the session monitor runs (e.g. "1m").
	SessionCheckInterval string `mapstructure:"SESSION_CHECK_INTERVAL"`
	// DevicePlatform is written to device_info (android, ios, web).
	DevicePlatform string `mapstructure:"DEVICE_PLATFORM"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When set, the server publishes telemetry events to Kafka.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Worker-only: Loki URL the telemetry worker pushes events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Seed-only: the demo admin created by cmd/seed.
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("STORAGE_NAMESPACE", "storefront")
	v.SetDefault("RECORD_BACKEND", BackendMemory)
	v.SetDefault("SESSION_TIMEOUT", "30m")
	v.SetDefault("SESSION_CHECK_INTERVAL", "1m")
	v.SetDefault("DEVICE_PLATFORM", "web")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "storefront-auth")
	v.SetDefault("JWT_AUDIENCE", "storefront-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "storefront-telemetry")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "storefront-telemetry-worker")
	v.SetDefault("SEED_ADMIN_EMAIL", "admin@storefront.local")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case BackendMemory, BackendPostgres:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when STORAGE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("config: STORAGE_BACKEND must be memory, redis or postgres, got %q", c.StorageBackend)
	}
	c.RecordBackend = strings.ToLower(strings.TrimSpace(c.RecordBackend))
	if c.RecordBackend != BackendMemory && c.RecordBackend != BackendPostgres {
		return fmt.Errorf("config: RECORD_BACKEND must be memory or postgres, got %q", c.RecordBackend)
	}
	if (c.StorageBackend == BackendPostgres || c.RecordBackend == BackendPostgres) && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set for the postgres backend")
	}
	if _, err := parsePositive(c.SessionTimeout); err != nil {
		return fmt.Errorf("config: SESSION_TIMEOUT: %w", err)
	}
	if _, err := parsePositive(c.SessionCheckInterval); err != nil {
		return fmt.Errorf("config: SESSION_CHECK_INTERVAL: %w", err)
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.Env == "production" && (c.JWTPrivateKey == "" || c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}
	return nil
}

func parsePositive(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// Timeout returns the session inactivity timeout.
func (c *Config) Timeout() time.Duration {
	d, err := parsePositive(c.SessionTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// CheckInterval returns the session monitor period.
func (c *Config) CheckInterval() time.Duration {
	d, err := parsePositive(c.SessionCheckInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
