// Package config builds runtime configuration from environment variables so
// main stays lean. Each of the three stores gets its own credentialed
// connection block; no store ever shares credentials with another.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Addr     string `env:"VEIL_ADDR, default=:8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	Pretty   bool   `env:"LOG_PRETTY, default=false"`

	PersonalDB  PostgresConfig `env:", prefix=PERSONAL_"`
	AuthDB      PostgresConfig `env:", prefix=AUTH_"`
	PseudonymDB PostgresConfig `env:", prefix=PSEUDONYMS_"`

	Vault VaultConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

type PostgresConfig struct {
	Host     string `env:"HOST, default=localhost"`
	Port     int    `env:"PORT, default=5432"`
	User     string `env:"USER"`
	Password string `env:"PGPASSWORD"`
	Database string `env:"DATABASE"`
	SSLMode  string `env:"SSLMODE, default=disable"`
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type VaultConfig struct {
	Addr     string        `env:"VAULT_ADDR, default=http://localhost:8200"`
	Token    string        `env:"VAULT_TOKEN"`
	KeysPath string        `env:"VAULT_KEYS_PATH, default=kv/data/keys"`
	CacheTTL time.Duration `env:"VAULT_CACHE_TTL, default=5m"`
}

type RedisConfig struct {
	// URL is optional; empty disables the rotation-signal subscription.
	URL          string        `env:"REDIS_URL"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT, default=3s"`
}

type KafkaConfig struct {
	// Brokers is optional; empty disables the Kafka audit publisher and the
	// process falls back to log-only auditing.
	Brokers    []string `env:"KAFKA_BROKERS"`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC, default=veil.audit"`
}

// Load reads configuration from the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
