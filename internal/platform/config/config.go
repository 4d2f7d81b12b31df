// Package config builds process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	SeedIdentities bool

	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
}

// Redis configures the optional Redis session backend. An empty URL means
// Redis is not configured and the in-memory store is used.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional Postgres backends for sessions and audit.
type Postgres struct {
	SessionDSN string
	AuditDSN   string
}

// Kafka configures the optional audit event publisher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("FACTGATE_ADDR", ":8080"),
		JWTSigningKey:  envOr("FACTGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:      envOr("FACTGATE_JWT_ISSUER", "factgate"),
		SessionTTL:     envDuration("FACTGATE_SESSION_TTL", 8*time.Hour),
		SweepInterval:  envDuration("FACTGATE_SWEEP_INTERVAL", 5*time.Minute),
		SeedIdentities: os.Getenv("FACTGATE_SEED_IDENTITIES") == "true",
		Redis: Redis{
			URL:          os.Getenv("FACTGATE_REDIS_URL"),
			PoolSize:     envInt("FACTGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("FACTGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("FACTGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("FACTGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("FACTGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			SessionDSN: os.Getenv("FACTGATE_SESSION_POSTGRES_DSN"),
			AuditDSN:   os.Getenv("FACTGATE_AUDIT_POSTGRES_DSN"),
		},
		Kafka: Kafka{
			Topic: envOr("FACTGATE_KAFKA_AUDIT_TOPIC", "factgate.audit"),
		},
	}
	if brokers := os.Getenv("FACTGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
