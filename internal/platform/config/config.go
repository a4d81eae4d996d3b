// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full service configuration. Every knob has a default that
// works for local development; production overrides via environment.
type Config struct {
	Server
	Postgres
	Redis
	Kafka
	Pipeline
}

type Server struct {
	Addr            string        `env:"RISKGATE_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"RISKGATE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"RISKGATE_LOG_LEVEL" envDefault:"info"`
}

type Postgres struct {
	// Empty DSN selects the in-memory stores.
	DSN string `env:"POSTGRES_DSN"`
}

type Redis struct {
	// Empty URL disables the shared validation cache and idempotency store.
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type Kafka struct {
	// Empty brokers disables the audit event sink.
	Brokers    string `env:"KAFKA_BROKERS"`
	AuditTopic string `env:"KAFKA_AUDIT_TOPIC" envDefault:"riskgate.audit"`
}

type Pipeline struct {
	RuleTimeout        time.Duration `env:"RULE_EVAL_TIMEOUT" envDefault:"50ms"`
	CacheTTL           time.Duration `env:"VALIDATION_CACHE_TTL" envDefault:"24h"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	HighValueThreshold float64       `env:"HIGH_VALUE_THRESHOLD" envDefault:"1000"`
	AuditBuffer        int           `env:"AUDIT_BUFFER" envDefault:"256"`

	// Geofence for plausible shipping geocodes. Zero bounds disable the check.
	GeoMinLat float64 `env:"GEO_MIN_LAT"`
	GeoMaxLat float64 `env:"GEO_MAX_LAT"`
	GeoMinLng float64 `env:"GEO_MIN_LNG"`
	GeoMaxLng float64 `env:"GEO_MAX_LNG"`
}

// GeoBoundsSet reports whether a geofence was configured.
func (p Pipeline) GeoBoundsSet() bool {
	return p.GeoMinLat != 0 || p.GeoMaxLat != 0 || p.GeoMinLng != 0 || p.GeoMaxLng != 0
}

// New loads configuration. A missing .env file is not an error.
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
