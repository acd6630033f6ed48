package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process-level configuration. Empty backend URLs select the
// in-memory implementation of that backend.
type Server struct {
	Addr        string `env:"FESTREG_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	AdminToken    string        `env:"ADMIN_TOKEN"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	TxTimeout      time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`

	PublicID PublicIDConfig
	Redis    RedisConfig
	Audit    AuditConfig
}

// PublicIDConfig shapes participant public IDs: prefix, two-digit year, then
// the sequence zero-padded to Width.
type PublicIDConfig struct {
	Prefix string `env:"PUBLIC_ID_PREFIX" envDefault:"FEST"`
	Width  int    `env:"PUBLIC_ID_WIDTH" envDefault:"4"`
}

// RedisConfig backs the idempotency key store.
type RedisConfig struct {
	URL            string        `env:"REDIS_URL"`
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns   int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout    time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout    time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout   time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// AuditConfig controls audit publishing and the Kafka relay.
type AuditConfig struct {
	KafkaBrokers  []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic         string        `env:"AUDIT_TOPIC" envDefault:"festreg.audit"`
	BufferSize    int           `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`
	OpsSampleRate float64       `env:"AUDIT_OPS_SAMPLE_RATE" envDefault:"1"`
	RelayInterval time.Duration `env:"AUDIT_RELAY_INTERVAL" envDefault:"1s"`

	// OpsSampleRates overrides the rate per action, e.g. "login_succeeded:0.1".
	OpsSampleRates map[string]float64 `env:"AUDIT_OPS_SAMPLE_RATES" envSeparator:"," envKeyValSeparator:":"`
}

// FromEnv parses and validates the server configuration.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	var errs []error
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must not be empty"))
	}
	if c.PublicID.Width < 1 || c.PublicID.Width > 12 {
		errs = append(errs, fmt.Errorf("PUBLIC_ID_WIDTH must be between 1 and 12, got %d", c.PublicID.Width))
	}
	if strings.ContainsAny(c.PublicID.Prefix, "@ \t") {
		errs = append(errs, fmt.Errorf("PUBLIC_ID_PREFIX must not contain '@' or whitespace, got %q", c.PublicID.Prefix))
	}
	if c.TxTimeout <= 0 {
		errs = append(errs, errors.New("TX_TIMEOUT must be positive"))
	}
	if c.Audit.OpsSampleRate < 0 || c.Audit.OpsSampleRate > 1 {
		errs = append(errs, fmt.Errorf("AUDIT_OPS_SAMPLE_RATE must be within [0, 1], got %v", c.Audit.OpsSampleRate))
	}
	for action, rate := range c.Audit.OpsSampleRates {
		if rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("AUDIT_OPS_SAMPLE_RATES[%s] must be within [0, 1], got %v", action, rate))
		}
	}
	return errors.Join(errs...)
}

// UsesPostgres reports whether a database URL selects the PostgreSQL stores.
func (c Server) UsesPostgres() bool { return c.DatabaseURL != "" }
