package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr string

	// Issuer identity: every attestation, credential, and token minted by
	// this process is bound to this ID and signed with a key derived from
	// SigningSecret. Multiple issuer identities may coexist in one process
	// (tests construct their own), but the wired services use this one.
	IssuerID      string
	SigningSecret string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	// TracingEnabled switches the services from the no-op tracer to the
	// OpenTelemetry adapter. Span export follows the global otel provider.
	TracingEnabled bool

	ShutdownTimeout time.Duration
}

// PostgresConfig holds the connection settings for the credential, attestation,
// and token stores. Empty URL means the in-memory stores are used.
type PostgresConfig struct {
	URL string
}

// RedisConfig holds the connection settings for the distributed revocation
// list. Empty URL means the in-memory revocation store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the event bus settings. Empty Brokers disables publishing;
// events are still recorded in the local audit store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("SIGIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	issuerID := os.Getenv("SIGIL_ISSUER_ID")
	if issuerID == "" {
		issuerID = "did:sigil:issuer"
	}

	signingSecret := os.Getenv("SIGIL_SIGNING_SECRET")
	if signingSecret == "" {
		// Use a default for development - should be overridden in production
		signingSecret = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("SIGIL_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("SIGIL_KAFKA_TOPIC")
	if topic == "" {
		topic = "sigil.issuance.events"
	}

	return Server{
		Addr:          addr,
		IssuerID:      issuerID,
		SigningSecret: signingSecret,
		Postgres: PostgresConfig{
			URL: os.Getenv("SIGIL_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SIGIL_REDIS_URL"),
			PoolSize:     envInt("SIGIL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SIGIL_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		TracingEnabled:  envBool("SIGIL_TRACING_ENABLED"),
		ShutdownTimeout: 10 * time.Second,
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
