package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string
	// AdminTokenHash is the bcrypt hash of the bootstrap admin token used by
	// operational scripts that cannot mint JWT sessions. Empty disables the
	// bootstrap path entirely.
	AdminTokenHash string
	DatabaseURL    string
	Redis          RedisConfig
	Kafka          KafkaConfig
}

// RedisConfig configures the optional Redis connection. An empty URL means
// Redis is not configured and in-memory fallbacks are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox relay and the auditworker
// consumer. No seeds means the relay is disabled and audit entries stay in
// the outbox table only.
type KafkaConfig struct {
	Seeds         []string
	AuditTopic    string
	ConsumerGroup string
	ArchivePath   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("STAGEGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "stagegate.audit"
	}
	group := os.Getenv("KAFKA_CONSUMER_GROUP")
	if group == "" {
		group = "stagegate-audit-worker"
	}
	archivePath := os.Getenv("AUDIT_ARCHIVE_PATH")
	if archivePath == "" {
		archivePath = "audit-archive.jsonl"
	}

	var seeds []string
	if raw := os.Getenv("KAFKA_SEEDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				seeds = append(seeds, s)
			}
		}
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Seeds:         seeds,
			AuditTopic:    topic,
			ConsumerGroup: group,
			ArchivePath:   archivePath,
		},
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
