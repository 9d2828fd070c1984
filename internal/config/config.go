package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"notificationRelay/internal/modules/notifications/domain"
)

type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Kafka    KafkaConfig
	Security SecurityConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stream   StreamConfig
}

type ServerConfig struct {
	Port string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type KafkaConfig struct {
	Brokers         []string
	GroupID         string
	OfferTopic      string
	ExperienceTopic string
	BatchSize       int
	BatchTimeout    time.Duration
}

// Topics returns the configured topics, skipping blanks and duplicates.
func (k KafkaConfig) Topics() []string {
	seen := make(map[string]struct{}, 2)
	var topics []string
	for _, topic := range []string{k.OfferTopic, k.ExperienceTopic} {
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
	AdminRole    string
}

// Verifying reports whether credentials are signature-checked locally.
func (s SecurityConfig) Verifying() bool {
	return s.JWTSecret != "" || s.JWTPublicKey != ""
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StreamConfig struct {
	TokenTTL  time.Duration
	Heartbeat time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: getEnv("PORT", "8080")},
		Logging: LoggingConfig{
			Directory: getEnv("LOG_DIR", "./logs"),
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "text"),
		},
		Kafka: KafkaConfig{
			Brokers:         brokersFromEnv(),
			GroupID:         getEnv("KAFKA_GROUP_ID", domain.DefaultConsumerGroup),
			OfferTopic:      getEnv("KAFKA_OFFER_TOPIC", domain.DefaultOfferTopic),
			ExperienceTopic: getEnv("KAFKA_EXPERIENCE_TOPIC", domain.DefaultExperienceTopic),
		},
		Security: SecurityConfig{
			JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
			JWTPublicKey: strings.TrimSpace(os.Getenv("JWT_PUBLIC_KEY")),
			AdminRole:    getEnv("ADMIN_ROLE", "admin"),
		},
		Database: DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	var err error
	if cfg.Kafka.BatchSize, err = getInt("KAFKA_BATCH_SIZE", 1); err != nil {
		return nil, err
	}
	if cfg.Kafka.BatchSize < 1 {
		return nil, fmt.Errorf("KAFKA_BATCH_SIZE must be at least 1, got %d", cfg.Kafka.BatchSize)
	}
	if cfg.Kafka.BatchTimeout, err = getDuration("KAFKA_BATCH_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Database.MaxConns, err = getInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Stream.TokenTTL, err = getDuration("STREAM_TOKEN_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Stream.Heartbeat, err = getDuration("STREAM_HEARTBEAT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Stream.Heartbeat <= 0 {
		return nil, fmt.Errorf("STREAM_HEARTBEAT must be positive, got %s", cfg.Stream.Heartbeat)
	}
	return cfg, nil
}

// brokersFromEnv prefers KAFKA_BROKERS and falls back to KAFKA_BROKER.
func brokersFromEnv() []string {
	raw := os.Getenv("KAFKA_BROKERS")
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("KAFKA_BROKER")
	}
	var brokers []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			brokers = append(brokers, part)
		}
	}
	return brokers
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return i, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
