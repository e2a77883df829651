package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	Mail       MailConfig
	Analytics  AnalyticsConfig
	Cleanup    CleanupConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	PrimaryDSN      string
	ReplicaDSNs     []string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	StreamName string
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	MaxConns int
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	VerificationTTL time.Duration
}

type MailConfig struct {
	SendGridKey string
	FromAddress string
	FromName    string
}

type AnalyticsConfig struct {
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int
	PollInterval  time.Duration
	BlockTime     time.Duration
}

type CleanupConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

type CacheConfig struct {
	L1Capacity int
	L2TTL      time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func Load() (*Config, error) {
	// Load .env if it exists (local dev); deployments use real env vars
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("API_PORT", "8080"),
			AllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		Database: DatabaseConfig{
			PrimaryDSN:      getEnv("DB_PRIMARY_DSN", ""),
			ReplicaDSNs:     splitEnv("DB_REPLICA_DSNS", ""),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			StreamName: getEnv("LEDGER_STREAM_NAME", "ledger:stream"),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "analytics"),
			Username: getEnv("CLICKHOUSE_USERNAME", "clickhouse"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			MaxConns: getEnvAsInt("CLICKHOUSE_MAX_CONNS", 10),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			TokenTTL:        getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
			VerificationTTL: getEnvAsDuration("VERIFICATION_CODE_TTL", 24*time.Hour),
		},
		Mail: MailConfig{
			SendGridKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress: getEnv("MAIL_FROM", "noreply@himalai.com"),
			FromName:    getEnv("MAIL_FROM_NAME", "Himalai Expense Analysis"),
		},
		Analytics: AnalyticsConfig{
			ConsumerGroup: getEnv("ANALYTICS_CONSUMER_GROUP", "analytics-group"),
			ConsumerName:  getEnv("ANALYTICS_CONSUMER_NAME", "worker-1"),
			BatchSize:     getEnvAsInt("ANALYTICS_BATCH_SIZE", 100),
			PollInterval:  getEnvAsDuration("ANALYTICS_POLL_INTERVAL", time.Second),
			BlockTime:     getEnvAsDuration("ANALYTICS_BLOCK_TIME", 5*time.Second),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", 24*time.Hour),
			LockTTL:  getEnvAsDuration("CLEANUP_LOCK_TTL", 10*time.Minute),
		},
		Cache: CacheConfig{
			L1Capacity: getEnvAsInt("CACHE_L1_CAPACITY", 10000),
			L2TTL:      getEnvAsDuration("CACHE_L2_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
