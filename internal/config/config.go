package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv string

	DBPath   string
	DBDriver string

	// RedisAddr empty disables the gRPC analytics cache.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	CacheTTL       time.Duration

	GRPCPort              int
	GRPCReflectionEnabled bool

	HTTPPort        int
	HTTPCORSOrigins []string

	KafkaBrokers    []string
	KafkaAlertTopic string

	DiscordBotToken     string
	DiscordAlertChannel string

	// SeedFile is an optional YAML user directory loaded at startup.
	SeedFile string

	ShutdownTimeout time.Duration
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		DBPath:                getEnv("DB_PATH", "./data/database.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getInt("REDIS_DB", 0),
		RedisKeyPrefix:        getEnv("REDIS_KEY_PREFIX", "audit:"),
		CacheTTL:              getDuration("CACHE_TTL", 10*time.Minute),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		HTTPPort:              getInt("HTTP_PORT", 8080),
		HTTPCORSOrigins:       getList("HTTP_CORS_ORIGINS"),
		KafkaBrokers:          getList("KAFKA_BROKERS"),
		KafkaAlertTopic:       getEnv("KAFKA_ALERT_TOPIC", "audit.alerts"),
		DiscordBotToken:       os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordAlertChannel:   os.Getenv("DISCORD_ALERT_CHANNEL"),
		SeedFile:              os.Getenv("SEED_FILE"),
		ShutdownTimeout:       getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getList splits a comma separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
