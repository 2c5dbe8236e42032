package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "DB_PATH", "DB_DRIVER", "REDIS_ADDR", "CACHE_TTL", "GRPC_PORT",
		"GRPC_REFLECTION_ENABLED", "HTTP_PORT", "HTTP_CORS_ORIGINS", "KAFKA_BROKERS", "KAFKA_ALERT_TOPIC", "SEED_FILE"} {
		t.Setenv(k, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Empty(t, cfg.RedisAddr, "cache is off unless configured")
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.False(t, cfg.GRPCReflectionEnabled)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "audit.alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_PATH", "audit:pw@tcp(db:3306)/audit")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DISCORD_ALERT_CHANNEL", "123")

	cfg := LoadFromEnv()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTPCORSOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "123", cfg.DiscordAlertChannel)

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoadFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("GRPC_PORT", "abc")
	t.Setenv("CACHE_TTL", "-5m")
	t.Setenv("GRPC_REFLECTION_ENABLED", "maybe")

	cfg := LoadFromEnv()

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.GRPCReflectionEnabled)
}
