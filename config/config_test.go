package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "3000")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("TOKEN_TTL", "bogus")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_DB", "school")

	cfg := LoadConfig()

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, "", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, "school", cfg.Mongo.DBName)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("JWT_SECRET", "  s3cret  ")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("AUTH_RATE_LIMIT", "5")

	cfg := LoadConfig()

	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, MQBackendRabbitMQ, cfg.MQ.Backend)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-1s")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
	assert.Equal(t, "fallback", getEnv("X_MISSING_KEY", "fallback"))
}
