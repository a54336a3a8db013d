package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "v1", cfg.APIVersion)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=cinetix_db")
	assert.Contains(t, cfg.Database.DSN, "sslmode=disable")

	assert.Equal(t, 5*time.Minute, cfg.Sales.HoldWindow)
	assert.Equal(t, 30*time.Minute, cfg.Sales.CheckoutWindow)
	assert.Equal(t, 30*time.Minute, cfg.Sales.GraceWindow)
	assert.Equal(t, 5*time.Second, cfg.Sales.LockTTL)
	assert.Equal(t, int64(1900), cfg.Sales.TaxRateBP)
	assert.Equal(t, int64(100), cfg.Sales.MinorUnitScale)
	assert.Equal(t, 10, cfg.Sales.MaxSeatsPerHold)

	assert.Equal(t, 0.9, cfg.Payment.ApprovalRate)
	assert.Equal(t, 64, cfg.Realtime.SessionBuffer)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("HOLD_WINDOW_SECONDS", "120")
	t.Setenv("TAX_RATE_BP", "2100")
	t.Setenv("PAYMENT_APPROVAL_RATE", "0.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Contains(t, cfg.Database.DSN, "host=db.internal")
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Sales.HoldWindow)
	assert.Equal(t, int64(2100), cfg.Sales.TaxRateBP)
	assert.Equal(t, 0.5, cfg.Payment.ApprovalRate)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HOLD_WINDOW_SECONDS", "five")
	t.Setenv("MAX_SEATS_PER_HOLD", "lots")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Sales.HoldWindow)
	assert.Equal(t, 10, cfg.Sales.MaxSeatsPerHold)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestDerivedHelpers(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.GetServerAddress())
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.GinMode = "release"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
