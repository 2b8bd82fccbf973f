package config_test

import (
	"testing"
	"time"

	"go-leave/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DEFAULT_CASUAL_DAYS", "")
		t.Setenv("DEFAULT_MEDICAL_DAYS", "")
		t.Setenv("ACCESS_TOKEN_TTL", "")

		cfg := config.Load()

		assert.Equal(t, 12, cfg.DefaultCasualDays)
		assert.Equal(t, 10, cfg.DefaultMedicalDays)
		assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DEFAULT_CASUAL_DAYS", "15")
		t.Setenv("BALANCE_LOCK_TTL", "3s")
		t.Setenv("RATE_LIMIT_RPS", "0.5")

		cfg := config.Load()

		assert.Equal(t, 15, cfg.DefaultCasualDays)
		assert.Equal(t, 3*time.Second, cfg.BalanceLockTTL)
		assert.Equal(t, 0.5, cfg.RateLimitRPS)
	})

	t.Run("malformed values fall back", func(t *testing.T) {
		t.Setenv("DEFAULT_MEDICAL_DAYS", "ten")
		t.Setenv("IDEMPOTENCY_TTL", "soon")

		cfg := config.Load()

		assert.Equal(t, 10, cfg.DefaultMedicalDays)
		assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_PORT", "5432")
		return config.Load()
	}

	t.Run("success", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("negative missing jwt secret", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecret = ""
		assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
	})

	t.Run("negative invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.DBPort = "not-a-port"
		assert.ErrorContains(t, cfg.Validate(), "DB_PORT")
	})

	t.Run("negative days", func(t *testing.T) {
		cfg := valid()
		cfg.DefaultCasualDays = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("kafka broker required", func(t *testing.T) {
		cfg := valid()
		cfg.KafkaBroker = ""
		assert.Error(t, cfg.ValidateKafka())
	})
}
