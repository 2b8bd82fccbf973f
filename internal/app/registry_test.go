package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-leave/internal/app"
	"go-leave/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRegisterModules(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:          "secret",
		AccessTokenTTL:     time.Hour,
		DefaultCasualDays:  12,
		DefaultMedicalDays: 10,
		RateLimitRPS:       5,
		RateLimitBurst:     10,
	}

	r := app.NewRouter(zap.NewNop())
	require.NoError(t, app.RegisterModules(r, cfg, db, nil, zap.NewNop()))

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/auth/me",
		"POST /api/v1/leaves",
		"GET /api/v1/leaves",
		"GET /api/v1/leaves/mine",
		"GET /api/v1/leaves/:id",
		"PUT /api/v1/leaves/:id/status",
		"GET /api/v1/leaves/balance",
		"GET /api/v1/employees/:id/balance",
		"GET /api/v1/employees/:id",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaves/mine", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
