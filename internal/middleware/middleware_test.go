package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-leave/internal/auth/token"
	"go-leave/internal/middleware"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error body: %s", w.Body.String())
	return errBody["code"].(string)
}

func TestAuthMiddleware(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour)

	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(issuer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":     c.GetString("user_id"),
			"employee_id": c.GetString("employee_id"),
			"role":        c.GetString("role"),
			"department":  c.GetString("department"),
			"ctx_user":    contextutil.GetUserID(c.Request.Context()),
		})
	})

	raw, err := issuer.Issue("user-1", "emp-1", "manager", "engineering")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "emp-1", body["employee_id"])
		assert.Equal(t, "manager", body["role"])
		assert.Equal(t, "engineering", body["department"])
		assert.Equal(t, "user-1", body["ctx_user"])
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: raw})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRBACAuthorize(t *testing.T) {
	enforcer, err := infra.NewEnforcer()
	require.NoError(t, err)
	rbacService, err := rbac.NewService(enforcer)
	require.NoError(t, err)

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		r.PUT("/leaves/:id/status",
			func(c *gin.Context) {
				if role != "" {
					c.Set("role", role)
				}
				c.Next()
			},
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionDecide),
			func(c *gin.Context) { c.Status(http.StatusNoContent) },
		)
		return r
	}

	cases := []struct {
		role string
		want int
	}{
		{role: "manager", want: http.StatusNoContent},
		{role: "employee", want: http.StatusForbidden},
		{role: "", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run("role "+tc.role, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tc.role).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/leaves/1/status", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestIdempotency(t *testing.T) {
	const employeeID = "emp-1"
	cacheKey := middleware.IdempotencyCacheKey("/leaves", employeeID, "key-1")
	lockKey := cacheKey + ":lock"

	newRouter := func(t *testing.T, handlerCalled *bool) (*gin.Engine, redismock.ClientMock) {
		rdb, mock := redismock.NewClientMock()
		r := gin.New()
		r.POST("/leaves",
			func(c *gin.Context) {
				c.Set("employee_id", employeeID)
				c.Next()
			},
			middleware.Idempotency(rdb),
			func(c *gin.Context) {
				*handlerCalled = true
				assert.Equal(t, cacheKey, c.GetString("idempotency_cache_key"))
				assert.Equal(t, lockKey, c.GetString("idempotency_lock_key"))
				c.Status(http.StatusCreated)
			},
		)
		return r, mock
	}

	post := func(r *gin.Engine, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/leaves", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("first request acquires lock", func(t *testing.T) {
		called := false
		r, mock := newRouter(t, &called)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)

		w := post(r, "key-1")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replays stored response", func(t *testing.T) {
		called := false
		r, mock := newRouter(t, &called)
		mock.ExpectGet(cacheKey).SetVal(`{"id":"leave-1","status":"pending"}`)

		w := post(r, "key-1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		data := decode(t, w)["data"].(map[string]any)
		assert.Equal(t, "leave-1", data["id"])
	})

	t.Run("concurrent duplicate is rejected", func(t *testing.T) {
		called := false
		r, mock := newRouter(t, &called)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		w := post(r, "key-1")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.False(t, called)
	})

	t.Run("no key passes through", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		r := gin.New()
		r.POST("/leaves", middleware.Idempotency(rdb), func(c *gin.Context) { c.Status(http.StatusCreated) })

		w := post(r, "")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRateLimitByIP(t *testing.T) {
	r := gin.New()
	r.GET("/ping", middleware.RateLimitByIP(0.001, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDAndContextLogger(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	r.GET("/rid", func(c *gin.Context) {
		c.String(http.StatusOK, contextutil.GetRequestID(c.Request.Context()))
	})

	t.Run("propagates header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rid", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Body.String())
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces oversized header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rid", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Len(t, w.Body.String(), 36)
	})

	t.Run("generates one", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rid", nil))

		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
	})
}
