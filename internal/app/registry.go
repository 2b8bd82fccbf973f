package app

import (
	"net/http"

	"go-leave/internal/auth"
	"go-leave/internal/auth/token"
	"go-leave/internal/balance"
	"go-leave/internal/config"
	"go-leave/internal/employee"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/middleware"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/connection"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// RegisterModules wires repositories, services and handlers. rdb may be nil,
// in which case balance caching, the approval lock and idempotency keys are
// disabled.
func RegisterModules(
	router *gin.Engine,
	cfg *config.Config,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- Repositories ---
	authRepo := auth.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService, err := rbac.NewService(enforcer, logger)
	if err != nil {
		return err
	}

	// --- Services ---
	tokens := token.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	balanceStore := balance.NewStore(balanceRepo, balance.Defaults{
		Casual:  cfg.DefaultCasualDays,
		Medical: cfg.DefaultMedicalDays,
	}, logger)
	balanceService := balance.NewServiceWithCache(balanceStore, rbacService, rdb, cfg.BalanceCacheTTL, logger)
	employeeService := employee.NewServiceWithOutbox(employeeRepo, balanceStore, rbacService, outboxRepo, logger)
	authService := auth.NewService(db, authRepo, employeeService, employeeRepo, tokens, logger)

	var locker leave.BalanceLocker
	if rdb != nil {
		locker = leave.NewRedisBalanceLocker(connection.NewLocker(rdb), cfg.BalanceLockTTL, logger)
	}
	leaveService := leave.NewServiceWithInfra(db, leaveRepo, balanceStore, rbacService, outboxRepo, locker, balanceService, logger)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, cfg.IsProduction(), logger)
	balanceHandler := balance.NewHandler(balanceService, logger)
	employeeHandler := employee.NewHandler(employeeService, logger)
	leaveHandler := leave.NewHandler(leaveService, logger)
	if rdb != nil {
		leaveHandler = leave.NewHandlerWithRedis(leaveService, rdb, cfg.IdempotencyTTL, logger)
	}
	rbacHandler := rbac.NewHandler(rbacService, logger)

	// --- Routes Registration ---
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, nil)
	})

	limit := rate.Limit(cfg.RateLimitRPS)
	v1 := router.Group("/api/v1")
	auth.RegisterRoutes(v1, authHandler, tokens, limit, cfg.RateLimitBurst)

	api := v1.Group("")
	api.Use(middleware.AuthMiddleware(tokens), middleware.RateLimitByEmployee(limit*4, cfg.RateLimitBurst*4))
	{
		balance.RegisterRoutes(api, balanceHandler)
		employee.RegisterRoutes(api, employeeHandler)
		if rdb != nil {
			leave.RegisterRoutes(api, leaveHandler, rbacService, rdb)
		} else {
			leave.RegisterRoutes(api, leaveHandler, rbacService)
		}
		rbac.RegisterRoutes(api, rbacHandler)
	}

	return nil
}

// NewRouter builds the engine with the request-scoped middleware every
// entry point shares.
func NewRouter(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.ContextLogger(logger))
	return r
}
