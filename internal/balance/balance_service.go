package balance

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	balanceerrors "go-leave/internal/balance/errors"
	"go-leave/internal/identity"
	"go-leave/internal/rbac"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	BalanceKeyPrefix    = "leave:balance:"
	GenerationKeyPrefix = "leave:balance:gen:"
)

func GetBalanceKey(employeeID string) string {
	return BalanceKeyPrefix + employeeID
}

// GetGenerationKey names the counter Invalidate bumps. A cached balance is
// served only while it carries the current generation, so a read that loaded
// from the store before an approval committed cannot outlive the invalidation.
func GetGenerationKey(employeeID string) string {
	return GenerationKeyPrefix + employeeID
}

type cachedBalance struct {
	Generation int64           `json:"generation"`
	Balance    BalanceResponse `json:"balance"`
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	GetBalance(ctx context.Context, p identity.Principal, employeeID string) (BalanceResponse, error)
	Invalidate(ctx context.Context, employeeID uuid.UUID)
}

type service struct {
	store    Store
	rbac     rbac.Service
	rdb      *redis.Client
	cacheTTL time.Duration
	sf       *singleflight.Group
	logger   *zap.Logger
}

func NewService(store Store, rbacService rbac.Service, logger ...*zap.Logger) Service {
	return NewServiceWithCache(store, rbacService, nil, 0, logger...)
}

func NewServiceWithCache(
	store Store,
	rbacService rbac.Service,
	rdb *redis.Client,
	cacheTTL time.Duration,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &service{
		store:    store,
		rbac:     rbacService,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		sf:       &singleflight.Group{},
		logger:   l,
	}
}

func (s *service) GetBalance(ctx context.Context, p identity.Principal, employeeID string) (BalanceResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	id, err := uuid.Parse(employeeID)
	if err != nil {
		return BalanceResponse{}, balanceerrors.ErrInvalidEmployeeID
	}

	action := rbac.ActionReadAny
	if p.Owns(id) {
		action = rbac.ActionReadOwn
	}
	if err := s.rbac.Authorize(p, rbac.ResourceBalance, action); err != nil {
		log.Warn("get balance forbidden",
			zap.String("employee_id", employeeID),
			zap.String("role", p.Role.String()),
		)
		return BalanceResponse{}, err
	}

	cacheKey := GetBalanceKey(id.String())
	genKey := GetGenerationKey(id.String())

	// generation is read before the store so a concurrent Invalidate always
	// lands after it
	var generation int64
	if s.rdb != nil {
		vals, err := s.rdb.MGet(ctx, cacheKey, genKey).Result()
		if err != nil {
			log.Warn("balance cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else {
			generation = parseGeneration(vals[1])
			if resp, ok := decodeCached(vals[0], generation); ok {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (any, error) {
		b, err := s.store.GetBalance(ctx, id)
		if err != nil {
			return nil, err
		}

		resp := mapToResponse(id.String(), b)

		if s.rdb != nil {
			if jsonData, err := json.Marshal(cachedBalance{Generation: generation, Balance: resp}); err == nil {
				if err := s.rdb.Set(ctx, cacheKey, string(jsonData), s.cacheTTL).Err(); err != nil {
					log.Warn("balance cache write failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}

		return resp, nil
	})
	if err != nil {
		return BalanceResponse{}, err
	}

	return v.(BalanceResponse), nil
}

// Invalidate bumps the generation and drops the cached balance. Failures are
// logged only: the cache entry expires on its own.
func (s *service) Invalidate(ctx context.Context, employeeID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	genKey := GetGenerationKey(employeeID.String())
	if err := s.rdb.Incr(ctx, genKey).Err(); err != nil {
		s.logger.Error("failed to bump balance cache generation",
			zap.String("key", genKey),
			zap.Error(err),
		)
	}
	cacheKey := GetBalanceKey(employeeID.String())
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate balance cache",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}

func parseGeneration(v any) int64 {
	raw, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func decodeCached(v any, generation int64) (BalanceResponse, bool) {
	raw, ok := v.(string)
	if !ok {
		return BalanceResponse{}, false
	}
	var cached cachedBalance
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.Generation != generation {
		return BalanceResponse{}, false
	}
	return cached.Balance, true
}
