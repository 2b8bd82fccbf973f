package leave

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const balanceLockPrefix = "lock:leave-balance:"

func BalanceLockKey(employeeID string) string {
	return balanceLockPrefix + employeeID
}

//go:generate mockgen -source=leave_lock.go -destination=mock/leave_lock_mock.go -package=mock

// BalanceLocker serializes approvals touching one employee's balance. The
// conditional decrement stays the source of truth; the lock only keeps
// concurrent approvals from piling onto the same rows.
type BalanceLocker interface {
	Lock(ctx context.Context, employeeID uuid.UUID) (release func(), err error)
}

type redisBalanceLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisBalanceLocker(client *redislock.Client, ttl time.Duration, logger ...*zap.Logger) BalanceLocker {
	l := zap.L().Named("leave.lock")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.lock")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisBalanceLocker{client: client, ttl: ttl, logger: l}
}

func (l *redisBalanceLocker) Lock(ctx context.Context, employeeID uuid.UUID) (func(), error) {
	key := BalanceLockKey(employeeID.String())
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	})
	if err != nil {
		return func() {}, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("release balance lock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
