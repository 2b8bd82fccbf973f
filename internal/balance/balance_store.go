package balance

import (
	"context"
	"database/sql"

	balanceerrors "go-leave/internal/balance/errors"
	"go-leave/internal/shared/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store owns per-employee leave balances. Reads have no side effects; the
// only mutation after provisioning is Deduct.
//
//go:generate mockgen -source=balance_store.go -destination=mock/balance_store_mock.go -package=mock
type Store interface {
	WithTx(tx *sql.Tx) Store
	GetBalance(ctx context.Context, employeeID uuid.UUID) (Balance, error)
	Deduct(ctx context.Context, employeeID uuid.UUID, category Category, amount int) error
	Provision(ctx context.Context, employeeID uuid.UUID) error
}

type store struct {
	repo     Repository
	defaults Defaults
	logger   *zap.Logger
}

func NewStore(repo Repository, defaults Defaults, logger ...*zap.Logger) Store {
	l := zap.L().Named("balance.store")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.store")
	}
	return &store{repo: repo, defaults: defaults, logger: l}
}

func (s *store) WithTx(tx *sql.Tx) Store {
	return &store{repo: s.repo.WithTx(tx), defaults: s.defaults, logger: s.logger}
}

func (s *store) GetBalance(ctx context.Context, employeeID uuid.UUID) (Balance, error) {
	rows, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("get balance query failed",
			zap.String("employee_id", employeeID.String()),
			zap.Error(err),
		)
		return nil, apperror.Storage(err)
	}
	if len(rows) == 0 {
		return nil, balanceerrors.ErrBalanceNotFound
	}

	b := make(Balance, len(Categories()))
	for _, c := range Categories() {
		b[c] = 0
	}
	for _, row := range rows {
		b[Category(row.Category)] = row.Days
	}
	return b, nil
}

func (s *store) Deduct(ctx context.Context, employeeID uuid.UUID, category Category, amount int) error {
	if amount <= 0 {
		return balanceerrors.ErrInvalidAmount
	}
	if _, err := ParseCategory(category.String()); err != nil {
		return err
	}

	ok, err := s.repo.ConditionalDecrement(ctx, employeeID, category, amount)
	if err != nil {
		s.logger.Error("deduct balance update failed",
			zap.String("employee_id", employeeID.String()),
			zap.String("category", category.String()),
			zap.Error(err),
		)
		return apperror.Storage(err)
	}
	if ok {
		s.logger.Debug("deduct balance success",
			zap.String("employee_id", employeeID.String()),
			zap.String("category", category.String()),
			zap.Int("amount", amount),
		)
		return nil
	}

	// Nothing changed: either the employee is unknown or the balance is short.
	rows, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		return apperror.Storage(err)
	}
	if len(rows) == 0 {
		return balanceerrors.ErrBalanceNotFound
	}

	available := 0
	for _, row := range rows {
		if row.Category == category.String() {
			available = row.Days
		}
	}
	s.logger.Warn("deduct balance insufficient",
		zap.String("employee_id", employeeID.String()),
		zap.String("category", category.String()),
		zap.Int("available", available),
		zap.Int("requested", amount),
	)
	return InsufficientBalance(category, available, amount)
}

// Provision creates the default rows for an employee. Existing rows are kept,
// so it is safe to call more than once.
func (s *store) Provision(ctx context.Context, employeeID uuid.UUID) error {
	if employeeID == uuid.Nil {
		return balanceerrors.ErrInvalidEmployeeID
	}

	rows := make([]LeaveBalance, 0, len(Categories()))
	for _, c := range Categories() {
		rows = append(rows, LeaveBalance{
			EmployeeID: employeeID,
			Category:   c.String(),
			Days:       s.defaults.Days(c),
		})
	}
	if err := s.repo.CreateIfAbsent(ctx, rows); err != nil {
		s.logger.Error("provision balance failed",
			zap.String("employee_id", employeeID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// InsufficientBalance builds the INSUFFICIENT_BALANCE error with the numbers
// the client needs to explain the refusal.
func InsufficientBalance(category Category, available, requested int) error {
	return balanceerrors.ErrInsufficientBalance.
		WithMessage("Insufficient " + category.String() + " leave balance").
		WithDetails(map[string]any{
			"category":  category.String(),
			"available": available,
			"requested": requested,
		})
}
