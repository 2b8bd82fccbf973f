package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-leave/internal/balance"
	balanceerrors "go-leave/internal/balance/errors"
	"go-leave/internal/identity"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledger struct {
	db       *gorm.DB
	balances balance.Store
	service  leave.Service
	manager  identity.Principal
}

func setupLedger(t *testing.T) *ledger {
	t.Helper()
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	balances := balance.NewStore(balance.NewRepository(db), balance.Defaults{Casual: 12, Medical: 10})
	mgr := seedEmployee(t, db, "morgan", "manager", "engineering")

	return &ledger{
		db:       db,
		balances: balances,
		service:  leave.NewService(sqlDB, leave.NewRepository(db), balances, newRBAC(t)),
		manager:  identity.Principal{EmployeeID: mgr.ID, Role: identity.RoleManager, Department: "engineering"},
	}
}

func (l *ledger) hire(t *testing.T, username string) identity.Principal {
	t.Helper()
	empl := seedEmployee(t, l.db, username, "employee", "engineering")
	require.NoError(t, l.balances.Provision(context.Background(), empl.ID))
	return identity.Principal{EmployeeID: empl.ID, Role: identity.RoleEmployee, Department: "engineering"}
}

func (l *ledger) casual(t *testing.T, employeeID uuid.UUID) int {
	t.Helper()
	b, err := l.balances.GetBalance(context.Background(), employeeID)
	require.NoError(t, err)
	return b[balance.CategoryCasual]
}

func TestLedger_ApplyApproveScenario(t *testing.T) {
	ctx := context.Background()
	lg := setupLedger(t)
	emp := lg.hire(t, "erin")
	require.Equal(t, 12, lg.casual(t, emp.EmployeeID))

	req, err := lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category:  "casual",
		StartDate: "2026-01-01",
		EndDate:   "2026-01-05",
		Reason:    "new year trip",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, 5, req.Days)
	// applying never touches the balance
	assert.Equal(t, 12, lg.casual(t, emp.EmployeeID))

	approved, err := lg.service.Decide(ctx, lg.manager, req.ID, leave.Approve{Comment: "have fun"})
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, 7, lg.casual(t, emp.EmployeeID))

	_, err = lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category:  "casual",
		StartDate: "2026-02-01",
		EndDate:   "2026-02-10",
		Reason:    "long break",
	})
	assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 7, appErr.Details["available"])
	assert.Equal(t, 10, appErr.Details["requested"])

	_, err = lg.service.Decide(ctx, lg.manager, req.ID, leave.Approve{})
	assert.ErrorIs(t, err, leaveerrors.ErrAlreadyProcessed)
	_, err = lg.service.Decide(ctx, lg.manager, req.ID, leave.Reject{})
	assert.ErrorIs(t, err, leaveerrors.ErrAlreadyProcessed)
	assert.Equal(t, 7, lg.casual(t, emp.EmployeeID))

	stored, err := lg.service.GetByID(ctx, emp, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", stored.Status)
	require.NotNil(t, stored.ApproverID)
	assert.Equal(t, lg.manager.EmployeeID.String(), *stored.ApproverID)
	require.NotNil(t, stored.Employee)
	assert.Equal(t, "erin", stored.Employee.Username)
}

func TestLedger_RejectKeepsBalance(t *testing.T) {
	ctx := context.Background()
	lg := setupLedger(t)
	emp := lg.hire(t, "erin")

	req, err := lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category:  "casual",
		StartDate: "2026-04-06",
		EndDate:   "2026-04-08",
		Reason:    "moving house",
	})
	require.NoError(t, err)

	rejected, err := lg.service.Decide(ctx, lg.manager, req.ID, leave.Reject{Comment: "release week"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, 12, lg.casual(t, emp.EmployeeID))

	own, err := lg.service.ListOwn(ctx, emp)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "rejected", own[0].Status)
}

func TestLedger_DecideByEmployeeForbidden(t *testing.T) {
	ctx := context.Background()
	lg := setupLedger(t)
	emp := lg.hire(t, "erin")

	req, err := lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category:  "medical",
		StartDate: "2026-05-01",
		EndDate:   "2026-05-02",
		Reason:    "check-up",
	})
	require.NoError(t, err)

	_, err = lg.service.Decide(ctx, emp, req.ID, leave.Approve{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// also refused for ids that do not exist
	_, err = lg.service.Decide(ctx, emp, uuid.NewString(), leave.Approve{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := lg.service.GetByID(ctx, emp, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
}

func TestLedger_ConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	lg := setupLedger(t)
	emp := lg.hire(t, "erin")
	require.NoError(t, lg.balances.Deduct(ctx, emp.EmployeeID, balance.CategoryCasual, 7))
	require.Equal(t, 5, lg.casual(t, emp.EmployeeID))

	first, err := lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category: "casual", StartDate: "2026-06-01", EndDate: "2026-06-03", Reason: "three days",
	})
	require.NoError(t, err)
	second, err := lg.service.Apply(ctx, emp, leave.ApplyLeaveRequest{
		Category: "casual", StartDate: "2026-07-01", EndDate: "2026-07-04", Reason: "four days",
	})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := lg.service.Decide(ctx, lg.manager, id, leave.Approve{})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, balanceerrors.ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	remaining := lg.casual(t, emp.EmployeeID)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.True(t, remaining == 2 || remaining == 1, "remaining %d", remaining)
}
