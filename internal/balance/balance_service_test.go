package balance_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go-leave/internal/balance"
	balanceerrors "go-leave/internal/balance/errors"
	balanceMock "go-leave/internal/balance/mock"
	"go-leave/internal/identity"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/apperror"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testCacheTTL = 10 * time.Minute

type serviceDeps struct {
	service   balance.Service
	store     *balanceMock.MockStore
	redismock redismock.ClientMock
}

func newRBAC(t *testing.T) rbac.Service {
	t.Helper()
	e, err := infra.NewEnforcer()
	require.NoError(t, err)
	svc, err := rbac.NewService(e)
	require.NoError(t, err)
	return svc
}

// cachedJSON mirrors the cache entry layout written by the service.
func cachedJSON(t *testing.T, generation int64, resp balance.BalanceResponse) string {
	t.Helper()
	b, err := json.Marshal(struct {
		Generation int64                   `json:"generation"`
		Balance    balance.BalanceResponse `json:"balance"`
	}{generation, resp})
	require.NoError(t, err)
	return string(b)
}

func setupServiceTest(t *testing.T) *serviceDeps {
	ctrl := gomock.NewController(t)
	store := balanceMock.NewMockStore(ctrl)
	rdb, redisMock := redismock.NewClientMock()

	return &serviceDeps{
		service:   balance.NewServiceWithCache(store, newRBAC(t), rdb, testCacheTTL),
		store:     store,
		redismock: redisMock,
	}
}

func TestBalanceService_GetBalance(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	owner := identity.Principal{EmployeeID: employeeID, Role: identity.RoleEmployee}
	manager := identity.Principal{EmployeeID: uuid.New(), Role: identity.RoleManager}
	stranger := identity.Principal{EmployeeID: uuid.New(), Role: identity.RoleEmployee}
	key := balance.GetBalanceKey(employeeID.String())
	genKey := balance.GetGenerationKey(employeeID.String())

	expected := balance.BalanceResponse{
		EmployeeID: employeeID.String(),
		Balances:   map[string]int{"casual": 12, "medical": 10},
	}

	t.Run("success cache miss populates cache", func(t *testing.T) {
		deps := setupServiceTest(t)

		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{nil, nil})
		deps.store.EXPECT().GetBalance(gomock.Any(), employeeID).
			Return(balance.Balance{balance.CategoryCasual: 12, balance.CategoryMedical: 10}, nil)
		deps.redismock.ExpectSet(key, cachedJSON(t, 0, expected), testCacheTTL).SetVal("OK")

		resp, err := deps.service.GetBalance(ctx, owner, employeeID.String())

		assert.NoError(t, err)
		assert.Equal(t, expected, resp)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("success cache hit skips store", func(t *testing.T) {
		deps := setupServiceTest(t)

		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{cachedJSON(t, 3, expected), "3"})

		resp, err := deps.service.GetBalance(ctx, manager, employeeID.String())

		assert.NoError(t, err)
		assert.Equal(t, expected, resp)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("entry from an older generation is reloaded", func(t *testing.T) {
		deps := setupServiceTest(t)
		stale := balance.BalanceResponse{EmployeeID: employeeID.String(), Balances: map[string]int{"casual": 15, "medical": 10}}

		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{cachedJSON(t, 1, stale), "2"})
		deps.store.EXPECT().GetBalance(gomock.Any(), employeeID).
			Return(balance.Balance{balance.CategoryCasual: 12, balance.CategoryMedical: 10}, nil)
		deps.redismock.ExpectSet(key, cachedJSON(t, 2, expected), testCacheTTL).SetVal("OK")

		resp, err := deps.service.GetBalance(ctx, owner, employeeID.String())

		assert.NoError(t, err)
		assert.Equal(t, expected, resp)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("invalidate during load does not leave a stale entry behind", func(t *testing.T) {
		deps := setupServiceTest(t)
		before := balance.BalanceResponse{EmployeeID: employeeID.String(), Balances: map[string]int{"casual": 15, "medical": 10}}

		// first read loads the pre-approval balance; the approval commits and
		// invalidates before the read writes its entry back
		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{nil, nil})
		deps.redismock.ExpectIncr(genKey).SetVal(1)
		deps.redismock.ExpectDel(key).SetVal(0)
		deps.redismock.ExpectSet(key, cachedJSON(t, 0, before), testCacheTTL).SetVal("OK")

		// second read finds the late write but with an old generation
		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{cachedJSON(t, 0, before), "1"})
		deps.redismock.ExpectSet(key, cachedJSON(t, 1, expected), testCacheTTL).SetVal("OK")

		gomock.InOrder(
			deps.store.EXPECT().GetBalance(gomock.Any(), employeeID).
				DoAndReturn(func(ctx context.Context, id uuid.UUID) (balance.Balance, error) {
					deps.service.Invalidate(ctx, id)
					return balance.Balance{balance.CategoryCasual: 15, balance.CategoryMedical: 10}, nil
				}),
			deps.store.EXPECT().GetBalance(gomock.Any(), employeeID).
				Return(balance.Balance{balance.CategoryCasual: 12, balance.CategoryMedical: 10}, nil),
		)

		first, err := deps.service.GetBalance(ctx, owner, employeeID.String())
		require.NoError(t, err)
		assert.Equal(t, before, first)

		second, err := deps.service.GetBalance(ctx, owner, employeeID.String())
		require.NoError(t, err)
		assert.Equal(t, expected, second)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("negative other employee forbidden", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.GetBalance(ctx, stranger, employeeID.String())

		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("negative invalid id", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.GetBalance(ctx, owner, "not-a-uuid")

		assert.ErrorIs(t, err, balanceerrors.ErrInvalidEmployeeID)
	})

	t.Run("negative not found is not cached", func(t *testing.T) {
		deps := setupServiceTest(t)

		deps.redismock.ExpectMGet(key, genKey).SetVal([]any{nil, nil})
		deps.store.EXPECT().GetBalance(gomock.Any(), employeeID).Return(nil, balanceerrors.ErrBalanceNotFound)

		_, err := deps.service.GetBalance(ctx, manager, employeeID.String())

		assert.ErrorIs(t, err, balanceerrors.ErrBalanceNotFound)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})
}

func TestBalanceService_Invalidate(t *testing.T) {
	deps := setupServiceTest(t)
	employeeID := uuid.New()

	deps.redismock.ExpectIncr(balance.GetGenerationKey(employeeID.String())).SetVal(4)
	deps.redismock.ExpectDel(balance.GetBalanceKey(employeeID.String())).SetVal(1)

	deps.service.Invalidate(context.Background(), employeeID)

	assert.NoError(t, deps.redismock.ExpectationsWereMet())
}

func TestBalanceService_WithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := balanceMock.NewMockStore(ctrl)
	svc := balance.NewService(store, newRBAC(t))
	employeeID := uuid.New()

	store.EXPECT().GetBalance(gomock.Any(), employeeID).Return(balance.Balance{balance.CategoryCasual: 1, balance.CategoryMedical: 0}, nil)

	resp, err := svc.GetBalance(context.Background(), identity.Principal{EmployeeID: employeeID, Role: identity.RoleEmployee}, employeeID.String())

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Balances["casual"])
	svc.Invalidate(context.Background(), employeeID)
}
