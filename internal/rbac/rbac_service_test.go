package rbac_test

import (
	"errors"
	"testing"

	"go-leave/internal/identity"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) rbac.Service {
	t.Helper()

	e, err := infra.NewEnforcer()
	require.NoError(t, err)

	svc, err := rbac.NewService(e)
	require.NoError(t, err)
	return svc
}

func TestService_Enforce(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name    string
		role    identity.Role
		res     string
		act     string
		allowed bool
	}{
		{"employee can apply", identity.RoleEmployee, rbac.ResourceLeave, rbac.ActionApply, true},
		{"employee reads own balance", identity.RoleEmployee, rbac.ResourceBalance, rbac.ActionReadOwn, true},
		{"employee cannot decide", identity.RoleEmployee, rbac.ResourceLeave, rbac.ActionDecide, false},
		{"employee cannot list all", identity.RoleEmployee, rbac.ResourceLeave, rbac.ActionReadAll, false},
		{"manager can decide", identity.RoleManager, rbac.ResourceLeave, rbac.ActionDecide, true},
		{"manager inherits apply", identity.RoleManager, rbac.ResourceLeave, rbac.ActionApply, true},
		{"manager reads any balance", identity.RoleManager, rbac.ResourceBalance, rbac.ActionReadAny, true},
		{"unknown role denied", identity.Role("intern"), rbac.ResourceLeave, rbac.ActionApply, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := svc.Enforce(rbac.EnforceRequest{Role: tc.role.String(), Resource: tc.res, Action: tc.act})
			assert.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}

func TestService_Authorize(t *testing.T) {
	svc := newTestService(t)

	t.Run("success", func(t *testing.T) {
		p := identity.Principal{EmployeeID: uuid.New(), Role: identity.RoleManager}
		assert.NoError(t, svc.Authorize(p, rbac.ResourceLeave, rbac.ActionDecide))
	})

	t.Run("negative forbidden", func(t *testing.T) {
		p := identity.Principal{EmployeeID: uuid.New(), Role: identity.RoleEmployee}
		err := svc.Authorize(p, rbac.ResourceLeave, rbac.ActionDecide)
		assert.True(t, errors.Is(err, apperror.ErrForbidden))
	})
}

func TestService_PermissionsFor(t *testing.T) {
	svc := newTestService(t)

	employee, err := svc.PermissionsFor(identity.RoleEmployee)
	require.NoError(t, err)
	assert.Len(t, employee, 4)

	manager, err := svc.PermissionsFor(identity.RoleManager)
	require.NoError(t, err)
	assert.Len(t, manager, 8)
	assert.Contains(t, manager, rbac.Permission{Resource: rbac.ResourceLeave, Action: rbac.ActionDecide})
	assert.Contains(t, manager, rbac.Permission{Resource: rbac.ResourceLeave, Action: rbac.ActionApply})
}
