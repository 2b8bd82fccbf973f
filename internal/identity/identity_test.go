package identity_test

import (
	"testing"

	"go-leave/internal/identity"
	"go-leave/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := identity.ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleManager, r)

	_, err = identity.ParseRole("admin")
	assert.ErrorIs(t, err, identity.ErrInvalidRole)
}

func TestNewPrincipal(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		p, err := identity.NewPrincipal(id.String(), "employee", "ops")

		require.NoError(t, err)
		assert.True(t, p.Owns(id))
		assert.False(t, p.IsManager())
		assert.Equal(t, "ops", p.Department)
	})

	t.Run("negative bad id", func(t *testing.T) {
		_, err := identity.NewPrincipal("nope", "employee", "ops")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("negative bad role", func(t *testing.T) {
		_, err := identity.NewPrincipal(id.String(), "root", "ops")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("nil principal owns nothing", func(t *testing.T) {
		assert.False(t, identity.Principal{}.Owns(uuid.Nil))
	})
}
