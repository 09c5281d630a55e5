package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eztutor/drive-export/internal/config"
)

func TestService_ValidateToken(t *testing.T) {
	_, service, repo := setupMiddleware(t, config.Auth{Mode: config.AuthModeToken})

	user, err := repo.CreateUser("tutor", "tutor@example.com")
	require.NoError(t, err)

	got, err := service.ValidateToken(user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = service.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ValidateToken("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_GetUserByID(t *testing.T) {
	_, service, repo := setupMiddleware(t, config.Auth{Mode: config.AuthModeToken})

	user, err := repo.CreateUser("tutor", "tutor@example.com")
	require.NoError(t, err)

	got, err := service.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "tutor", got.Username)

	_, err = service.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_EnsureDefaultUser(t *testing.T) {
	t.Run("none mode creates the user once", func(t *testing.T) {
		_, service, _ := setupMiddleware(t, config.Auth{Mode: config.AuthModeNone, DefaultUserID: 3})

		first, err := service.EnsureDefaultUser()
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, uint(3), first.ID)

		second, err := service.EnsureDefaultUser()
		require.NoError(t, err)
		assert.Equal(t, first.Token, second.Token)
	})

	t.Run("token mode is a no-op", func(t *testing.T) {
		_, service, _ := setupMiddleware(t, config.Auth{Mode: config.AuthModeToken})

		user, err := service.EnsureDefaultUser()
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestService_Mode(t *testing.T) {
	_, none, _ := setupMiddleware(t, config.Auth{Mode: config.AuthModeNone})
	assert.False(t, none.IsAuthEnabled())
	assert.Equal(t, config.AuthModeNone, none.GetAuthMode())

	_, token, _ := setupMiddleware(t, config.Auth{Mode: config.AuthModeToken})
	assert.True(t, token.IsAuthEnabled())
}
