package tokenstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func setupTestStore(t *testing.T) (*TokenStore, *gorm.DB, *crypto.Vault) {
	t.Helper()
	db := setupTestDB(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	vault, err := crypto.NewVaultFromHex(key, nil)
	require.NoError(t, err)

	require.NoError(t, db.Create(&entities.User{ID: 1, Username: "tutor", Email: "t@example.com", Token: "tok-1"}).Error)
	return New(db, vault), db, vault
}

func TestSaveAndGetTokens(t *testing.T) {
	store, db, _ := setupTestStore(t)
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	err := store.SaveTokens(1, &entities.TokenPair{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ExpiresAt:    &expiry,
	})
	require.NoError(t, err)

	t.Run("columns hold ciphertext", func(t *testing.T) {
		var user entities.User
		require.NoError(t, db.First(&user, 1).Error)
		require.NotNil(t, user.GoogleAccessToken)
		require.NotNil(t, user.GoogleRefreshToken)
		assert.NotContains(t, *user.GoogleAccessToken, "ya29")
		assert.NotContains(t, *user.GoogleRefreshToken, "1//refresh")
	})

	t.Run("round trip", func(t *testing.T) {
		pair, err := store.GetTokens(1)
		require.NoError(t, err)
		assert.Equal(t, "ya29.access", pair.AccessToken)
		assert.Equal(t, "1//refresh", pair.RefreshToken)
		require.NotNil(t, pair.ExpiresAt)
		assert.True(t, expiry.Equal(*pair.ExpiresAt))
	})
}

func TestGetTokensWithoutCredential(t *testing.T) {
	store, _, _ := setupTestStore(t)

	pair, err := store.GetTokens(1)
	require.NoError(t, err)
	assert.False(t, pair.HasRefreshToken())
	assert.Empty(t, pair.AccessToken)
	assert.Nil(t, pair.ExpiresAt)
}

func TestUnknownUser(t *testing.T) {
	store, _, _ := setupTestStore(t)

	_, err := store.GetTokens(999)
	assert.ErrorIs(t, err, oauth2.ErrUserNotFound)

	err = store.SaveTokens(999, &entities.TokenPair{AccessToken: "a"})
	assert.ErrorIs(t, err, oauth2.ErrUserNotFound)

	err = store.ClearTokens(999)
	assert.ErrorIs(t, err, oauth2.ErrUserNotFound)
}

func TestClearTokens(t *testing.T) {
	store, db, _ := setupTestStore(t)
	require.NoError(t, store.SaveTokens(1, &entities.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, store.ClearTokens(1))

	var user entities.User
	require.NoError(t, db.First(&user, 1).Error)
	assert.Nil(t, user.GoogleAccessToken)
	assert.Nil(t, user.GoogleRefreshToken)
	assert.Nil(t, user.GoogleTokenExpiresAt)
}

func TestKeyRotationMakesTokensUnreadable(t *testing.T) {
	store, db, _ := setupTestStore(t)
	require.NoError(t, store.SaveTokens(1, &entities.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherVault, err := crypto.NewVaultFromHex(otherKey, nil)
	require.NoError(t, err)

	_, err = New(db, otherVault).GetTokens(1)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestPassthroughVaultStoresPlaintext(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&entities.User{ID: 1, Username: "u", Email: "u@example.com", Token: "t"}).Error)

	vault, err := crypto.NewVault(nil)
	require.NoError(t, err)
	store := New(db, vault)

	require.NoError(t, store.SaveTokens(1, &entities.TokenPair{AccessToken: "plain", RefreshToken: "plain-rt"}))

	var user entities.User
	require.NoError(t, db.First(&user, 1).Error)
	assert.Equal(t, "plain", *user.GoogleAccessToken)

	pair, err := store.GetTokens(1)
	require.NoError(t, err)
	assert.Equal(t, "plain-rt", pair.RefreshToken)
}
