// Package tokenstore keeps each user's Google credential in the users table,
// encrypted at rest with the credential Vault.
package tokenstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

// TokenStore implements oauth2.CredentialStore on top of the user row.
type TokenStore struct {
	db    *gorm.DB
	vault *crypto.Vault
}

// New creates a TokenStore. A passthrough vault stores plaintext.
func New(db *gorm.DB, vault *crypto.Vault) *TokenStore {
	return &TokenStore{
		db:    db,
		vault: vault,
	}
}

// GetTokens loads and decrypts the credential for userID. Absent columns
// decrypt to empty strings; undecryptable columns return the crypto error.
func (s *TokenStore) GetTokens(userID uint) (*entities.TokenPair, error) {
	var user entities.User
	if err := s.db.Select("id", "google_access_token", "google_refresh_token", "google_token_expires_at").
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oauth2.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	pair := &entities.TokenPair{ExpiresAt: user.GoogleTokenExpiresAt}

	if user.GoogleAccessToken != nil && *user.GoogleAccessToken != "" {
		access, err := s.vault.Decrypt(*user.GoogleAccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		pair.AccessToken = access
	}

	if user.GoogleRefreshToken != nil && *user.GoogleRefreshToken != "" {
		refresh, err := s.vault.Decrypt(*user.GoogleRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		pair.RefreshToken = refresh
	}

	return pair, nil
}

// SaveTokens encrypts and writes the pair in a single UPDATE.
func (s *TokenStore) SaveTokens(userID uint, pair *entities.TokenPair) error {
	access, err := s.encryptNullable(pair.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.encryptNullable(pair.RefreshToken)
	if err != nil {
		return err
	}

	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"google_access_token":     access,
		"google_refresh_token":    refresh,
		"google_token_expires_at": pair.ExpiresAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save tokens for user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return oauth2.ErrUserNotFound
	}
	return nil
}

// ClearTokens nulls the credential columns.
func (s *TokenStore) ClearTokens(userID uint) error {
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"google_access_token":     nil,
		"google_refresh_token":    nil,
		"google_token_expires_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to clear tokens for user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return oauth2.ErrUserNotFound
	}
	return nil
}

func (s *TokenStore) encryptNullable(value string) (*string, error) {
	if value == "" {
		return nil, nil
	}
	encrypted, err := s.vault.Encrypt(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}
	return &encrypted, nil
}
