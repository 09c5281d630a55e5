package oauth2

import (
	"context"
	"time"

	"github.com/eztutor/drive-export/internal/entities"
)

// TokenResponse contains tokens returned from the OAuth2 provider
type TokenResponse struct {
	AccessToken  string
	RefreshToken string // Empty when the provider did not rotate it
	ExpiresAt    *time.Time
}

// Provider defines the interface for OAuth2 providers.
//
// Implementations classify their failures: ErrNotConfigured for missing
// client settings, *TransientError for network and 5xx failures, and
// ErrInvalidGrant, ErrInvalidCode or ErrRejected for permanent refusals.
type Provider interface {
	// Name returns the provider identifier
	Name() entities.OAuthProvider

	// ConsentURL builds the authorization URL embedding the opaque state.
	ConsentURL(state string) (string, error)

	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// Refresh exchanges a refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// CredentialStore persists a user's token pair. Implementations own
// encryption at rest.
type CredentialStore interface {
	GetTokens(userID uint) (*entities.TokenPair, error)
	SaveTokens(userID uint, pair *entities.TokenPair) error
	ClearTokens(userID uint) error
}
