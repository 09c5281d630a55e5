package entities

import (
	"time"
)

// OAuthProvider represents the OAuth provider type
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "google"
)

// TokenPair holds decrypted credential values for use in memory.
// It is never stored directly in the database.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// HasRefreshToken reports whether the pair can be refreshed.
func (t *TokenPair) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}

// UsableAt reports whether the access token can be used at now without a
// refresh. A token with no recorded expiry is treated as stale.
func (t *TokenPair) UsableAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" || t.ExpiresAt == nil {
		return false
	}
	return now.Before(*t.ExpiresAt)
}

// OAuthStatus is the connection summary returned to clients.
type OAuthStatus struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
