package oauth2

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/metrics"
)

// ErrUserNotFound is returned by a CredentialStore when the user row is gone.
var ErrUserNotFound = errors.New("user not found")

// isUnreadable reports whether err means stored ciphertext could not be
// decrypted, typically after the encryption key changed.
func isUnreadable(err error) bool {
	return errors.Is(err, crypto.ErrDecryptionFailed) || errors.Is(err, crypto.ErrMalformedCiphertext)
}

// Manager keeps a user's access token valid. GetValidAccessToken has three
// outcomes: a usable token, a *ConsentRequiredError, or a *TransientError.
type Manager struct {
	provider Provider
	store    CredentialStore
	states   *StateSigner
	clock    clock.Clock
	metrics  metrics.Sink
	logger   *zap.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.Sink) ManagerOption {
	return func(m *Manager) {
		m.metrics = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

func NewManager(provider Provider, store CredentialStore, states *StateSigner, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		store:    store,
		states:   states,
		clock:    clock.Real{},
		metrics:  metrics.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConsentURL builds the consent URL for userID. pending, when set, is
// carried through the state so the callback can resume the export.
func (m *Manager) ConsentURL(userID uint, pending *PendingExport) (string, error) {
	state, err := m.states.Sign(userID, pending)
	if err != nil {
		return "", err
	}
	return m.provider.ConsentURL(state)
}

// consentRequired builds the consent outcome. A configuration error while
// building the URL takes precedence.
func (m *Manager) consentRequired(userID uint, pending *PendingExport, reason string) error {
	url, err := m.ConsentURL(userID, pending)
	if err != nil {
		return err
	}
	m.metrics.Inc(metrics.ExportConsentRequired)
	return &ConsentRequiredError{URL: url, Reason: reason}
}

// GetValidAccessToken returns a usable access token for userID, refreshing
// it when expired. It performs no network call while the stored token is
// still valid.
func (m *Manager) GetValidAccessToken(ctx context.Context, userID uint, pending *PendingExport) (string, error) {
	pair, err := m.store.GetTokens(userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "", m.consentRequired(userID, pending, "no stored credential")
	case isUnreadable(err):
		m.logger.Warn("stored google credential is unreadable", zap.Uint("user_id", userID), zap.Error(err))
		return "", m.consentRequired(userID, pending, "stored credential unreadable")
	case err != nil:
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	if !pair.HasRefreshToken() {
		return "", m.consentRequired(userID, pending, "no refresh token")
	}

	if pair.UsableAt(m.clock.Now()) {
		return pair.AccessToken, nil
	}

	return m.refresh(ctx, userID, pair, pending)
}

func (m *Manager) refresh(ctx context.Context, userID uint, pair *entities.TokenPair, pending *PendingExport) (string, error) {
	start := m.clock.Now()
	resp, err := m.provider.Refresh(ctx, pair.RefreshToken)
	m.metrics.Observe(metrics.RefreshDuration, m.clock.Now().Sub(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			return "", err
		case IsTransient(err):
			m.metrics.Inc(metrics.TokenRefreshTransient)
			m.logger.Warn("token refresh failed transiently", zap.Uint("user_id", userID), zap.Error(err))
			return "", err
		default:
			// Stale tokens stay in place for diagnostics.
			m.metrics.Inc(metrics.TokenRefreshInvalidGrant)
			m.logger.Info("token refresh rejected, consent required", zap.Uint("user_id", userID), zap.Error(err))
			return "", m.consentRequired(userID, pending, "refresh token rejected")
		}
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = pair.RefreshToken
	}

	updated := &entities.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    resp.ExpiresAt,
	}
	if err := m.store.SaveTokens(userID, updated); err != nil {
		// The fresh token is still good for this call; the next call refreshes again.
		m.logger.Error("failed to persist refreshed token", zap.Uint("user_id", userID), zap.Error(err))
	}

	m.metrics.Inc(metrics.TokenRefreshed)
	m.logger.Debug("refreshed google access token", zap.Uint("user_id", userID))
	return resp.AccessToken, nil
}

// Status reports whether userID has a stored refresh token.
func (m *Manager) Status(userID uint) (*entities.OAuthStatus, error) {
	pair, err := m.store.GetTokens(userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return &entities.OAuthStatus{}, nil
	case isUnreadable(err):
		return &entities.OAuthStatus{}, nil
	case err != nil:
		return nil, err
	}
	return &entities.OAuthStatus{
		Connected: pair.HasRefreshToken(),
		ExpiresAt: pair.ExpiresAt,
	}, nil
}

// Disconnect removes the stored credential for userID.
func (m *Manager) Disconnect(userID uint) error {
	return m.store.ClearTokens(userID)
}
