package oauth2

import (
	"context"
	"errors"
	"fmt"

	"github.com/eztutor/drive-export/internal/entities"
)

// FlowResult contains the result of a completed consent callback
type FlowResult struct {
	UserID  uint
	Pending *PendingExport
}

// FlowHandler completes the web consent flow: it verifies the signed
// state, exchanges the code and stores the resulting tokens.
type FlowHandler struct {
	provider Provider
	store    CredentialStore
	states   *StateSigner
}

// NewFlowHandler creates a new OAuth2 flow handler
func NewFlowHandler(provider Provider, store CredentialStore, states *StateSigner) *FlowHandler {
	return &FlowHandler{
		provider: provider,
		store:    store,
		states:   states,
	}
}

// CompleteWebFlow handles the provider callback. An unverifiable state
// yields ErrInvalidState before any network call is made.
func (h *FlowHandler) CompleteWebFlow(ctx context.Context, code, state string) (*FlowResult, error) {
	claims, err := h.states.Verify(state)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrInvalidCode)
	}

	resp, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		// Google omits the refresh token on repeat consent; keep what we have.
		existing, err := h.store.GetTokens(userID)
		if err != nil && !errors.Is(err, ErrUserNotFound) && !isUnreadable(err) {
			return nil, fmt.Errorf("failed to load existing credentials: %w", err)
		}
		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}

	pair := &entities.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    resp.ExpiresAt,
	}
	if err := h.store.SaveTokens(userID, pair); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return &FlowResult{
		UserID:  userID,
		Pending: claims.Pending,
	}, nil
}
