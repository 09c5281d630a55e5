// Package oauth2test provides a scriptable oauth2.Provider for tests of
// packages that sit on top of the token manager.
package oauth2test

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

// Provider answers refresh and exchange calls with preset responses and
// counts how often each was made.
type Provider struct {
	mu            sync.Mutex
	refreshCalls  int
	exchangeCalls int

	RefreshResp  *oauth2.TokenResponse
	RefreshErr   error
	ExchangeResp *oauth2.TokenResponse
	ExchangeErr  error
}

var _ oauth2.Provider = (*Provider)(nil)

// NewProvider returns a Provider whose refresh and exchange both succeed
// with an access token valid for an hour after now.
func NewProvider(now time.Time) *Provider {
	exp := now.Add(time.Hour)
	return &Provider{
		RefreshResp:  &oauth2.TokenResponse{AccessToken: "ya29.refreshed", ExpiresAt: &exp},
		ExchangeResp: &oauth2.TokenResponse{AccessToken: "ya29.exchanged", RefreshToken: "1//exchanged", ExpiresAt: &exp},
	}
}

func (p *Provider) Name() entities.OAuthProvider {
	return entities.OAuthProviderGoogle
}

func (p *Provider) ConsentURL(state string) (string, error) {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state), nil
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	if p.ExchangeErr != nil {
		return nil, p.ExchangeErr
	}
	return p.ExchangeResp, nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.RefreshErr != nil {
		return nil, p.RefreshErr
	}
	return p.RefreshResp, nil
}

// RefreshCalls returns how many refreshes were attempted.
func (p *Provider) RefreshCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCalls
}

// ExchangeCalls returns how many code exchanges were attempted.
func (p *Provider) ExchangeCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCalls
}
