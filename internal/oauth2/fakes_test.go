package oauth2

import (
	"context"
	"sync"

	"github.com/eztutor/drive-export/internal/entities"
)

type fakeProvider struct {
	mu           sync.Mutex
	refreshCalls int
	exchangeCode string
	refreshResp  *TokenResponse
	refreshErr   error
	exchangeResp *TokenResponse
	exchangeErr  error
	consentErr   error
}

func (f *fakeProvider) Name() entities.OAuthProvider {
	return entities.OAuthProviderGoogle
}

func (f *fakeProvider) ConsentURL(state string) (string, error) {
	if f.consentErr != nil {
		return "", f.consentErr
	}
	return "https://auth.example/?state=" + state, nil
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCode = code
	return f.exchangeResp, f.exchangeErr
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshResp, f.refreshErr
}

func (f *fakeProvider) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

type fakeStore struct {
	mu      sync.Mutex
	pairs   map[uint]*entities.TokenPair
	getErr  error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{pairs: make(map[uint]*entities.TokenPair)}
}

func (s *fakeStore) GetTokens(userID uint) (*entities.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	pair, ok := s.pairs[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *pair
	return &cp, nil
}

func (s *fakeStore) SaveTokens(userID uint, pair *entities.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *pair
	s.pairs[userID] = &cp
	return nil
}

func (s *fakeStore) ClearTokens(userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[userID] = &entities.TokenPair{}
	return nil
}
