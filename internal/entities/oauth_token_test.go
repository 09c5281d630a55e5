package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenPairUsableAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	cases := map[string]struct {
		pair *TokenPair
		want bool
	}{
		"nil pair":            {pair: nil, want: false},
		"no access token":     {pair: &TokenPair{RefreshToken: "r", ExpiresAt: &future}, want: false},
		"no expiry":           {pair: &TokenPair{AccessToken: "a"}, want: false},
		"expired":             {pair: &TokenPair{AccessToken: "a", ExpiresAt: &past}, want: false},
		"expires exactly now": {pair: &TokenPair{AccessToken: "a", ExpiresAt: &now}, want: false},
		"valid":               {pair: &TokenPair{AccessToken: "a", ExpiresAt: &future}, want: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pair.UsableAt(now))
		})
	}
}

func TestUserHasGoogleCredential(t *testing.T) {
	empty := ""
	token := "1//refresh"

	assert.False(t, (&User{}).HasGoogleCredential())
	assert.False(t, (&User{GoogleRefreshToken: &empty}).HasGoogleCredential())
	assert.True(t, (&User{GoogleRefreshToken: &token}).HasGoogleCredential())
}
