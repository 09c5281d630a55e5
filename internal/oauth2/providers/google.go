package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goauth "golang.org/x/oauth2"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// DriveFileScope limits access to files this application created.
	DriveFileScope = "https://www.googleapis.com/auth/drive.file"
)

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string // Defaults to Google's endpoint
	TokenURL     string // Defaults to Google's endpoint
	Timeout      time.Duration
}

// GoogleProvider implements OAuth2 for Google Drive on top of x/oauth2.
type GoogleProvider struct {
	config     *goauth.Config
	configured bool
	httpClient *http.Client
}

// NewGoogleProvider creates a Google provider. Missing client settings do
// not fail construction; every call then returns oauth2.ErrNotConfigured.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = googleAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GoogleProvider{
		config: &goauth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{DriveFileScope},
			Endpoint: goauth.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: goauth.AuthStyleInParams,
			},
		},
		configured: cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.RedirectURL != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *GoogleProvider) Name() entities.OAuthProvider {
	return entities.OAuthProviderGoogle
}

// ConsentURL requests offline access and forces the consent prompt so a
// refresh token is always issued.
func (p *GoogleProvider) ConsentURL(state string) (string, error) {
	if !p.configured {
		return "", oauth2.ErrNotConfigured
	}
	return p.config.AuthCodeURL(state,
		goauth.AccessTypeOffline,
		goauth.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
	if !p.configured {
		return nil, oauth2.ErrNotConfigured
	}

	tok, err := p.config.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, classify("exchange", err, oauth2.ErrInvalidCode)
	}
	return toResponse(tok), nil
}

func (p *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	if !p.configured {
		return nil, oauth2.ErrNotConfigured
	}

	src := p.config.TokenSource(p.withClient(ctx), &goauth.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classify("refresh", err, oauth2.ErrInvalidGrant)
	}

	resp := toResponse(tok)
	if resp.RefreshToken == refreshToken {
		// x/oauth2 echoes the old refresh token when none was issued.
		resp.RefreshToken = ""
	}
	return resp, nil
}

func (p *GoogleProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, goauth.HTTPClient, p.httpClient)
}

func toResponse(tok *goauth.Token) *oauth2.TokenResponse {
	resp := &oauth2.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		resp.ExpiresAt = &exp
	}
	return resp
}

// classify maps a token endpoint failure onto the oauth2 error taxonomy.
// invalid_grant maps to grantErr; other 4xx refusals are permanent;
// 5xx, 429 and anything that never produced a response are transient.
func classify(op string, err error, grantErr error) error {
	var rErr *goauth.RetrieveError
	if !errors.As(err, &rErr) {
		return &oauth2.TransientError{Op: op, Err: err}
	}

	status := 0
	if rErr.Response != nil {
		status = rErr.Response.StatusCode
	}

	switch {
	case rErr.ErrorCode == "invalid_grant":
		return fmt.Errorf("%s: %w", op, grantErr)
	case status == http.StatusTooManyRequests || status >= 500:
		return &oauth2.TransientError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w: %s", op, oauth2.ErrRejected, rErr.ErrorCode)
	}
}
