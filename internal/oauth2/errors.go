package oauth2

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the OAuth client id, secret or redirect URI is unset.
	ErrNotConfigured = errors.New("google oauth client is not configured")
	// ErrInvalidGrant means the refresh token was revoked or expired.
	ErrInvalidGrant = errors.New("refresh token revoked or expired")
	// ErrInvalidCode means the authorization code was rejected.
	ErrInvalidCode = errors.New("authorization code invalid or expired")
	// ErrRejected is any other permanent refusal from the token endpoint.
	ErrRejected = errors.New("token request rejected")
	// ErrInvalidState means the callback state failed verification.
	ErrInvalidState = errors.New("invalid oauth state")
)

// TransientError wraps a failure that is expected to succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is or wraps a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ConsentRequiredError tells the caller to send the user through the consent
// flow at URL. It is a control-flow outcome rather than a failure.
type ConsentRequiredError struct {
	URL    string
	Reason string
}

func (e *ConsentRequiredError) Error() string {
	return "google drive consent required: " + e.Reason
}

// AsConsentRequired extracts a *ConsentRequiredError from err.
func AsConsentRequired(err error) (*ConsentRequiredError, bool) {
	var ce *ConsentRequiredError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
