package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for provider failure classification.
// Use errors.Is(err, storage.ErrTransient) to check.
var (
	ErrTransient    = errors.New("storage: transient provider error")
	ErrPermanent    = errors.New("storage: permanent provider error")
	ErrNotFound     = errors.New("storage: not found")
	ErrUnauthorized = errors.New("storage: access token rejected")
)

// ProviderError wraps a sentinel with the HTTP status and the provider's
// message for debugging.
type ProviderError struct {
	Op         string
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("storage: %s: %s", e.Op, e.Message)
	}
	if e.Reason != "" {
		return fmt.Sprintf("storage: %s: HTTP %d (%s): %s", e.Op, e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("storage: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// rateLimitReasons are 403 reasons Google uses for quota throttling.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"backendError":          true,
}

// ClassifyStatus maps an HTTP status code (and the provider's error reason,
// when known) to a sentinel. Returns nil for 2xx codes.
func ClassifyStatus(code int, reason string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden && rateLimitReasons[reason]:
		return ErrTransient
	case isRetryable(code):
		return ErrTransient
	default:
		return ErrPermanent
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// NetworkError wraps a failure that never produced an HTTP response.
func NetworkError(op string, err error) error {
	return &ProviderError{Op: op, Message: err.Error(), Err: ErrTransient}
}

// IsTransient reports whether err should be retried later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
