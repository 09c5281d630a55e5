package retryqueue

import "time"

// Backoff returns the delay before the next attempt after attempts failed
// retries: min(base * 2^attempts, max).
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		return max
	}
	// Stop doubling before the shift overflows.
	if attempts >= 62 || base > max>>uint(attempts) {
		return max
	}
	return base << uint(attempts)
}
