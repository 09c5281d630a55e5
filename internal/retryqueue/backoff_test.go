package retryqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		expected time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{5, 32 * time.Minute},
		{6, time.Hour},
		{100, time.Hour},
		{-1, time.Minute},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, Backoff(tc.attempts, time.Minute, time.Hour), "attempts=%d", tc.attempts)
	}
}

func TestBackoff_MonotonicAndCapped(t *testing.T) {
	bases := []time.Duration{time.Millisecond, time.Second, time.Minute, 7 * time.Minute}
	caps := []time.Duration{time.Second, time.Hour, 24 * time.Hour}

	for _, base := range bases {
		for _, max := range caps {
			prev := time.Duration(0)
			for n := 0; n < 200; n++ {
				d := Backoff(n, base, max)
				assert.GreaterOrEqual(t, d, prev, "base=%s max=%s n=%d", base, max, n)
				assert.LessOrEqual(t, d, max, "base=%s max=%s n=%d", base, max, n)
				prev = d
			}
		}
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Hour, Backoff(3, 0, time.Hour))
}
