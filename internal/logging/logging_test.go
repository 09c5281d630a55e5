package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := New(tc.level, "development")
			assert.True(t, logger.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tc.want-1))
			}
		})
	}
}
