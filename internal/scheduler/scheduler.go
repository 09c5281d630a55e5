// Package scheduler runs the periodic jobs of the export service on cron:
// the retry queue worker and the daily audit cleanup.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression or descriptor such
// as "@daily" or "@every 30s".
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// EverySchedule returns the descriptor for a fixed interval.
func EverySchedule(interval time.Duration) string {
	return "@every " + interval.String()
}

func newCron(logger *zap.Logger) *cron.Cron {
	return cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{logger: logger.Sugar()}),
	)
}

// cronLogger implements cron.Logger on top of zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
