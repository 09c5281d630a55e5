package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/tasks"
)

// DefaultAuditCleanupSchedule runs the cleanup once a day at midnight.
const DefaultAuditCleanupSchedule = "@daily"

// TaskEnqueuer adds a task to the background task queue.
type TaskEnqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// AuditCleanupScheduler enqueues a CleanupAuditEventsTask on a schedule.
// The task queue does the deleting, so retries and history live there.
type AuditCleanupScheduler struct {
	tasks         TaskEnqueuer
	schedule      string
	retentionDays int
	logger        *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewAuditCleanupScheduler creates a new scheduler instance. An empty
// schedule means DefaultAuditCleanupSchedule.
func NewAuditCleanupScheduler(enqueuer TaskEnqueuer, schedule string, retentionDays int, logger *zap.Logger) *AuditCleanupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultAuditCleanupSchedule
	}
	return &AuditCleanupScheduler{
		tasks:         enqueuer,
		schedule:      schedule,
		retentionDays: retentionDays,
		logger:        logger,
		cron:          newCron(logger),
	}
}

// Start begins the scheduler; it stops when ctx is done.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Enqueue(); err != nil {
			s.logger.Error("failed to enqueue audit cleanup", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("audit cleanup scheduler started",
		zap.String("schedule", s.schedule),
		zap.Int("retention_days", s.retentionDays),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop gracefully stops the scheduler
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("audit cleanup scheduler stopped")
}

// Enqueue adds one cleanup task now and returns its task id.
func (s *AuditCleanupScheduler) Enqueue() (string, error) {
	id, err := s.tasks.Enqueue(tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays})
	if err != nil {
		return "", fmt.Errorf("enqueue audit cleanup: %w", err)
	}
	s.logger.Debug("audit cleanup enqueued", zap.String("task_id", id))
	return id, nil
}
