package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/retryqueue"
)

// QueueTicker processes at most one due retry item per call.
type QueueTicker interface {
	Tick(ctx context.Context) (retryqueue.Outcome, error)
}

// ExportQueueScheduler ticks the retry queue worker on a fixed interval,
// one item per firing. A firing that overlaps a tick still in progress is
// skipped.
type ExportQueueScheduler struct {
	worker   QueueTicker
	interval time.Duration
	logger   *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isTicking  atomic.Bool
	runCtx     context.Context
	cancelFunc context.CancelFunc
}

// NewExportQueueScheduler creates a new scheduler instance
func NewExportQueueScheduler(worker QueueTicker, interval time.Duration, logger *zap.Logger) *ExportQueueScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportQueueScheduler{
		worker:   worker,
		interval: interval,
		logger:   logger,
		cron:     newCron(logger),
	}
}

// Start schedules the worker and begins ticking.
func (s *ExportQueueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("export queue interval must be positive, got %s", s.interval)
	}

	entryID, err := s.cron.AddFunc(EverySchedule(s.interval), s.runTick)
	if err != nil {
		return fmt.Errorf("failed to schedule export queue job: %w", err)
	}
	s.entryID = entryID

	s.runCtx, s.cancelFunc = context.WithCancel(ctx)
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("export queue scheduler started", zap.Duration("interval", s.interval))

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.runCtx.Done())

	return nil
}

// Stop cancels any in-flight tick and waits for it to return.
func (s *ExportQueueScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelFunc()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("export queue scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *ExportQueueScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsTicking returns whether the worker is processing an item
func (s *ExportQueueScheduler) IsTicking() bool {
	return s.isTicking.Load()
}

// GetNextRunTime returns when the next tick will occur
func (s *ExportQueueScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *ExportQueueScheduler) tickContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runCtx == nil {
		return context.Background()
	}
	return s.runCtx
}

func (s *ExportQueueScheduler) runTick() {
	if !s.isTicking.CompareAndSwap(false, true) {
		s.logger.Debug("export queue tick skipped, previous tick still active")
		return
	}
	defer s.isTicking.Store(false)

	ctx := s.tickContext()
	if ctx.Err() != nil {
		return
	}

	outcome, err := s.worker.Tick(ctx)
	if err != nil {
		s.logger.Error("export queue tick failed", zap.Error(err), zap.String("outcome", string(outcome)))
		return
	}
	if outcome != retryqueue.OutcomeIdle {
		s.logger.Info("export queue tick", zap.String("outcome", string(outcome)))
	}
}
