package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eztutor/drive-export/internal/retryqueue"
	"github.com/eztutor/drive-export/internal/tasks"
)

// fakeTicker hands out one pending item per Tick.
type fakeTicker struct {
	mu      sync.Mutex
	pending int
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *fakeTicker) Tick(ctx context.Context) (retryqueue.Outcome, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return retryqueue.OutcomeIdle, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == 0 {
		return retryqueue.OutcomeIdle, nil
	}
	f.pending--
	return retryqueue.OutcomeSucceeded, nil
}

func (f *fakeTicker) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func TestValidateSchedule(t *testing.T) {
	valid := []string{"@daily", "@every 30s", "0 3 * * *", "*/5 * * * *"}
	for _, s := range valid {
		assert.NoError(t, ValidateSchedule(s), s)
	}

	invalid := []string{"", "every day", "0 3 * *", "@every banana"}
	for _, s := range invalid {
		assert.Error(t, ValidateSchedule(s), s)
	}
}

func TestEverySchedule(t *testing.T) {
	assert.Equal(t, "@every 30s", EverySchedule(30*time.Second))
	assert.NoError(t, ValidateSchedule(EverySchedule(time.Minute)))
}

func TestExportQueueScheduler_TicksWorker(t *testing.T) {
	ticker := &fakeTicker{}
	s := NewExportQueueScheduler(ticker, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.GetNextRunTime())

	assert.Eventually(t, func() bool { return ticker.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestExportQueueScheduler_OneItemPerFiring(t *testing.T) {
	ticker := &fakeTicker{pending: 3}
	s := NewExportQueueScheduler(ticker, time.Hour, nil)

	s.runTick()
	assert.Equal(t, int32(1), ticker.calls.Load())
	assert.Equal(t, 2, ticker.remaining())

	s.runTick()
	assert.Equal(t, 1, ticker.remaining())
}

func TestExportQueueScheduler_StartIsIdempotent(t *testing.T) {
	s := NewExportQueueScheduler(&fakeTicker{}, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
	s.Stop()
}

func TestExportQueueScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := NewExportQueueScheduler(&fakeTicker{}, 0, nil)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestExportQueueScheduler_SkipsOverlappingRuns(t *testing.T) {
	ticker := &fakeTicker{pending: 2, block: make(chan struct{}), started: make(chan struct{})}
	s := NewExportQueueScheduler(ticker, time.Hour, nil)

	go s.runTick()
	<-ticker.started
	assert.True(t, s.IsTicking())

	s.runTick()
	assert.Equal(t, int32(1), ticker.calls.Load(), "second firing is skipped while the first ticks")

	close(ticker.block)
	assert.Eventually(t, func() bool { return !s.IsTicking() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ticker.remaining())
}

func TestExportQueueScheduler_ContextCancelStops(t *testing.T) {
	s := NewExportQueueScheduler(&fakeTicker{}, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task backlite.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, task)
	return "task-1", nil
}

func TestAuditCleanupScheduler_Enqueue(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewAuditCleanupScheduler(enqueuer, "", 14, nil)
	assert.Equal(t, DefaultAuditCleanupSchedule, s.schedule)

	id, err := s.Enqueue()
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)

	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, enqueuer.tasks[0])
}

func TestAuditCleanupScheduler_EnqueueError(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeEnqueuer{err: errors.New("database is locked")}, "", 30, nil)
	_, err := s.Enqueue()
	assert.ErrorContains(t, err, "enqueue audit cleanup")
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		s := NewAuditCleanupScheduler(&fakeEnqueuer{}, "whenever", 30, nil)
		assert.Error(t, s.Start(context.Background()))
	})

	t.Run("runs until stopped", func(t *testing.T) {
		s := NewAuditCleanupScheduler(&fakeEnqueuer{}, "0 3 * * *", 30, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, s.Start(ctx))
		assert.Len(t, s.cron.Entries(), 1)
		s.Stop()
		assert.False(t, s.isRunning)
	})
}
