// Package retryqueue delivers exports that failed inline. A periodic
// worker claims one due item per tick, re-runs the export pipeline, and
// reschedules failures with exponential backoff until a ceiling.
package retryqueue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/entities"
)

// Store is the durable queue table.
type Store interface {
	Enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint, now time.Time) (*entities.ExportRetryItem, error)
	Claim(ctx context.Context, owner string, now time.Time, lease time.Duration) (*entities.ExportRetryItem, error)
	Reschedule(ctx context.Context, id uint, attempts int, next time.Time, lastError string) error
	Delete(ctx context.Context, id uint) error
}

// Queue is the producer side used by inline exports and the OAuth callback.
type Queue struct {
	store  Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewQueue(store Store, clk clock.Clock, logger *zap.Logger) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{store: store, clock: clk, logger: logger}
}

// Enqueue schedules an export attempt due immediately. It does not
// deduplicate; the worker checks the ledger instead.
func (q *Queue) Enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint) (*entities.ExportRetryItem, error) {
	item, err := q.store.Enqueue(ctx, userID, contentType, contentID, q.clock.Now())
	if err != nil {
		return nil, err
	}
	q.logger.Info("export queued for retry",
		zap.Uint("item_id", item.ID),
		zap.Uint("user_id", userID),
		zap.String("content_type", string(contentType)),
		zap.Uint("content_id", contentID),
	)
	return item, nil
}
