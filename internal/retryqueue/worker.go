package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/database/content"
	"github.com/eztutor/drive-export/internal/database/queue"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/metrics"
	"github.com/eztutor/drive-export/internal/oauth2"
	"github.com/eztutor/drive-export/internal/storage"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultBaseDelay   = time.Minute
	DefaultMaxDelay    = time.Hour
	DefaultMaxAttempts = 144
	DefaultLease       = 5 * time.Minute
)

type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Lease       time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Lease <= 0 {
		c.Lease = DefaultLease
	}
	return c
}

type CredentialReader interface {
	GetTokens(userID uint) (*entities.TokenPair, error)
}

type TokenSource interface {
	GetValidAccessToken(ctx context.Context, userID uint, pending *oauth2.PendingExport) (string, error)
}

type ContentReader interface {
	GetContent(userID uint, contentType entities.ContentType, id uint) (*entities.ExportContent, error)
}

type Exporter interface {
	Export(ctx context.Context, userID uint, accessToken string, content *entities.ExportContent) (*entities.ExportResult, error)
}

type Ledger interface {
	Append(ctx context.Context, entry *entities.DriveExport) error
	ExportedSince(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint, since time.Time) (bool, error)
}

type FailureRecorder interface {
	Record(ctx context.Context, failure *entities.ExportFailure) error
}

type Auditor interface {
	LogExport(userID uint, contentType entities.ContentType, contentID uint, fileURL string, err error)
	LogDeadLetter(userID uint, contentType entities.ContentType, contentID uint, attempts int, reason string)
}

// Deps groups the worker's collaborators.
type Deps struct {
	Store       Store
	Credentials CredentialReader
	Tokens      TokenSource
	Content     ContentReader
	Exporter    Exporter
	Ledger      Ledger
	Failures    FailureRecorder
	Audit       Auditor
}

// Outcome is what a tick did with the item it claimed.
type Outcome string

const (
	OutcomeIdle         Outcome = "idle"
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeRescheduled  Outcome = "rescheduled"
	OutcomeDropped      Outcome = "dropped"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Worker processes the retry queue. Each Tick handles at most one item.
type Worker struct {
	deps    Deps
	cfg     Config
	owner   string
	clock   clock.Clock
	metrics metrics.Sink
	logger  *zap.Logger
}

type WorkerOption func(*Worker)

func WithWorkerClock(c clock.Clock) WorkerOption {
	return func(w *Worker) {
		w.clock = c
	}
}

func WithWorkerMetrics(s metrics.Sink) WorkerOption {
	return func(w *Worker) {
		w.metrics = s
	}
}

func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

func NewWorker(deps Deps, cfg Config, opts ...WorkerOption) *Worker {
	w := &Worker{
		deps:    deps,
		cfg:     cfg.withDefaults(),
		owner:   uuid.NewString(),
		clock:   clock.Real{},
		metrics: metrics.Nop{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("worker", w.owner))
	return w
}

// Tick claims the oldest due item and processes it.
func (w *Worker) Tick(ctx context.Context) (Outcome, error) {
	item, err := w.deps.Store.Claim(ctx, w.owner, w.clock.Now(), w.cfg.Lease)
	if errors.Is(err, queue.ErrNoDueItem) {
		return OutcomeIdle, nil
	}
	if err != nil {
		return OutcomeIdle, fmt.Errorf("failed to claim retry item: %w", err)
	}

	log := w.logger.With(
		zap.Uint("item_id", item.ID),
		zap.Uint("user_id", item.UserID),
		zap.String("content_type", string(item.ContentType)),
		zap.Uint("content_id", item.ContentID),
		zap.Int("attempts", item.Attempts),
	)
	log.Debug("processing queued export")

	return w.process(ctx, item, log)
}

// Drain runs ticks until no item is due or limit items were handled.
// A non-positive limit means no limit. It backs the drain-queue command;
// the scheduler calls Tick once per firing.
func (w *Worker) Drain(ctx context.Context, limit int) (map[Outcome]int, error) {
	counts := make(map[Outcome]int)
	for n := 0; limit <= 0 || n < limit; n++ {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		outcome, err := w.Tick(ctx)
		if err != nil {
			return counts, err
		}
		if outcome == OutcomeIdle {
			break
		}
		counts[outcome]++
	}
	return counts, nil
}

func (w *Worker) process(ctx context.Context, item *entities.ExportRetryItem, log *zap.Logger) (Outcome, error) {
	pair, err := w.deps.Credentials.GetTokens(item.UserID)
	switch {
	case errors.Is(err, oauth2.ErrUserNotFound), err == nil && !pair.HasRefreshToken():
		log.Info("no stored credential for queued export, dropping")
		w.metrics.Inc(metrics.RetrySkippedNoToken)
		return w.drop(ctx, item)
	case err != nil && !isUnreadableCredential(err):
		return w.fail(ctx, item, fmt.Errorf("load credentials: %w", err), log)
	}

	done, err := w.deps.Ledger.ExportedSince(ctx, item.UserID, item.ContentType, item.ContentID, item.CreatedAt)
	if err != nil {
		return w.fail(ctx, item, fmt.Errorf("check ledger: %w", err), log)
	}
	if done {
		log.Info("content already exported since item was queued, dropping")
		return w.drop(ctx, item)
	}

	accessToken, err := w.deps.Tokens.GetValidAccessToken(ctx, item.UserID, nil)
	if err != nil {
		if _, ok := oauth2.AsConsentRequired(err); ok {
			log.Info("consent required for queued export, dropping", zap.Error(err))
			w.metrics.Inc(metrics.RetryFailedRefresh)
			return w.drop(ctx, item)
		}
		if errors.Is(err, oauth2.ErrNotConfigured) {
			return w.deadLetter(ctx, item, item.Attempts, err, metrics.RetryPermanentFailure, log)
		}
		return w.fail(ctx, item, err, log)
	}

	exportContent, err := w.deps.Content.GetContent(item.UserID, item.ContentType, item.ContentID)
	if errors.Is(err, content.ErrNotFound) {
		log.Info("content no longer exists, dropping queued export")
		w.metrics.Inc(metrics.RetrySkippedMissing)
		return w.drop(ctx, item)
	}
	if errors.Is(err, content.ErrMalformed) {
		return w.deadLetter(ctx, item, item.Attempts+1, err, metrics.RetryPermanentFailure, log)
	}
	if err != nil {
		return w.fail(ctx, item, fmt.Errorf("load content: %w", err), log)
	}

	result, err := w.deps.Exporter.Export(ctx, item.UserID, accessToken, exportContent)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			log.Info("access token rejected by storage, dropping", zap.Error(err))
			w.metrics.Inc(metrics.RetryFailedRefresh)
			return w.drop(ctx, item)
		case errors.Is(err, storage.ErrPermanent):
			return w.deadLetter(ctx, item, item.Attempts+1, err, metrics.RetryPermanentFailure, log)
		default:
			return w.fail(ctx, item, err, log)
		}
	}

	fileID, fileURL := result.LedgerRef()
	entry := &entities.DriveExport{
		UserID:          item.UserID,
		ContentType:     item.ContentType,
		ContentID:       item.ContentID,
		ProviderFileID:  fileID,
		ProviderFileURL: fileURL,
		ExportedAt:      w.clock.Now().UTC(),
	}
	if err := w.deps.Ledger.Append(ctx, entry); err != nil {
		// The document exists upstream; keep the item so the ledger row
		// is eventually written, at the cost of a duplicate document.
		w.metrics.Inc(metrics.ExportLedgerWriteFailed)
		return w.fail(ctx, item, fmt.Errorf("write ledger: %w", err), log)
	}

	if err := w.deps.Store.Delete(ctx, item.ID); err != nil {
		log.Error("failed to delete delivered queue item", zap.Error(err))
		return OutcomeSucceeded, err
	}

	w.metrics.Inc(metrics.RetrySuccess)
	w.audit().LogExport(item.UserID, item.ContentType, item.ContentID, fileURL, nil)
	log.Info("queued export succeeded", zap.String("file_id", fileID))
	return OutcomeSucceeded, nil
}

// fail records a retryable failure: reschedule with backoff, or give up
// once attempts pass the ceiling.
func (w *Worker) fail(ctx context.Context, item *entities.ExportRetryItem, cause error, log *zap.Logger) (Outcome, error) {
	attempts := item.Attempts + 1
	if attempts > w.cfg.MaxAttempts {
		return w.deadLetter(ctx, item, attempts, cause, metrics.RetryGaveUp, log)
	}

	delay := Backoff(attempts, w.cfg.BaseDelay, w.cfg.MaxDelay)
	next := w.clock.Now().Add(delay)
	if err := w.deps.Store.Reschedule(ctx, item.ID, attempts, next, cause.Error()); err != nil {
		log.Error("failed to reschedule queue item", zap.Error(err))
		return OutcomeRescheduled, err
	}

	w.metrics.Inc(metrics.RetryError)
	log.Warn("queued export failed, rescheduled",
		zap.Int("next_attempts", attempts),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
	return OutcomeRescheduled, nil
}

func (w *Worker) deadLetter(ctx context.Context, item *entities.ExportRetryItem, attempts int, cause error, counter string, log *zap.Logger) (Outcome, error) {
	reason := cause.Error()
	failure := &entities.ExportFailure{
		UserID:      item.UserID,
		ContentType: item.ContentType,
		ContentID:   item.ContentID,
		Attempts:    attempts,
		Reason:      reason,
		FailedAt:    w.clock.Now().UTC(),
	}
	if w.deps.Failures != nil {
		if err := w.deps.Failures.Record(ctx, failure); err != nil {
			log.Error("failed to record dead letter", zap.Error(err))
		}
	}
	w.audit().LogDeadLetter(item.UserID, item.ContentType, item.ContentID, attempts, reason)
	w.metrics.Inc(counter)
	log.Error("giving up on queued export", zap.Int("attempts", attempts), zap.Error(cause))

	if _, err := w.drop(ctx, item); err != nil {
		return OutcomeDeadLettered, err
	}
	return OutcomeDeadLettered, nil
}

func (w *Worker) drop(ctx context.Context, item *entities.ExportRetryItem) (Outcome, error) {
	if err := w.deps.Store.Delete(ctx, item.ID); err != nil {
		return OutcomeDropped, fmt.Errorf("failed to delete queue item %d: %w", item.ID, err)
	}
	return OutcomeDropped, nil
}

func (w *Worker) audit() Auditor {
	if w.deps.Audit == nil {
		return nopAuditor{}
	}
	return w.deps.Audit
}

type nopAuditor struct{}

func (nopAuditor) LogExport(uint, entities.ContentType, uint, string, error) {}
func (nopAuditor) LogDeadLetter(uint, entities.ContentType, uint, int, string) {}

// isUnreadableCredential reports a stored credential that no longer
// decrypts. The token manager turns it into a consent outcome.
func isUnreadableCredential(err error) bool {
	return errors.Is(err, crypto.ErrDecryptionFailed) || errors.Is(err, crypto.ErrMalformedCiphertext)
}
