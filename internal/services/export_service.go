package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/database/content"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/metrics"
	"github.com/eztutor/drive-export/internal/oauth2"
	"github.com/eztutor/drive-export/internal/storage"
)

var (
	ErrContentNotFound        = errors.New("content not found")
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// QueuedError reports that the export failed transiently and was handed to
// the retry queue.
type QueuedError struct {
	ItemID uint
	Cause  error
}

func (e *QueuedError) Error() string {
	return fmt.Sprintf("export failed and was queued for retry (item %d): %v", e.ItemID, e.Cause)
}

func (e *QueuedError) Unwrap() error {
	return e.Cause
}

// AsQueued extracts a *QueuedError from err.
func AsQueued(err error) (*QueuedError, bool) {
	var qe *QueuedError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// ExportService runs the inline export path. Every call ends in one of:
// a result, a *oauth2.ConsentRequiredError, a *QueuedError, or a plain
// error for failures no retry will fix.
type ExportService struct {
	content  ContentReader
	tokens   TokenSource
	exporter DocumentExporter
	ledger   LedgerWriter
	queue    RetryEnqueuer
	audit    ExportAuditor
	clock    clock.Clock
	metrics  metrics.Sink
	logger   *zap.Logger
}

// ExportServiceOption configures an ExportService
type ExportServiceOption func(*ExportService)

func WithAuditor(a ExportAuditor) ExportServiceOption {
	return func(s *ExportService) {
		s.audit = a
	}
}

func WithClock(c clock.Clock) ExportServiceOption {
	return func(s *ExportService) {
		s.clock = c
	}
}

func WithMetrics(m metrics.Sink) ExportServiceOption {
	return func(s *ExportService) {
		s.metrics = m
	}
}

func WithLogger(l *zap.Logger) ExportServiceOption {
	return func(s *ExportService) {
		s.logger = l
	}
}

func NewExportService(
	contentReader ContentReader,
	tokens TokenSource,
	exporter DocumentExporter,
	ledger LedgerWriter,
	queue RetryEnqueuer,
	opts ...ExportServiceOption,
) *ExportService {
	s := &ExportService{
		content:  contentReader,
		tokens:   tokens,
		exporter: exporter,
		ledger:   ledger,
		queue:    queue,
		audit:    nopAuditor{},
		clock:    clock.Real{},
		metrics:  metrics.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export exports the user's content record to Google Drive.
func (s *ExportService) Export(ctx context.Context, userID uint, rawType string, contentID uint) (*entities.ExportResult, error) {
	contentType, ok := entities.ParseContentType(rawType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, rawType)
	}

	log := s.logger.With(
		zap.Uint("user_id", userID),
		zap.String("content_type", string(contentType)),
		zap.Uint("content_id", contentID),
	)

	record, err := s.content.GetContent(userID, contentType, contentID)
	if errors.Is(err, content.ErrNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	pending := &oauth2.PendingExport{ContentType: contentType, ContentID: contentID}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, userID, pending)
	if err != nil {
		if _, ok := oauth2.AsConsentRequired(err); ok {
			return nil, err
		}
		if oauth2.IsTransient(err) {
			return nil, s.enqueue(ctx, userID, contentType, contentID, err, log)
		}
		return nil, err
	}

	result, err := s.exporter.Export(ctx, userID, accessToken, record)
	if err != nil {
		switch {
		case storage.IsTransient(err):
			return nil, s.enqueue(ctx, userID, contentType, contentID, err, log)
		case errors.Is(err, storage.ErrUnauthorized):
			// The token looked valid but Drive refused it; the grant is
			// most likely gone.
			url, urlErr := s.tokens.ConsentURL(userID, pending)
			if urlErr != nil {
				return nil, urlErr
			}
			s.metrics.Inc(metrics.ExportConsentRequired)
			return nil, &oauth2.ConsentRequiredError{URL: url, Reason: "access token rejected by drive"}
		default:
			s.metrics.Inc(metrics.ExportInlineFailed)
			s.audit.LogExport(userID, contentType, contentID, "", err)
			log.Error("drive export failed permanently", zap.Error(err))
			return nil, fmt.Errorf("drive export failed: %w", err)
		}
	}

	fileID, fileURL := result.LedgerRef()
	entry := &entities.DriveExport{
		UserID:          userID,
		ContentType:     contentType,
		ContentID:       contentID,
		ProviderFileID:  fileID,
		ProviderFileURL: fileURL,
		ExportedAt:      s.clock.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		// The document exists; queue a retry so a ledger row is eventually
		// written even though it may produce a duplicate upstream.
		s.metrics.Inc(metrics.ExportLedgerWriteFailed)
		log.Error("failed to record export in ledger", zap.Error(err))
		if qerr := s.enqueue(ctx, userID, contentType, contentID, err, log); qerr != nil {
			if _, queued := AsQueued(qerr); !queued {
				log.Error("failed to queue ledger retry", zap.Error(qerr))
			}
		}
	}

	s.metrics.Inc(metrics.ExportInlineSuccess)
	s.audit.LogExport(userID, contentType, contentID, fileURL, nil)
	log.Info("exported to google drive", zap.String("file_id", fileID), zap.Bool("docx", result.HasDocx()))
	return result, nil
}

// enqueue hands the export to the retry queue and returns the
// *QueuedError the caller reports.
func (s *ExportService) enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint, cause error, log *zap.Logger) error {
	item, err := s.queue.Enqueue(ctx, userID, contentType, contentID)
	if err != nil {
		s.metrics.Inc(metrics.ExportInlineFailed)
		log.Error("failed to queue export for retry", zap.NamedError("cause", cause), zap.Error(err))
		return fmt.Errorf("failed to queue export: %w", err)
	}
	s.metrics.Inc(metrics.ExportInlineQueued)
	log.Warn("export failed transiently, queued for retry", zap.Uint("item_id", item.ID), zap.Error(cause))
	return &QueuedError{ItemID: item.ID, Cause: cause}
}

type nopAuditor struct{}

func (nopAuditor) LogExport(uint, entities.ContentType, uint, string, error) {}
