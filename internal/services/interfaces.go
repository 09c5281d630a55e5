package services

import (
	"context"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

// ContentReader provides read-only access to lessons and quizzes.
type ContentReader interface {
	GetContent(userID uint, contentType entities.ContentType, id uint) (*entities.ExportContent, error)
}

// TokenSource hands out valid access tokens or a consent outcome.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context, userID uint, pending *oauth2.PendingExport) (string, error)
	ConsentURL(userID uint, pending *oauth2.PendingExport) (string, error)
}

// DocumentExporter writes one content record to the user's Drive.
type DocumentExporter interface {
	Export(ctx context.Context, userID uint, accessToken string, content *entities.ExportContent) (*entities.ExportResult, error)
}

// LedgerWriter records confirmed exports.
type LedgerWriter interface {
	Append(ctx context.Context, entry *entities.DriveExport) error
}

// RetryEnqueuer hands failed exports to the retry queue.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint) (*entities.ExportRetryItem, error)
}

// ExportAuditor records export history.
type ExportAuditor interface {
	LogExport(userID uint, contentType entities.ContentType, contentID uint, fileURL string, err error)
}
