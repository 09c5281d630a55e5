package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

// ContentExporter runs the inline export path.
type ContentExporter interface {
	Export(ctx context.Context, userID uint, rawType string, contentID uint) (*entities.ExportResult, error)
}

// OAuthTokens exposes the token manager operations the API needs.
type OAuthTokens interface {
	ConsentURL(userID uint, pending *oauth2.PendingExport) (string, error)
	Status(userID uint) (*entities.OAuthStatus, error)
	Disconnect(userID uint) error
}

// OAuthFlow completes the consent callback.
type OAuthFlow interface {
	CompleteWebFlow(ctx context.Context, code, state string) (*oauth2.FlowResult, error)
}

// RetryEnqueuer hands exports to the retry queue.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint) (*entities.ExportRetryItem, error)
}

// LedgerReader lists confirmed exports.
type LedgerReader interface {
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entities.DriveExport, int64, error)
}

// QueueReader lists pending retry items.
type QueueReader interface {
	ListByUser(ctx context.Context, userID uint) ([]entities.ExportRetryItem, error)
}

// FailureReader lists dead-lettered exports.
type FailureReader interface {
	ListByUser(ctx context.Context, userID uint, limit int) ([]entities.ExportFailure, error)
}

// ConnectionAuditor records OAuth connect and disconnect events.
type ConnectionAuditor interface {
	LogConnect(userID uint, err error)
	LogDisconnect(userID uint)
}

// AuditReader pages through audit events.
type AuditReader interface {
	GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// TaskQueue adds background tasks and reports their status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
