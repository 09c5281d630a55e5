package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/auth"
	"github.com/eztutor/drive-export/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies left nil disable
// their routes.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Exporter ContentExporter
	Logger   *zap.Logger

	// Authentication
	AuthMiddleware *auth.Middleware

	// Google OAuth
	Tokens      OAuthTokens
	Flow        OAuthFlow
	FrontendURL string

	// Export history and retry visibility
	RetryQueue RetryEnqueuer
	Ledger     LedgerReader
	Queue      QueueReader
	Failures   FailureReader

	// Audit
	Auditor     ConnectionAuditor
	AuditReader AuditReader

	// Task queue client (optional)
	TaskClient TaskQueue

	// Prometheus handler for /metrics (optional)
	MetricsHandler http.Handler

	// Extra readiness probes for /health, keyed by check name
	HealthChecks map[string]HealthCheck
	// Retry backlog reported by /health (optional)
	QueueBacklog QueueBacklog
	QueueTicking func() bool

	// Application info
	Version string
}
