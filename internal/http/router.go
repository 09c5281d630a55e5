package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version, cfg.HealthChecks)
	if cfg.QueueBacklog != nil {
		health.WithQueue(cfg.QueueBacklog, cfg.QueueTicking)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")

	// Drive export
	if cfg.Exporter != nil {
		exportController := NewExportController(cfg.Exporter, cfg.TaskClient, logger)
		api.POST("/export-to-drive", exportController.Export)
	}

	// Google OAuth
	if cfg.Tokens != nil && cfg.Flow != nil {
		oauthController := NewOAuthController(cfg.Tokens, cfg.Flow, cfg.RetryQueue, cfg.Auditor, cfg.FrontendURL, logger)
		api.GET("/auth/google", oauthController.Connect)
		api.GET("/auth/google/callback", oauthController.Callback)
		api.POST("/auth/google/disconnect", oauthController.Disconnect)
		api.GET("/auth/google/status", oauthController.Status)
	}

	// Export history
	if cfg.Ledger != nil && cfg.Queue != nil && cfg.Failures != nil {
		exportsController := NewExportsController(cfg.Ledger, cfg.Queue, cfg.Failures, logger)
		api.GET("/exports", exportsController.ListExports)
		api.GET("/exports/queue", exportsController.ListQueue)
		api.GET("/exports/failures", exportsController.ListFailures)
	}

	if cfg.AuditReader != nil {
		auditController := NewAuditController(cfg.AuditReader)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	// Task status endpoint
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, logger)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
