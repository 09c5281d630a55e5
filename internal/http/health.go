package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eztutor/drive-export/internal/database"
)

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

// QueueBacklog counts retry items that are due at now.
type QueueBacklog interface {
	CountDue(ctx context.Context, now time.Time) (int64, error)
}

type QueueHealth struct {
	Due     int64 `json:"due"`
	Ticking bool  `json:"ticking"`
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Time        string            `json:"time"`
	Version     string            `json:"version,omitempty"`
	Checks      map[string]string `json:"checks"`
	ExportQueue *QueueHealth      `json:"export_queue,omitempty"`
}

type HealthController struct {
	db      *database.Database
	version string
	checks  map[string]HealthCheck
	backlog QueueBacklog
	ticking func() bool
}

func NewHealthController(db *database.Database, version string, checks map[string]HealthCheck) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
		checks:  checks,
	}
}

// WithQueue adds the retry backlog to the report. ticking may be nil when
// no worker runs in this process.
func (h *HealthController) WithQueue(backlog QueueBacklog, ticking func() bool) *HealthController {
	h.backlog = backlog
	h.ticking = ticking
	return h
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, check := range h.checks {
		// Optional dependencies degrade the service without failing it.
		if err := check(ctx); err != nil {
			checks[name] = "degraded: " + err.Error()
			continue
		}
		checks[name] = "ok"
	}

	var queue *QueueHealth
	if h.backlog != nil {
		due, err := h.backlog.CountDue(ctx, time.Now())
		if err != nil {
			checks["export_queue"] = "degraded: " + err.Error()
		} else {
			checks["export_queue"] = "ok"
			queue = &QueueHealth{Due: due, Ticking: h.ticking != nil && h.ticking()}
		}
	}

	health := HealthResponse{
		Status:      status,
		Time:        time.Now().Format(time.RFC3339),
		Version:     h.version,
		Checks:      checks,
		ExportQueue: queue,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
