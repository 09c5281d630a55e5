package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportsController exposes a user's export history, pending retries and
// dead letters.
type ExportsController struct {
	ledger   LedgerReader
	queue    QueueReader
	failures FailureReader
	logger   *zap.Logger
}

// NewExportsController creates a new ExportsController.
func NewExportsController(ledger LedgerReader, queue QueueReader, failures FailureReader, logger *zap.Logger) *ExportsController {
	return &ExportsController{
		ledger:   ledger,
		queue:    queue,
		failures: failures,
		logger:   logger,
	}
}

// ListExports handles GET /api/exports
func (ec *ExportsController) ListExports(c *gin.Context) {
	limit, offset := parsePagination(c, 25, 100)

	entries, total, err := ec.ledger.ListByUser(c.Request.Context(), GetUserID(c), limit, offset)
	if err != nil {
		respondInternalError(c, ec.logger, err, "list exports")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}

// ListQueue handles GET /api/exports/queue
func (ec *ExportsController) ListQueue(c *gin.Context) {
	items, err := ec.queue.ListByUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, ec.logger, err, "list retry queue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListFailures handles GET /api/exports/failures
func (ec *ExportsController) ListFailures(c *gin.Context) {
	limit, _ := parsePagination(c, 50, 200)

	failures, err := ec.failures.ListByUser(c.Request.Context(), GetUserID(c), limit)
	if err != nil {
		respondInternalError(c, ec.logger, err, "list export failures")
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": failures})
}
