package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eztutor/drive-export/internal/entities"
)

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	userID := GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	eventType := c.Query("type")
	offset := (page - 1) * limit

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType != "" {
		events, total, err = ac.auditService.GetEventsByType(entities.AuditEventType(eventType), userID, limit, offset)
	} else {
		events, total, err = ac.auditService.GetEvents(userID, limit, offset)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load audit events",
		})
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}
