package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
	"github.com/eztutor/drive-export/internal/services"
	"github.com/eztutor/drive-export/internal/tasks"
)

// ExportRequest is the body of POST /api/export-to-drive.
type ExportRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	ContentID   uint   `json:"contentId" binding:"required"`
}

// ExportResponse is returned on an immediate successful export.
type ExportResponse struct {
	Success        bool   `json:"success"`
	GoogleDriveURL string `json:"googleDriveUrl"`
	FileName       string `json:"fileName"`
	FolderPath     string `json:"folderPath"`
	Docx           bool   `json:"docx"`
}

// ConsentResponse tells the client to send the user through Google consent.
type ConsentResponse struct {
	Error       string `json:"error"`
	RedirectURL string `json:"redirectUrl"`
}

// QueuedResponse reports a transient failure that the retry queue took over.
type QueuedResponse struct {
	Error  string `json:"error"`
	Queued bool   `json:"queued"`
}

// ExportController handles Drive export requests.
type ExportController struct {
	exporter ContentExporter
	tasks    TaskQueue
	logger   *zap.Logger
}

// NewExportController creates a new ExportController. taskQueue may be nil,
// which disables async exports.
func NewExportController(exporter ContentExporter, taskQueue TaskQueue, logger *zap.Logger) *ExportController {
	return &ExportController{
		exporter: exporter,
		tasks:    taskQueue,
		logger:   logger,
	}
}

// Export handles POST /api/export-to-drive
// With ?async=1 the export runs as a background task and 202 is returned.
func (ec *ExportController) Export(c *gin.Context) {
	userID := GetUserID(c)

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "contentType and contentId are required")
		return
	}
	if _, ok := entities.ParseContentType(req.ContentType); !ok {
		respondBadRequest(c, "contentType must be one of: lesson, quiz")
		return
	}

	if isTruthy(c.Query("async")) {
		ec.exportAsync(c, userID, req)
		return
	}

	result, err := ec.exporter.Export(c.Request.Context(), userID, req.ContentType, req.ContentID)
	if err != nil {
		ec.respondExportError(c, userID, req, err)
		return
	}

	_, url := result.LedgerRef()
	c.JSON(http.StatusOK, ExportResponse{
		Success:        true,
		GoogleDriveURL: url,
		FileName:       result.Name,
		FolderPath:     result.FolderPath,
		Docx:           result.HasDocx(),
	})
}

func (ec *ExportController) exportAsync(c *gin.Context, userID uint, req ExportRequest) {
	if ec.tasks == nil {
		respondError(c, http.StatusServiceUnavailable, "background exports are disabled")
		return
	}

	taskID, err := ec.tasks.Enqueue(tasks.ExportContentTask{
		UserID:      userID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
	})
	if err != nil {
		respondInternalError(c, ec.logger, err, "enqueue export task")
		return
	}

	respondAccepted(c, "export scheduled", gin.H{"taskId": taskID})
}

func (ec *ExportController) respondExportError(c *gin.Context, userID uint, req ExportRequest, err error) {
	if consent, ok := oauth2.AsConsentRequired(err); ok {
		c.JSON(http.StatusUnauthorized, ConsentResponse{
			Error:       "google drive authorization required",
			RedirectURL: consent.URL,
		})
		return
	}
	if _, ok := services.AsQueued(err); ok {
		c.JSON(http.StatusInternalServerError, QueuedResponse{
			Error:  "export failed temporarily and was queued for retry",
			Queued: true,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrContentNotFound):
		respondNotFound(c, req.ContentType)
	case errors.Is(err, services.ErrUnsupportedContentType):
		respondBadRequest(c, "contentType must be one of: lesson, quiz")
	case errors.Is(err, oauth2.ErrNotConfigured):
		ec.logger.Error("google oauth is not configured", zap.Uint("user_id", userID))
		respondError(c, http.StatusInternalServerError, "google drive export is not configured")
	default:
		respondInternalError(c, ec.logger, err, "export to drive")
	}
}
