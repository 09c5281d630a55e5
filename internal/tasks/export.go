package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
	"github.com/eztutor/drive-export/internal/services"
)

// ContentExporter runs one export end to end.
type ContentExporter interface {
	Export(ctx context.Context, userID uint, rawType string, contentID uint) (*entities.ExportResult, error)
}

// ExportContentTask exports one lesson or quiz to the user's Drive in the
// background.
type ExportContentTask struct {
	UserID      uint   `json:"user_id"`
	ContentType string `json:"content_type"`
	ContentID   uint   `json:"content_id"`
}

// Config returns the queue configuration for export tasks. Transient
// failures are handed to the export retry queue by the export service, so
// the task itself runs once.
func (t ExportContentTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "export_content",
		MaxAttempts: 1,
		Timeout:     DefaultConfig().ExportTimeout,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ExportContentProcessor creates a processor function for ExportContentTask.
func ExportContentProcessor(exporter ContentExporter, logger *zap.Logger) backlite.QueueProcessor[ExportContentTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task ExportContentTask) error {
		if exporter == nil {
			return errors.New("content exporter not configured")
		}

		log := logger.With(
			zap.Uint("user_id", task.UserID),
			zap.String("content_type", task.ContentType),
			zap.Uint("content_id", task.ContentID),
		)

		result, err := exporter.Export(ctx, task.UserID, task.ContentType, task.ContentID)
		if err == nil {
			log.Info("async export finished", zap.String("file_id", result.FileID))
			return nil
		}

		if qe, ok := services.AsQueued(err); ok {
			log.Info("async export handed to retry queue", zap.Uint("item_id", qe.ItemID))
			return nil
		}
		if _, ok := oauth2.AsConsentRequired(err); ok {
			// Nothing a retry can fix until the user reconnects.
			log.Info("async export needs google consent")
			return nil
		}
		return err
	}
}

// NewExportContentQueue creates a backlite queue for export tasks.
func NewExportContentQueue(exporter ContentExporter, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ExportContentProcessor(exporter, logger))
}
