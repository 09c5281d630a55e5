// Package failures keeps dead-letter records for exports the retry worker
// abandoned, so users can see what never arrived.
package failures

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/entities"
)

const maxReasonLen = 1000

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Record(ctx context.Context, failure *entities.ExportFailure) error {
	if failure.FailedAt.IsZero() {
		failure.FailedAt = time.Now().UTC()
	}
	if len(failure.Reason) > maxReasonLen {
		failure.Reason = failure.Reason[:maxReasonLen]
	}
	return r.db.WithContext(ctx).Create(failure).Error
}

// ListByUser returns up to limit of the user's failures, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint, limit int) ([]entities.ExportFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []entities.ExportFailure
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("failed_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
