// Package ledger records confirmed exports. Rows are only ever inserted.
package ledger

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts entry. ExportedAt defaults to the current time.
func (r *Repository) Append(ctx context.Context, entry *entities.DriveExport) error {
	if entry.ExportedAt.IsZero() {
		entry.ExportedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByUser returns a page of the user's exports, newest first, and the
// total count.
func (r *Repository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entities.DriveExport, int64, error) {
	var (
		entries []entities.DriveExport
		total   int64
	)

	query := r.db.WithContext(ctx).Model(&entities.DriveExport{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("exported_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// ExportedSince reports whether the content was exported at or after since.
// The retry worker uses it to drop items another path already delivered.
func (r *Repository) ExportedSince(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.DriveExport{}).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		Where("exported_at >= ?", since.UTC()).
		Count(&count).Error
	return count > 0, err
}
