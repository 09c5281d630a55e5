// Package queue stores pending export retries.
//
// Items are claimed with a conditional UPDATE that sets a lease owner, so
// two workers sharing the database never process the same item at once.
// An expired lease makes the item claimable again, which is how a worker
// crash mid-attempt turns into one extra retry.
package queue

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/entities"
)

// ErrNoDueItem is returned by Claim when nothing is eligible.
var ErrNoDueItem = errors.New("no due export retry item")

const maxLastErrorLen = 500

// claimRetries bounds how often Claim re-selects after losing a race.
const claimRetries = 3

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a pending item due at now. Duplicate items for the same
// content are allowed.
func (r *Repository) Enqueue(ctx context.Context, userID uint, contentType entities.ContentType, contentID uint, now time.Time) (*entities.ExportRetryItem, error) {
	now = now.UTC()
	item := &entities.ExportRetryItem{
		UserID:        userID,
		ContentType:   contentType,
		ContentID:     contentID,
		Attempts:      0,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Claim leases the oldest due item to owner until now+lease.
func (r *Repository) Claim(ctx context.Context, owner string, now time.Time, lease time.Duration) (*entities.ExportRetryItem, error) {
	now = now.UTC()
	db := r.db.WithContext(ctx)

	for i := 0; i < claimRetries; i++ {
		var candidate entities.ExportRetryItem
		err := claimable(db.Model(&entities.ExportRetryItem{}), now).
			Order("next_attempt_at ASC, id ASC").
			Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDueItem
		}
		if err != nil {
			return nil, err
		}

		expires := now.Add(lease)
		result := claimable(db.Model(&entities.ExportRetryItem{}).Where("id = ?", candidate.ID), now).
			Updates(map[string]any{
				"lease_owner":      owner,
				"lease_expires_at": expires,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			candidate.LeaseOwner = &owner
			candidate.LeaseExpiresAt = &expires
			return &candidate, nil
		}
		// Another worker leased it between select and update.
	}
	return nil, ErrNoDueItem
}

func claimable(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("next_attempt_at <= ?", now).
		Where("(lease_owner IS NULL OR lease_expires_at IS NULL OR lease_expires_at <= ?)", now)
}

// Reschedule records a failed attempt and releases the lease.
func (r *Repository) Reschedule(ctx context.Context, id uint, attempts int, next time.Time, lastError string) error {
	lastError = truncate(lastError, maxLastErrorLen)
	return r.db.WithContext(ctx).Model(&entities.ExportRetryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":         attempts,
			"next_attempt_at":  next.UTC(),
			"last_error":       lastError,
			"lease_owner":      nil,
			"lease_expires_at": nil,
		}).Error
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.ExportRetryItem{}, id).Error
}

// ListByUser returns the user's pending items, soonest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]entities.ExportRetryItem, error) {
	var items []entities.ExportRetryItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("next_attempt_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// CountDue returns how many items are eligible at now, leased or not.
func (r *Repository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.ExportRetryItem{}).
		Where("next_attempt_at <= ?", now.UTC()).
		Count(&count).Error
	return count, err
}
