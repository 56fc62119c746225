package journal

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kasuganosora/enemyai/model"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// Filter narrows a journal query. Zero fields match everything.
type Filter struct {
	EntityID uint64
	Type     string
	Since    time.Time
	Limit    int
}

// Query returns matching rows, newest first.
func Query(ctx context.Context, db *gorm.DB, f Filter) ([]model.AIEventLog, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	q := db.WithContext(ctx).Model(&model.AIEventLog{})
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if !f.Since.IsZero() {
		q = q.Where("occurred_at >= ?", f.Since)
	}

	var rows []model.AIEventLog
	err := q.Order("occurred_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Prune deletes rows that occurred before cutoff and returns how many went.
func Prune(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&model.AIEventLog{})
	return res.RowsAffected, res.Error
}
