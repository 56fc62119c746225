package journal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/enemyai/scheduler"
)

// Ticker registers named periodic tasks. *scheduler.Scheduler implements it.
type Ticker interface {
	AddTicker(name string, interval time.Duration, fn scheduler.TaskFn)
}

// StartPruner deletes rows older than retention every interval. A
// non-positive retention keeps rows forever.
func StartPruner(t Ticker, db *gorm.DB, retention, interval time.Duration, logger *zap.Logger) {
	if retention <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t.AddTicker(PruneTickerName, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		n, err := Prune(ctx, db, time.Now().Add(-retention))
		if err != nil {
			logger.Warn("journal prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("journal pruned", zap.Int64("rows", n))
		}
	})
}
