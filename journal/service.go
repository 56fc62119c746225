// Package journal persists AI events to the database in batches.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/model"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = 2 * time.Second
	queueSize            = 1024

	// PruneTickerName is the scheduler task that deletes old rows.
	PruneTickerName = "journal_prune"
)

// Config holds journal settings. Zero values take the defaults.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Service writes AI events asynchronously in batches.
type Service struct {
	db        *gorm.DB
	ch        chan *model.AIEventLog
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	dropped   atomic.Uint64
}

// New creates a journal Service and starts its background worker.
func New(db *gorm.DB, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:        db,
		ch:        make(chan *model.AIEventLog, queueSize),
		stopCh:    make(chan struct{}),
		logger:    logger,
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Attach subscribes the journal to every event on b.
func (svc *Service) Attach(b *event.Bus) {
	b.Subscribe(event.Any, 900, "journal", func(_ context.Context, ev ai.Event) error {
		svc.Record(ev)
		return nil
	})
}

// Record enqueues ev for an async DB write. Events that do not encode are
// logged and skipped; a full queue drops the event.
func (svc *Service) Record(ev ai.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		svc.logger.Warn("journal skipped unencodable event",
			zap.String("event_type", string(ev.Type)), zap.Error(err))
		return
	}
	row := &model.AIEventLog{
		EntityID:   uint64(ev.EntityID),
		Archetype:  ev.Archetype,
		Type:       string(ev.Type),
		X:          ev.X,
		Y:          ev.Y,
		Payload:    datatypes.JSON(payload),
		OccurredAt: ev.Timestamp,
	}
	select {
	case svc.ch <- row:
	default:
		if svc.dropped.Add(1) == 1 {
			svc.logger.Warn("journal queue full, dropping events",
				zap.String("event_type", string(ev.Type)))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (svc *Service) Dropped() uint64 { return svc.dropped.Load() }

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished or ctx ends.
func (svc *Service) Stop(ctx context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		svc.logger.Warn("journal stop timed out", zap.Error(ctx.Err()))
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	batch := make([]*model.AIEventLog, 0, svc.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("journal batch write failed",
				zap.Int("rows", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-svc.ch:
			batch = append(batch, row)
			if len(batch) >= svc.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case row := <-svc.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
