package world

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/ai"
)

const (
	// StatsKey is the cache hash holding the latest Director stats.
	StatsKey = "ai:stats"
	// StatsTickerName is the scheduler task that publishes stats.
	StatsTickerName = "ai_stats"

	defaultStatsInterval = 5 * time.Second
)

// StatsPublisher copies Director stats into a cache hash so dashboards and
// other processes can read them without touching the Director.
type StatsPublisher struct {
	director *Director
	cache    cache.Cache
	counts   func() map[ai.EventType]uint64
	interval time.Duration
	logger   *zap.Logger
}

// NewStatsPublisher creates a publisher. counts, if non-nil, adds per-type
// event totals to the hash.
func NewStatsPublisher(d *Director, c cache.Cache, counts func() map[ai.EventType]uint64, interval time.Duration, logger *zap.Logger) *StatsPublisher {
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsPublisher{director: d, cache: c, counts: counts, interval: interval, logger: logger}
}

// Start registers the publisher with t.
func (p *StatsPublisher) Start(t Ticker) {
	t.AddTicker(StatsTickerName, p.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()
		if err := p.Publish(ctx); err != nil {
			p.logger.Warn("publish ai stats failed", zap.Error(err))
		}
	})
}

// Publish writes the current stats. The hash expires after three missed
// intervals so a dead server's stats do not linger.
func (p *StatsPublisher) Publish(ctx context.Context) error {
	if err := p.cache.HSet(ctx, StatsKey, StatsFields(p.director.Stats(), p.eventCounts())); err != nil {
		return err
	}
	return p.cache.Expire(ctx, StatsKey, 3*p.interval)
}

func (p *StatsPublisher) eventCounts() map[ai.EventType]uint64 {
	if p.counts == nil {
		return nil
	}
	return p.counts()
}

// StatsFields flattens stats into string hash fields.
func StatsFields(s Stats, events map[ai.EventType]uint64) map[string]string {
	f := map[string]string{
		"enabled":          strconv.FormatBool(s.Enabled),
		"entity_count":     strconv.Itoa(s.Entities),
		"active_count":     strconv.Itoa(s.Active),
		"update_rate_ms":   strconv.FormatInt(s.UpdateRateMs, 10),
		"ticks":            strconv.FormatUint(s.Ticks, 10),
		"panics":           strconv.FormatUint(s.Panics, 10),
		"last_tick_micros": strconv.FormatInt(s.LastTickDuration.Microseconds(), 10),
	}
	if !s.LastTick.IsZero() {
		f["last_tick"] = s.LastTick.UTC().Format(time.RFC3339Nano)
	}
	for k, n := range s.Memory {
		f["memory."+string(k)] = strconv.Itoa(n)
	}
	for typ, n := range events {
		f["events."+string(typ)] = strconv.FormatUint(n, 10)
	}
	return f
}
