package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/ai"
)

const (
	// Channel is the pub/sub channel AI events are published on.
	Channel = "ai_events"
	// RecentKey is the cache list holding the latest events, newest first.
	RecentKey = "ai:events:recent"
	// RecentLimit caps RecentKey.
	RecentLimit = 100

	forwarderName     = "forwarder"
	forwarderPriority = 1000
	forwardQueueSize  = 1024
	publishTimeout    = time.Second
)

// Forwarder relays bus events to pub/sub subscribers (SSE, WebSocket, other
// processes) and keeps a short history in the cache. Bus events are queued
// and sent by a background worker so a slow broker never stalls a tick.
type Forwarder struct {
	ps       cache.PubSub
	c        cache.Cache
	logger   *zap.Logger
	ch       chan string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Uint64
}

// NewForwarder creates a Forwarder and starts its worker. c may be nil to
// skip the history.
func NewForwarder(ps cache.PubSub, c cache.Cache, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Forwarder{
		ps:     ps,
		c:      c,
		logger: logger,
		ch:     make(chan string, forwardQueueSize),
		stopCh: make(chan struct{}),
	}
	f.wg.Add(1)
	go f.worker()
	return f
}

// Attach subscribes the forwarder to every event on b. It runs after other
// handlers.
func (f *Forwarder) Attach(b *Bus) {
	b.Subscribe(Any, forwarderPriority, forwarderName, func(_ context.Context, ev ai.Event) error {
		f.Enqueue(ev)
		return nil
	})
}

// Enqueue queues ev for the worker. It never blocks: events that do not
// encode are logged and skipped, and a full queue drops the event.
func (f *Forwarder) Enqueue(ev ai.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.Warn("forwarder skipped unencodable event",
			zap.String("event_type", string(ev.Type)), zap.Error(err))
		return
	}
	select {
	case f.ch <- string(payload):
	default:
		if f.dropped.Add(1) == 1 {
			f.logger.Warn("forwarder queue full, dropping events",
				zap.String("event_type", string(ev.Type)))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (f *Forwarder) Dropped() uint64 { return f.dropped.Load() }

// Handle publishes ev as JSON synchronously.
func (f *Forwarder) Handle(ctx context.Context, ev ai.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("forward %s: %w", ev.Type, err)
	}
	if err := f.send(ctx, string(payload)); err != nil {
		return fmt.Errorf("forward %s: %w", ev.Type, err)
	}
	return nil
}

func (f *Forwarder) send(ctx context.Context, payload string) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := f.ps.Publish(ctx, Channel, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if f.c == nil {
		return nil
	}
	if err := f.c.LPush(ctx, RecentKey, payload); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return f.c.LTrim(ctx, RecentKey, 0, RecentLimit-1)
}

// Stop sends what is already queued and shuts the worker down. It blocks
// until the worker has finished or ctx ends.
func (f *Forwarder) Stop(ctx context.Context) {
	f.stopOnce.Do(func() { close(f.stopCh) })
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warn("forwarder stop timed out", zap.Error(ctx.Err()))
	}
}

func (f *Forwarder) worker() {
	defer f.wg.Done()
	for {
		select {
		case payload := <-f.ch:
			f.forward(payload)
		case <-f.stopCh:
			for {
				select {
				case payload := <-f.ch:
					f.forward(payload)
				default:
					return
				}
			}
		}
	}
}

func (f *Forwarder) forward(payload string) {
	if err := f.send(context.Background(), payload); err != nil {
		f.logger.Warn("forward event failed", zap.Error(err))
	}
}

// Recent returns up to n of the most recent forwarded events, newest first.
// Entries that fail to decode are skipped.
func Recent(ctx context.Context, c cache.Cache, n int) ([]ai.Event, error) {
	if n <= 0 || n > RecentLimit {
		n = RecentLimit
	}
	raw, err := c.LRange(ctx, RecentKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]ai.Event, 0, len(raw))
	for _, s := range raw {
		var ev ai.Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Decode parses a pub/sub payload produced by Handle.
func Decode(payload string) (ai.Event, error) {
	var ev ai.Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
