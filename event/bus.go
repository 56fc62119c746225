package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/game/ai"
)

// ErrStop signals that a handler wants lower-priority handlers skipped.
var ErrStop = errors.New("event: stop propagation")

// Any subscribes a handler to every event type.
const Any ai.EventType = "*"

// Handler reacts to one AI event.
type Handler func(ctx context.Context, ev ai.Event) error

type subscriber struct {
	priority int
	seq      uint64
	name     string
	fn       Handler
}

// Bus dispatches AI events to named handlers in priority order (lower runs
// first). It implements ai.EventSink, so the Director emits straight into it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[ai.EventType][]*subscriber
	seq      uint64
	logger   *zap.Logger

	emitted atomic.Uint64
	counts  sync.Map // ai.EventType -> *atomic.Uint64
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[ai.EventType][]*subscriber), logger: logger}
}

// Subscribe adds fn for typ (or Any). name is the key for Unsubscribe.
func (b *Bus) Subscribe(typ ai.EventType, priority int, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	subs := append(b.handlers[typ], &subscriber{priority: priority, seq: b.seq, name: name, fn: fn})
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].priority < subs[j].priority })
	b.handlers[typ] = subs
}

// Unsubscribe removes every handler called name from typ.
func (b *Bus) Unsubscribe(typ ai.EventType, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = without(b.handlers[typ], name)
}

// UnsubscribeAll removes every handler called name, whatever its type.
func (b *Bus) UnsubscribeAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for typ, subs := range b.handlers {
		b.handlers[typ] = without(subs, name)
	}
}

func without(subs []*subscriber, name string) []*subscriber {
	out := subs[:0:0]
	for _, s := range subs {
		if s.name != name {
			out = append(out, s)
		}
	}
	return out
}

// Publish runs the handlers for ev.Type and Any, merged by priority. A handler
// error does not stop dispatch unless it is ErrStop. A panicking handler is
// logged and treated as an error. The joined handler errors are returned.
func (b *Bus) Publish(ctx context.Context, ev ai.Event) error {
	b.emitted.Add(1)
	b.counter(ev.Type).Add(1)

	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.handlers[ev.Type])+len(b.handlers[Any]))
	subs = append(subs, b.handlers[ev.Type]...)
	if ev.Type != Any {
		subs = append(subs, b.handlers[Any]...)
	}
	b.mu.RUnlock()

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority < subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})

	var errs []error
	for _, s := range subs {
		err := b.call(ctx, s, ev)
		if errors.Is(err, ErrStop) {
			break
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) call(ctx context.Context, s *subscriber, ev ai.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("handler", s.name),
				zap.String("event", string(ev.Type)),
				zap.Any("recover", r))
			err = errors.New("event: handler " + s.name + " panicked")
		}
	}()
	return s.fn(ctx, ev)
}

// Emit implements ai.EventSink. Handler errors are logged, never returned to
// the AI tick.
func (b *Bus) Emit(ev ai.Event) {
	if err := b.Publish(context.Background(), ev); err != nil {
		b.logger.Warn("event dispatch failed",
			zap.String("event", string(ev.Type)),
			zap.Uint64("entity", uint64(ev.EntityID)),
			zap.Error(err))
	}
}

func (b *Bus) counter(typ ai.EventType) *atomic.Uint64 {
	if c, ok := b.counts.Load(typ); ok {
		return c.(*atomic.Uint64)
	}
	c, _ := b.counts.LoadOrStore(typ, &atomic.Uint64{})
	return c.(*atomic.Uint64)
}

// Emitted returns the total number of events published.
func (b *Bus) Emitted() uint64 { return b.emitted.Load() }

// Counts returns the number of events published per type.
func (b *Bus) Counts() map[ai.EventType]uint64 {
	out := make(map[ai.EventType]uint64)
	b.counts.Range(func(k, v interface{}) bool {
		out[k.(ai.EventType)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}
