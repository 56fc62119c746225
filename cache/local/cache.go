package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
	// Clock overrides time.Now for expiry checks.
	Clock func() time.Time
}

type item struct {
	hash     map[string]string
	list     []string
	expireAt time.Time // zero means no expiry
}

// LocalCache is an in-process stand-in for Redis covering the hash and list
// commands the AI server uses. Every key holds exactly one kind of value.
type LocalCache struct {
	mu     sync.RWMutex
	items  map[string]*item
	now    func() time.Time
	stopGC chan struct{}
	once   sync.Once
}

// NewCache creates a LocalCache and starts the background expiry sweep.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	c := &LocalCache{
		items:  make(map[string]*item),
		now:    now,
		stopGC: make(chan struct{}),
	}
	go c.runGC(interval)
	return c, nil
}

// Close stops the expiry sweep. Safe to call more than once.
func (c *LocalCache) Close() {
	c.once.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, it := range c.items {
		if c.expired(it) {
			delete(c.items, k)
		}
	}
}

func (c *LocalCache) expired(it *item) bool {
	return !it.expireAt.IsZero() && !c.now().Before(it.expireAt)
}

// live returns the unexpired item for key. Caller holds the lock.
func (c *LocalCache) live(key string) (*item, bool) {
	it, ok := c.items[key]
	if !ok || c.expired(it) {
		return nil, false
	}
	return it, true
}

// ---- Keys ----

func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok {
		return ErrNotFound
	}
	it.expireAt = c.now().Add(ttl)
	return nil
}

// ---- Hash ----

func (c *LocalCache) HSet(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok || it.hash == nil {
		it = &item{hash: make(map[string]string, len(fields))}
		c.items[key] = it
	}
	for f, v := range fields {
		it.hash[f] = v
	}
	return nil
}

func (c *LocalCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string)
	if it, ok := c.live(key); ok {
		for f, v := range it.hash {
			out[f] = v
		}
	}
	return out, nil
}

// ---- List ----

func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok {
		it = &item{}
		c.items[key] = it
	}
	// Redis semantics: the last value ends up at index 0.
	head := make([]string, 0, len(values)+len(it.list))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	it.list = append(head, it.list...)
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.live(key)
	if !ok {
		return []string{}, nil
	}
	lo, hi, ok := listBounds(int64(len(it.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, it.list[lo:hi+1])
	return out, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok {
		return nil
	}
	lo, hi, ok := listBounds(int64(len(it.list)), start, stop)
	if !ok {
		delete(c.items, key)
		return nil
	}
	it.list = append([]string(nil), it.list[lo:hi+1]...)
	return nil
}

// listBounds resolves Redis-style inclusive indexes, where negative values
// count from the tail.
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
