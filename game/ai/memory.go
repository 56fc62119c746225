package ai

import "time"

// MemoryKind names one bucket of the shared memory.
type MemoryKind string

const (
	KindPlayerPositions MemoryKind = "playerPositions"
	KindThreats         MemoryKind = "threats"
	KindOpportunities   MemoryKind = "opportunities"
)

// memoryKinds fixes bucket iteration order.
var memoryKinds = [...]MemoryKind{KindPlayerPositions, KindThreats, KindOpportunities}

const (
	DefaultMemoryTTL          = 10 * time.Second
	DefaultPlayerPositionsCap = 10
)

// Record is one observation. Type is a free-form subtype such as
// "player_attack" or "pursuit"; unused fields stay zero.
type Record struct {
	Kind      MemoryKind `json:"kind"`
	Type      string     `json:"type,omitempty"`
	EntityID  EntityID   `json:"entity_id,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Intensity float64    `json:"intensity,omitempty"`
	Distance  float64    `json:"distance,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// MemoryConfig holds Memory settings. Zero values take the defaults.
type MemoryConfig struct {
	TTL                time.Duration
	PlayerPositionsCap int
	Clock              func() time.Time
}

// Memory is the time-windowed record of observations shared by every entity.
// It is only touched from the Director tick and is not safe for concurrent use.
type Memory struct {
	buckets map[MemoryKind][]Record
	ttl     time.Duration
	maxPos  int
	now     func() time.Time
}

// NewMemory creates an empty Memory.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultMemoryTTL
	}
	if cfg.PlayerPositionsCap <= 0 {
		cfg.PlayerPositionsCap = DefaultPlayerPositionsCap
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &Memory{
		buckets: make(map[MemoryKind][]Record, len(memoryKinds)),
		ttl:     cfg.TTL,
		maxPos:  cfg.PlayerPositionsCap,
		now:     cfg.Clock,
	}
	for _, k := range memoryKinds {
		m.buckets[k] = nil
	}
	return m
}

// Record appends rec to the bucket for kind, stamped with the current time.
// Unknown kinds are ignored and reported as false.
func (m *Memory) Record(kind MemoryKind, rec Record) bool {
	bucket, ok := m.buckets[kind]
	if !ok {
		return false
	}
	rec.Kind = kind
	rec.Timestamp = m.now()
	bucket = append(bucket, rec)
	if kind == KindPlayerPositions {
		bucket = trimOldest(bucket, m.maxPos)
	}
	m.buckets[kind] = bucket
	return true
}

// ObservePlayer remembers the player's latest position.
func (m *Memory) ObservePlayer(x, y float64) {
	m.Record(KindPlayerPositions, Record{X: x, Y: y})
}

// Query returns a copy of the bucket for kind, filtered by pred when non-nil.
func (m *Memory) Query(kind MemoryKind, pred func(Record) bool) []Record {
	bucket := m.buckets[kind]
	out := make([]Record, 0, len(bucket))
	for _, r := range bucket {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Tick drops records whose age has reached the TTL and caps playerPositions.
func (m *Memory) Tick() {
	now := m.now()
	for _, k := range memoryKinds {
		bucket := m.buckets[k]
		kept := bucket[:0]
		for _, r := range bucket {
			if now.Sub(r.Timestamp) < m.ttl {
				kept = append(kept, r)
			}
		}
		for i := len(kept); i < len(bucket); i++ {
			bucket[i] = Record{}
		}
		if k == KindPlayerPositions {
			kept = trimOldest(kept, m.maxPos)
		}
		m.buckets[k] = kept
	}
}

// Sizes reports the number of records per bucket.
func (m *Memory) Sizes() map[MemoryKind]int {
	out := make(map[MemoryKind]int, len(memoryKinds))
	for _, k := range memoryKinds {
		out[k] = len(m.buckets[k])
	}
	return out
}

func trimOldest(bucket []Record, max int) []Record {
	if len(bucket) <= max {
		return bucket
	}
	n := copy(bucket, bucket[len(bucket)-max:])
	for i := n; i < len(bucket); i++ {
		bucket[i] = Record{}
	}
	return bucket[:n]
}
