package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/scheduler"
)

var (
	// ErrDuplicateEntity is returned when adding an id already in the roster.
	ErrDuplicateEntity = errors.New("world: duplicate entity id")
	// ErrEntityNotFound is returned for ids not in the roster.
	ErrEntityNotFound = errors.New("world: entity not found")
)

const (
	// DefaultUpdateRate is the tick interval (~60 Hz).
	DefaultUpdateRate = ai.DefaultTickDelta
	// DefaultStateTTL is how long an entity may go without an update before
	// its AI state is discarded.
	DefaultStateTTL = 30 * time.Second

	// TickerName is the scheduler task that drives the Director.
	TickerName = "ai_director"

	maxTickDelta = time.Second
)

// TreeSource resolves archetype ids to behavior trees. *ai.Library
// implements it.
type TreeSource interface {
	Tree(id string) (*ai.BehaviorTree, error)
}

// Ticker registers named periodic tasks. *scheduler.Scheduler implements it.
type Ticker interface {
	AddTicker(name string, interval time.Duration, fn scheduler.TaskFn)
	Remove(name string)
}

// DirectorConfig holds Director settings. Zero values take the defaults.
type DirectorConfig struct {
	UpdateRate time.Duration
	StateTTL   time.Duration
	// Seed feeds the random source behind every stochastic gate.
	Seed   int64
	Memory ai.MemoryConfig
	Clock  func() time.Time
}

// Stats is a point-in-time summary of the Director.
type Stats struct {
	Enabled          bool                  `json:"enabled"`
	Entities         int                   `json:"entity_count"`
	Active           int                   `json:"active_count"`
	UpdateRate       time.Duration         `json:"-"`
	UpdateRateMs     int64                 `json:"update_rate_ms"`
	Ticks            uint64                `json:"ticks"`
	LastTick         time.Time             `json:"last_tick"`
	LastTickDuration time.Duration         `json:"last_tick_duration_ns"`
	Panics           uint64                `json:"panics"`
	Memory           map[ai.MemoryKind]int `json:"memory_size"`
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opSetAI
)

// pendingOp is a roster change that arrived while a tick was running.
type pendingOp struct {
	kind   opKind
	entity *ai.Entity
	id     ai.EntityID
	on     bool
}

// Director owns the AI roster and runs one behavior tree evaluation per
// entity per tick.
//
// Entities are mutated only by the tick. Roster changes made while a tick is
// running are queued and applied when it finishes, so a tick always sees the
// roster as it was when it started. Readers get copies through Entities and
// Stats.
type Director struct {
	mu      sync.Mutex
	roster  *roster
	view    []ai.Entity
	pending []pendingOp
	ticking bool
	enabled bool
	rate    time.Duration
	nextID  ai.EntityID
	stats   Stats
	ticker  Ticker

	// Tick-owned state.
	tickMu   sync.Mutex
	trees    TreeSource
	world    ai.WorldQuery
	memory   *ai.Memory
	events   ai.EventSink
	paths    ai.PathPlanner
	rng      *rand.Rand
	now      func() time.Time
	stateTTL time.Duration
	lastTick time.Time
	missing  map[string]bool

	logger *zap.Logger
}

// NewDirector creates an enabled Director. events and paths may be nil.
func NewDirector(cfg DirectorConfig, trees TreeSource, world ai.WorldQuery, events ai.EventSink, paths ai.PathPlanner, logger *zap.Logger) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UpdateRate <= 0 {
		cfg.UpdateRate = DefaultUpdateRate
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Memory.Clock == nil {
		cfg.Memory.Clock = cfg.Clock
	}
	return &Director{
		roster:   newRoster(),
		enabled:  true,
		rate:     clampRate(cfg.UpdateRate),
		nextID:   1,
		trees:    trees,
		world:    world,
		memory:   ai.NewMemory(cfg.Memory),
		events:   events,
		paths:    paths,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		now:      cfg.Clock,
		stateTTL: cfg.StateTTL,
		missing:  make(map[string]bool),
		logger:   logger,
	}
}

func clampRate(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

// ---- Lifecycle ----

// Start registers the tick with t at the current update rate.
func (d *Director) Start(t Ticker) {
	d.mu.Lock()
	d.ticker = t
	rate := d.rate
	d.mu.Unlock()
	t.AddTicker(TickerName, rate, d.Tick)
	d.logger.Info("ai director started", zap.Duration("rate", rate))
}

// Stop unregisters the tick.
func (d *Director) Stop() {
	d.mu.Lock()
	t := d.ticker
	d.ticker = nil
	d.mu.Unlock()
	if t != nil {
		t.Remove(TickerName)
	}
}

// Enable resumes ticking.
func (d *Director) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = true
}

// Disable makes every future tick a no-op. Entity state is kept.
func (d *Director) Disable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = false
}

// Enabled reports whether ticks run.
func (d *Director) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetUpdateRate changes the tick interval to ms milliseconds, at least 1.
// A started Director is re-registered at the new rate. The applied rate is
// returned.
func (d *Director) SetUpdateRate(ms int) time.Duration {
	if ms < 1 {
		ms = 1
	}
	rate := time.Duration(ms) * time.Millisecond
	d.mu.Lock()
	d.rate = rate
	t := d.ticker
	d.mu.Unlock()
	if t != nil {
		t.AddTicker(TickerName, rate, d.Tick)
	}
	return rate
}

// ---- Roster ----

// AddEntity puts e under AI control with fresh state and AI enabled. A zero
// ID is replaced by the next free id. The entity's id is returned.
func (d *Director) AddEntity(e ai.Entity) (ai.EntityID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.ID == 0 {
		for d.exists(d.nextID) {
			d.nextID++
		}
		e.ID = d.nextID
	} else if d.exists(e.ID) {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateEntity, e.ID)
	}
	if e.ID >= d.nextID {
		d.nextID = e.ID + 1
	}

	ent := e
	ent.State = ai.State{}
	ent.AIEnabled = true
	ent.LastUpdate = d.now()
	if ent.Pose == "" {
		ent.Pose = ai.PoseIdle
	}
	d.submit(pendingOp{kind: opAdd, entity: &ent, id: ent.ID})
	return ent.ID, nil
}

// RemoveEntity takes the entity out of the roster. It receives no further
// updates.
func (d *Director) RemoveEntity(id ai.EntityID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.exists(id) {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	d.submit(pendingOp{kind: opRemove, id: id})
	return nil
}

// SetEntityAI switches AI for one entity without removing it.
func (d *Director) SetEntityAI(id ai.EntityID, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.exists(id) {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	d.submit(pendingOp{kind: opSetAI, id: id, on: on})
	return nil
}

// exists reports whether id will be in the roster once pending ops apply.
// Caller holds mu.
func (d *Director) exists(id ai.EntityID) bool {
	_, ok := d.roster.get(id)
	for _, op := range d.pending {
		if op.id != id {
			continue
		}
		switch op.kind {
		case opAdd:
			ok = true
		case opRemove:
			ok = false
		}
	}
	return ok
}

// submit applies op now, or queues it while a tick runs. Caller holds mu.
func (d *Director) submit(op pendingOp) {
	if d.ticking {
		d.pending = append(d.pending, op)
		return
	}
	d.apply(op)
	d.refreshView()
}

func (d *Director) apply(op pendingOp) {
	switch op.kind {
	case opAdd:
		d.roster.add(op.entity)
	case opRemove:
		d.roster.remove(op.id)
	case opSetAI:
		if e, ok := d.roster.get(op.id); ok {
			e.AIEnabled = op.on
		}
	}
}

func (d *Director) refreshView() {
	view := make([]ai.Entity, 0, d.roster.len())
	for _, e := range d.roster.list {
		view = append(view, e.Clone())
	}
	d.view = view
}

// Entities returns a copy of every managed entity as of the last tick or
// roster change.
func (d *Director) Entities() []ai.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ai.Entity(nil), d.view...)
}

// Entity returns a copy of one managed entity.
func (d *Director) Entity(id ai.EntityID) (ai.Entity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.view {
		if e.ID == id {
			return e, true
		}
	}
	return ai.Entity{}, false
}

// Stats returns a summary of the Director.
func (d *Director) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Enabled = d.enabled
	s.Entities = len(d.view)
	s.Active = 0
	for _, e := range d.view {
		if e.AIEnabled {
			s.Active++
		}
	}
	s.UpdateRate = d.rate
	s.UpdateRateMs = d.rate.Milliseconds()
	s.Memory = make(map[ai.MemoryKind]int, len(d.stats.Memory))
	for k, v := range d.stats.Memory {
		s.Memory[k] = v
	}
	return s
}

// FindPath plans a grid path between two world points around the stage's
// current obstacles. It returns nil when no planner is configured.
func (d *Director) FindPath(start, end nav.Point) []nav.GridNode {
	if d.paths == nil {
		return nil
	}
	var obstacles []nav.Rect
	if d.world != nil {
		obstacles = d.world.Obstacles()
	}
	return d.paths.FindPath(start, end, obstacles)
}

// ---- Tick ----

// Tick runs one AI frame: refresh memory, then evaluate every AI-enabled
// entity's tree once. A disabled Director does nothing.
func (d *Director) Tick() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return
	}
	d.ticking = true
	entities := d.roster.snapshot()
	delta := d.rate
	d.mu.Unlock()

	started := time.Now()
	now := d.now()
	if !d.lastTick.IsZero() {
		if dt := now.Sub(d.lastTick); dt > 0 && dt <= maxTickDelta {
			delta = dt
		}
	}
	d.lastTick = now

	d.memory.Tick()
	if d.world != nil {
		if p, ok := d.world.Player(); ok {
			d.memory.ObservePlayer(p.X, p.Y)
		}
	}

	var panics uint64
	for _, e := range entities {
		if !e.AIEnabled {
			continue
		}
		if !e.LastUpdate.IsZero() && now.Sub(e.LastUpdate) > d.stateTTL {
			e.State.Reset()
		}
		if !d.evaluate(e, entities, now, delta) {
			panics++
		}
		e.LastUpdate = now
	}
	sizes := d.memory.Sizes()
	elapsed := time.Since(started)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticking = false
	for _, op := range d.pending {
		d.apply(op)
	}
	d.pending = nil
	d.stats.Ticks++
	d.stats.LastTick = now
	d.stats.LastTickDuration = elapsed
	d.stats.Panics += panics
	d.stats.Memory = sizes
	d.refreshView()
}

// evaluate ticks e's tree. It reports false if the tree panicked.
func (d *Director) evaluate(e *ai.Entity, entities []*ai.Entity, now time.Time, delta time.Duration) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("ai evaluation panicked",
				zap.Uint64("entity", uint64(e.ID)),
				zap.String("archetype", e.Archetype),
				zap.Any("recover", r))
			ok = false
		}
	}()

	tree, err := d.trees.Tree(e.Archetype)
	if err != nil {
		if !d.missing[e.Archetype] {
			d.missing[e.Archetype] = true
			d.logger.Warn("entity has no behavior tree",
				zap.Uint64("entity", uint64(e.ID)),
				zap.String("archetype", e.Archetype),
				zap.Error(err))
		}
		return true
	}

	ctx := &ai.Context{
		World:   d.world,
		Memory:  d.memory,
		Events:  d.events,
		Paths:   d.paths,
		Rand:    d.rng,
		Profile: tree.Profile,
		Roster:  entities,
		Now:     now,
		Delta:   delta,
	}
	tree.Tick(e, ctx)
	return true
}
