package world

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/scheduler"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// treeMap is a TreeSource over fixed trees.
type treeMap map[string]*ai.BehaviorTree

func (m treeMap) Tree(id string) (*ai.BehaviorTree, error) {
	if t, ok := m[id]; ok {
		return t, nil
	}
	return nil, ai.ErrUnknownArchetype
}

// recorder counts evaluations per entity.
type recorder struct {
	mu     sync.Mutex
	calls  map[ai.EntityID]int
	deltas []time.Duration
	hook   func(e *ai.Entity, ctx *ai.Context)
}

func newRecorder() *recorder { return &recorder{calls: make(map[ai.EntityID]int)} }

func (p *recorder) tree() *ai.BehaviorTree {
	return &ai.BehaviorTree{
		Name: "recorder",
		Root: &ai.Action{Name: "recorder", Run: func(e *ai.Entity, ctx *ai.Context) ai.Status {
			p.mu.Lock()
			p.calls[e.ID]++
			p.deltas = append(p.deltas, ctx.Delta)
			hook := p.hook
			p.mu.Unlock()
			if hook != nil {
				hook(e, ctx)
			}
			return ai.StatusRunning
		}},
	}
}

func (p *recorder) count(id ai.EntityID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

type fakeTicker struct {
	mu    sync.Mutex
	tasks map[string]time.Duration
}

func newFakeTicker() *fakeTicker { return &fakeTicker{tasks: make(map[string]time.Duration)} }

func (f *fakeTicker) AddTicker(name string, interval time.Duration, _ scheduler.TaskFn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[name] = interval
}

func (f *fakeTicker) Remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, name)
}

func newRecorderDirector(t *testing.T) (*Director, *recorder, *testClock, *Stage) {
	t.Helper()
	p := newRecorder()
	clk := newTestClock()
	stage := NewStage(1000, 500)
	d := NewDirector(DirectorConfig{Seed: 1, Clock: clk.Now}, treeMap{"recorder": p.tree()}, stage, nil, nav.NewPathfinder(1000, 500), zap.NewNop())
	return d, p, clk, stage
}

func TestDirector_AddEntity(t *testing.T) {
	d, _, clk, _ := newRecorderDirector(t)

	id, err := d.AddEntity(ai.Entity{Archetype: "recorder", X: 10, State: ai.State{Patrol: &ai.PatrolState{}}})
	require.NoError(t, err)
	assert.Equal(t, ai.EntityID(1), id)

	id2, err := d.AddEntity(ai.Entity{ID: 10, Archetype: "recorder"})
	require.NoError(t, err)
	assert.Equal(t, ai.EntityID(10), id2)

	id3, err := d.AddEntity(ai.Entity{Archetype: "recorder"})
	require.NoError(t, err)
	assert.Equal(t, ai.EntityID(11), id3)

	_, err = d.AddEntity(ai.Entity{ID: 10})
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	e, ok := d.Entity(1)
	require.True(t, ok)
	assert.True(t, e.AIEnabled)
	assert.Equal(t, ai.PoseIdle, e.Pose)
	assert.Equal(t, clk.Now(), e.LastUpdate)
	internal, _ := d.roster.get(1)
	assert.True(t, internal.State.Empty(), "added entities start with fresh state")
	assert.Len(t, d.Entities(), 3)
}

func TestDirector_RemoveAndToggle(t *testing.T) {
	d, p, _, _ := newRecorderDirector(t)
	a, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	b, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	c, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})

	require.NoError(t, d.SetEntityAI(b, false))
	require.NoError(t, d.RemoveEntity(c))
	assert.ErrorIs(t, d.RemoveEntity(c), ErrEntityNotFound)
	assert.ErrorIs(t, d.SetEntityAI(99, true), ErrEntityNotFound)

	d.Tick()
	assert.Equal(t, 1, p.count(a))
	assert.Zero(t, p.count(b), "AI disabled for this entity")
	assert.Zero(t, p.count(c), "removed entities receive no updates")

	s := d.Stats()
	assert.Equal(t, 2, s.Entities)
	assert.Equal(t, 1, s.Active)
}

func TestDirector_DisabledSkipsTicks(t *testing.T) {
	d, p, _, _ := newRecorderDirector(t)
	id, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})

	d.Disable()
	assert.False(t, d.Enabled())
	d.Tick()
	assert.Zero(t, p.count(id))
	assert.Zero(t, d.Stats().Ticks)

	d.Enable()
	d.Tick()
	assert.Equal(t, 1, p.count(id))
	assert.Equal(t, uint64(1), d.Stats().Ticks)
}

func TestDirector_StaleStateReset(t *testing.T) {
	d, p, clk, _ := newRecorderDirector(t)
	p.hook = func(e *ai.Entity, _ *ai.Context) {
		if e.State.Patrol == nil {
			e.State.Patrol = &ai.PatrolState{}
		}
		e.State.Patrol.TargetX++
	}
	id, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	e, _ := d.roster.get(id)

	d.Tick()
	clk.Advance(30 * time.Second)
	d.Tick()
	assert.Equal(t, 2.0, e.State.Patrol.TargetX, "exactly 30s is not stale")

	clk.Advance(30*time.Second + time.Millisecond)
	d.Tick()
	assert.Equal(t, 1.0, e.State.Patrol.TargetX, "state is discarded before the update")
}

func TestDirector_StaleAfterEntityAIPaused(t *testing.T) {
	d, p, clk, _ := newRecorderDirector(t)
	p.hook = func(e *ai.Entity, _ *ai.Context) {
		if e.State.Hunt == nil {
			e.State.Hunt = &ai.HuntState{}
		}
		e.State.Hunt.LastPlayerX++
	}
	id, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	e, _ := d.roster.get(id)
	d.Tick()

	require.NoError(t, d.SetEntityAI(id, false))
	clk.Advance(time.Minute)
	d.Tick()
	require.NoError(t, d.SetEntityAI(id, true))
	d.Tick()
	assert.Equal(t, 1.0, e.State.Hunt.LastPlayerX)
}

func TestDirector_RosterChangesDuringTickAreDeferred(t *testing.T) {
	d, p, _, _ := newRecorderDirector(t)
	a, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	b, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})

	var added ai.EntityID
	var once sync.Once
	p.hook = func(e *ai.Entity, _ *ai.Context) {
		if e.ID != a {
			return
		}
		once.Do(func() {
			var err error
			added, err = d.AddEntity(ai.Entity{Archetype: "recorder"})
			require.NoError(t, err)
			require.NoError(t, d.RemoveEntity(b))
			// Membership reflects the queued changes immediately.
			assert.ErrorIs(t, d.RemoveEntity(b), ErrEntityNotFound)
			_, err = d.AddEntity(ai.Entity{ID: added})
			assert.ErrorIs(t, err, ErrDuplicateEntity)
		})
	}

	d.Tick()
	assert.Equal(t, 1, p.count(b), "the tick's snapshot still included b")
	assert.Zero(t, p.count(added), "entities added mid-tick wait for the next tick")

	ids := map[ai.EntityID]bool{}
	for _, e := range d.Entities() {
		ids[e.ID] = true
	}
	assert.Equal(t, map[ai.EntityID]bool{a: true, added: true}, ids)

	d.Tick()
	assert.Equal(t, 1, p.count(added))
	assert.Equal(t, 1, p.count(b))
}

func TestDirector_Delta(t *testing.T) {
	d, p, clk, _ := newRecorderDirector(t)
	d.AddEntity(ai.Entity{Archetype: "recorder"})

	d.Tick()
	clk.Advance(40 * time.Millisecond)
	d.Tick()
	clk.Advance(5 * time.Second)
	d.Tick()

	assert.Equal(t, []time.Duration{DefaultUpdateRate, 40 * time.Millisecond, DefaultUpdateRate}, p.deltas)
}

func TestDirector_MissingTreeLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := newRecorder()
	d := NewDirector(DirectorConfig{}, treeMap{"recorder": p.tree()}, NewStage(100, 100), nil, nil, zap.New(core))
	ghost, _ := d.AddEntity(ai.Entity{Archetype: "ghost"})
	ok, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})

	for i := 0; i < 5; i++ {
		d.Tick()
	}
	assert.Equal(t, 5, p.count(ok))
	assert.Equal(t, 1, logs.FilterMessage("entity has no behavior tree").Len())

	e, _ := d.Entity(ghost)
	assert.False(t, e.LastUpdate.IsZero())
}

func TestDirector_PanicIsContained(t *testing.T) {
	d, p, _, _ := newRecorderDirector(t)
	bad, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	good, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})
	p.hook = func(e *ai.Entity, _ *ai.Context) {
		if e.ID == bad {
			panic("broken action")
		}
	}

	assert.NotPanics(t, d.Tick)
	assert.Equal(t, 1, p.count(good))
	assert.Equal(t, uint64(1), d.Stats().Panics)
}

func TestDirector_MemoryRefresh(t *testing.T) {
	d, _, clk, stage := newRecorderDirector(t)
	stage.SetPlayer(ai.PlayerInfo{X: 1, Y: 2})

	d.Tick()
	assert.Equal(t, 1, d.Stats().Memory[ai.KindPlayerPositions])

	for i := 0; i < 15; i++ {
		clk.Advance(DefaultUpdateRate)
		d.Tick()
	}
	assert.Equal(t, ai.DefaultPlayerPositionsCap, d.Stats().Memory[ai.KindPlayerPositions])

	stage.ClearPlayer()
	clk.Advance(ai.DefaultMemoryTTL)
	d.Tick()
	assert.Zero(t, d.Stats().Memory[ai.KindPlayerPositions])
}

func TestDirector_UpdateRate(t *testing.T) {
	d, _, _, _ := newRecorderDirector(t)
	ft := newFakeTicker()

	d.Start(ft)
	assert.Equal(t, DefaultUpdateRate, ft.tasks[TickerName])

	assert.Equal(t, time.Millisecond, d.SetUpdateRate(0))
	assert.Equal(t, time.Millisecond, ft.tasks[TickerName])
	assert.Equal(t, 50*time.Millisecond, d.SetUpdateRate(50))
	assert.Equal(t, 50*time.Millisecond, ft.tasks[TickerName])
	assert.Equal(t, int64(50), d.Stats().UpdateRateMs)

	d.Stop()
	assert.NotContains(t, ft.tasks, TickerName)
	d.SetUpdateRate(20)
	assert.NotContains(t, ft.tasks, TickerName, "a stopped director is not re-registered")
}

func TestDirector_FindPath(t *testing.T) {
	d, _, _, stage := newRecorderDirector(t)
	stage.SetObstacles([]nav.Rect{{X: 100, Y: 0, Width: 50, Height: 50}})

	path := d.FindPath(nav.Point{X: 25, Y: 25}, nav.Point{X: 225, Y: 25})
	require.NotEmpty(t, path)
	assert.Equal(t, nav.GridNode{X: 4, Y: 0}, path[len(path)-1])
	assert.NotContains(t, path, nav.GridNode{X: 2, Y: 0})

	none := NewDirector(DirectorConfig{}, treeMap{}, stage, nil, nil, nil)
	assert.Nil(t, none.FindPath(nav.Point{}, nav.Point{X: 100}))
}

func TestDirector_RealArchetypesEmitEvents(t *testing.T) {
	var got []ai.Event
	sink := ai.EventSinkFunc(func(ev ai.Event) { got = append(got, ev) })
	stage := NewStage(1000, 500)
	stage.SetPlayer(ai.PlayerInfo{X: 50, Y: 0, State: ai.PlayerIdle})
	lib := ai.NewLibrary(ai.DefaultArchetypes(), zap.NewNop())
	d := NewDirector(DirectorConfig{Seed: 42}, lib, stage, sink, nil, zap.NewNop())

	id, err := d.AddEntity(ai.Entity{Archetype: "goomba", Width: 30, Height: 30})
	require.NoError(t, err)
	d.Tick()

	require.NotEmpty(t, got)
	assert.Equal(t, ai.EventPlayerClose, got[0].Type)
	assert.Equal(t, id, got[0].EntityID)

	e, _ := d.Entity(id)
	assert.Equal(t, ai.PoseChasing, e.Pose)
	assert.Greater(t, e.X, 0.0)
}

func TestDirector_Scheduler(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()
	d, p, _, _ := newRecorderDirector(t)
	id, _ := d.AddEntity(ai.Entity{Archetype: "recorder"})

	d.SetUpdateRate(5)
	d.Start(s)
	time.Sleep(100 * time.Millisecond)
	d.Stop()

	assert.Greater(t, p.count(id), 3)
	time.Sleep(20 * time.Millisecond)
	ticks := d.Stats().Ticks
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticks, d.Stats().Ticks, "no ticks after Stop")
}
