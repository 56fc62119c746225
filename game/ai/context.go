package ai

import (
	"math/rand"
	"time"

	"github.com/kasuganosora/enemyai/game/nav"
)

// DefaultTickDelta is the nominal simulation step (~60 Hz).
const DefaultTickDelta = 16 * time.Millisecond

// PlayerState is the coarse state tag the host reports for the player.
type PlayerState string

const (
	PlayerIdle      PlayerState = "idle"
	PlayerRunning   PlayerState = "running"
	PlayerJumping   PlayerState = "jumping"
	PlayerAttacking PlayerState = "attacking"
	PlayerAlert     PlayerState = "alert"
)

// Attacking reports whether the player is in an offensive state.
// Jumping counts because a platformer player attacks by stomping.
func (s PlayerState) Attacking() bool {
	return s == PlayerAttacking || s == PlayerJumping
}

// PlayerInfo is the minimal player data the AI needs.
type PlayerInfo struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	State PlayerState `json:"state"`
}

// WorldQuery is the read-only view of the simulation the AI consults.
// Implemented by *world.Stage; declared here to avoid an import cycle.
type WorldQuery interface {
	// Player returns false until the player has spawned.
	Player() (PlayerInfo, bool)
	Obstacles() []nav.Rect
}

// PathPlanner plans grid paths on demand. *nav.Pathfinder implements it.
type PathPlanner interface {
	FindPath(start, end nav.Point, obstacles []nav.Rect) []nav.GridNode
}

// Context is passed to every behavior tree node during a tick.
type Context struct {
	World   WorldQuery
	Memory  *Memory
	Events  EventSink
	Paths   PathPlanner
	Rand    *rand.Rand
	Profile *ArchetypeProfile

	// Roster is the tick's snapshot of every managed entity.
	Roster []*Entity

	Now   time.Time
	Delta time.Duration
}

// Player returns the player if the world has one.
func (ctx *Context) Player() (PlayerInfo, bool) {
	if ctx == nil || ctx.World == nil {
		return PlayerInfo{}, false
	}
	return ctx.World.Player()
}

// Obstacles returns the current obstacle rectangles, or nil without a world.
func (ctx *Context) Obstacles() []nav.Rect {
	if ctx == nil || ctx.World == nil {
		return nil
	}
	return ctx.World.Obstacles()
}

// Roll draws against probability p. Without a random source nothing fires.
func (ctx *Context) Roll(p float64) bool {
	if ctx.Rand == nil {
		return false
	}
	return ctx.Rand.Float64() < p
}

// Float64 draws a uniform value in [0,1). Without a random source it returns 0.5.
func (ctx *Context) Float64() float64 {
	if ctx.Rand == nil {
		return 0.5
	}
	return ctx.Rand.Float64()
}

// Emit sends an AI event for e to the event sink, if any.
func (ctx *Context) Emit(e *Entity, typ EventType) {
	if ctx.Events == nil {
		return
	}
	ctx.Events.Emit(Event{
		EntityID:  e.ID,
		Archetype: e.Archetype,
		Type:      typ,
		X:         e.X,
		Y:         e.Y,
		Timestamp: ctx.Now,
	})
}

// Nearby lists other roster entities within radius of e.
func (ctx *Context) Nearby(e *Entity, radius float64) []*Entity {
	var out []*Entity
	for _, o := range ctx.Roster {
		if o == nil || o.ID == e.ID {
			continue
		}
		if e.DistanceTo(o.X, o.Y) < radius {
			out = append(out, o)
		}
	}
	return out
}

// PlatformUnder returns the obstacle e is standing on or inside.
func (ctx *Context) PlatformUnder(e *Entity) (nav.Rect, bool) {
	feet := e.Y + e.Height/2
	for _, r := range ctx.Obstacles() {
		if e.X < r.X || e.X > r.X+r.Width {
			continue
		}
		if feet >= r.Y-platformTolerance && feet <= r.Y+r.Height {
			return r, true
		}
	}
	return nav.Rect{}, false
}

// PlayerTrend returns how far the player moved between the two most recent
// remembered positions.
func (ctx *Context) PlayerTrend() (dx, dy float64) {
	if ctx.Memory == nil {
		return 0, 0
	}
	positions := ctx.Memory.Query(KindPlayerPositions, nil)
	if len(positions) < 2 {
		return 0, 0
	}
	last, prev := positions[len(positions)-1], positions[len(positions)-2]
	return last.X - prev.X, last.Y - prev.Y
}

const platformTolerance = 2.0
