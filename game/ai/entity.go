package ai

import (
	"math"
	"time"

	"github.com/kasuganosora/enemyai/game/nav"
)

// EntityID identifies an entity in the Director roster.
type EntityID uint64

// Pose is the coarse animation state an action leaves an entity in.
type Pose string

const (
	PoseIdle            Pose = "idle"
	PosePatrolling      Pose = "patrolling"
	PoseChasing         Pose = "chasing"
	PoseDefending       Pose = "defending"
	PoseCountering      Pose = "countering"
	PoseHunting         Pose = "hunting"
	PoseAttacking       Pose = "attacking"
	PoseRangedAttacking Pose = "ranged_attacking"
	PoseFalling         Pose = "falling"
	PoseLanded          Pose = "landed"
	PoseRising          Pose = "rising"
	PoseEvading         Pose = "evading"
	PoseFlanking        Pose = "flanking"
	PoseThrowing        Pose = "throwing"
)

// Entity is one AI-driven enemy. X and Y are the center of its bounding box.
type Entity struct {
	ID        EntityID `json:"id"`
	Archetype string   `json:"archetype"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pose   Pose    `json:"pose"`

	AIEnabled  bool      `json:"ai_enabled"`
	State      State     `json:"-"`
	LastUpdate time.Time `json:"last_update"`
}

// DistanceTo returns the Euclidean distance from the entity center to (x, y).
func (e *Entity) DistanceTo(x, y float64) float64 {
	return math.Hypot(x-e.X, y-e.Y)
}

// Position returns the entity center as a nav.Point.
func (e *Entity) Position() nav.Point {
	return nav.Point{X: e.X, Y: e.Y}
}

// Clone returns a copy safe to hand to other goroutines.
func (e *Entity) Clone() Entity {
	c := *e
	c.State = State{}
	return c
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
