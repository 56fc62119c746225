package ai

import (
	"time"

	"github.com/kasuganosora/enemyai/game/nav"
)

// State is the per-entity scratch data actions persist across ticks.
// Each behavior kind owns one sub-state, created lazily by its first action.
type State struct {
	Patrol  *PatrolState
	Defense *DefenseState
	Hunt    *HuntState
	Trap    *TrapState
	Ranged  *RangedState
}

// Reset discards everything so the next tick starts fresh.
func (s *State) Reset() {
	*s = State{}
}

// Empty reports whether no behavior has stored anything yet.
func (s *State) Empty() bool {
	return s.Patrol == nil && s.Defense == nil && s.Hunt == nil && s.Trap == nil && s.Ranged == nil
}

// PatrolState drives the oscillating patrol.
type PatrolState struct {
	Direction float64 // +1 right, -1 left
	TargetX   float64
	LastTurn  time.Time
	TurnAfter time.Duration
}

// DefenseState tracks guard posture and counter readiness.
type DefenseState struct {
	Defending    bool
	CounterReady bool
	ReactionLeft time.Duration
}

// HuntState keeps the predator's pursuit memory.
type HuntState struct {
	LastPlayerX      float64
	PredictionOffset float64
	Path             []nav.GridNode
	PlannedAt        time.Time
}

// TrapPhase is the stage of a falling trap's cycle.
type TrapPhase int

const (
	TrapIdle TrapPhase = iota
	TrapFalling
	TrapLanded
	TrapRising
)

func (p TrapPhase) String() string {
	switch p {
	case TrapIdle:
		return "idle"
	case TrapFalling:
		return "falling"
	case TrapLanded:
		return "landed"
	case TrapRising:
		return "rising"
	default:
		return "unknown"
	}
}

// TrapState is the falling trap's cycle.
type TrapState struct {
	Phase    TrapPhase
	HomeY    float64
	LandedAt time.Time
}

// RangedState caches the ranged attacker's view of the player.
type RangedState struct {
	Distance   float64
	Retreating bool
	LastThrow  time.Time
}
