package ai

import (
	"math"
	"time"

	"github.com/kasuganosora/enemyai/game/nav"
)

const (
	patrolRange      = 100.0
	patrolBand       = 20.0
	patrolTurnBase   = 3 * time.Second
	patrolTurnJitter = 2 * time.Second

	counterChance = 0.1

	predictionJitter = 50.0
	huntReplanEvery  = 500 * time.Millisecond

	meleeRange   = 60.0
	rangedRange  = 150.0
	meleeFactor  = 0.8
	rangedFactor = 0.3

	trapGravity  = 1.5
	trapMaxFall  = 12.0
	trapRiseStep = 1.0
	trapLandWait = time.Second

	throwBaseCooldown = 1500 * time.Millisecond
	throwFactor       = 0.5
)

// ---- Patrol ----

func patrolTurnDelay(ctx *Context) time.Duration {
	return patrolTurnBase + time.Duration(ctx.Float64()*float64(patrolTurnJitter))
}

// patrolAction oscillates around a random target, turning every 3-5 s or once
// it overshoots the target by more than patrolBand.
func patrolAction(p *ArchetypeProfile) *Action {
	speed := p.Intelligence * 2
	return &Action{
		Name: "Patrol",
		Run: func(e *Entity, ctx *Context) Status {
			st := e.State.Patrol
			if st == nil {
				dir := 1.0
				if ctx.Float64() < 0.5 {
					dir = -1
				}
				st = &PatrolState{
					Direction: dir,
					TargetX:   e.X + (ctx.Float64()-0.5)*patrolRange,
					LastTurn:  ctx.Now,
					TurnAfter: patrolTurnDelay(ctx),
				}
				e.State.Patrol = st
			}

			if ctx.Now.Sub(st.LastTurn) > st.TurnAfter {
				st.Direction = -st.Direction
				st.TargetX = e.X + st.Direction*patrolRange
				st.LastTurn = ctx.Now
				st.TurnAfter = patrolTurnDelay(ctx)
			}

			e.X += st.Direction * speed
			e.VX = st.Direction * speed
			e.Pose = PosePatrolling

			if e.X > st.TargetX+patrolBand && st.Direction > 0 {
				st.Direction = -1
			} else if e.X < st.TargetX-patrolBand && st.Direction < 0 {
				st.Direction = 1
			}
			return StatusRunning
		},
	}
}

// patrolUpdateAction runs every tick after the patrol selector: it chases a
// nearby player, otherwise it publishes the patrol heading as velocity.
func patrolUpdateAction(p *ArchetypeProfile) *Action {
	speed := p.Intelligence * 2
	radius := p.Awareness * 200
	return &Action{
		Name: "PatrolUpdate",
		Run: func(e *Entity, ctx *Context) Status {
			if player, ok := ctx.Player(); ok && e.DistanceTo(player.X, player.Y) < radius {
				dir := sign(player.X - e.X)
				e.X += dir * speed
				e.VX = dir * speed
				e.Pose = PoseChasing
				if st := e.State.Patrol; st != nil && dir != 0 {
					st.Direction = dir
					st.TargetX = e.X
				}
				return StatusRunning
			}
			if st := e.State.Patrol; st != nil {
				e.VX = st.Direction * speed
				e.Pose = PosePatrolling
			}
			return StatusRunning
		},
	}
}

// ---- Defensive ----

func defenseState(e *Entity, p *ArchetypeProfile) *DefenseState {
	if e.State.Defense == nil {
		e.State.Defense = &DefenseState{
			Defending:    true,
			ReactionLeft: time.Duration(p.Intelligence * float64(500*time.Millisecond)),
		}
	}
	return e.State.Defense
}

// defendAction holds position while a threat is present.
func defendAction(p *ArchetypeProfile) *Action {
	return &Action{
		Name: "Defend",
		Run: func(e *Entity, ctx *Context) Status {
			st := defenseState(e, p)
			st.Defending = true
			e.VX = 0
			e.Pose = PoseDefending
			return StatusRunning
		},
	}
}

// counterAction waits out the reaction timer, then has a 10% chance per tick
// to become counter-ready. A ready entity strikes once the player is in range.
func counterAction(p *ArchetypeProfile) *Action {
	return &Action{
		Name: "Counter",
		Run: func(e *Entity, ctx *Context) Status {
			st := defenseState(e, p)
			e.VX = 0
			e.Pose = PoseDefending

			if st.CounterReady {
				if player, ok := ctx.Player(); ok && e.DistanceTo(player.X, player.Y) < threatRange {
					st.CounterReady = false
					st.ReactionLeft = time.Duration(p.Intelligence * float64(500*time.Millisecond))
					e.Pose = PoseCountering
					ctx.Emit(e, EventCounterAttack)
					return StatusSuccess
				}
			} else if st.ReactionLeft <= 0 && ctx.Roll(counterChance) {
				st.CounterReady = true
				ctx.Emit(e, EventReadyToCounter)
			}

			delta := ctx.Delta
			if delta <= 0 {
				delta = DefaultTickDelta
			}
			st.ReactionLeft -= delta
			return StatusRunning
		},
	}
}

// ---- Predator ----

// huntAction closes in on a predicted player position. When an obstacle
// crosses the line to the player it follows an A* plan, refreshed at most
// every huntReplanEvery; otherwise it heads straight for the prediction.
func huntAction(p *ArchetypeProfile) *Action {
	speed := p.Intelligence * 3
	return &Action{
		Name: "Hunt",
		Run: func(e *Entity, ctx *Context) Status {
			player, ok := ctx.Player()
			if !ok {
				return StatusFailure
			}
			st := e.State.Hunt
			if st == nil {
				st = &HuntState{
					LastPlayerX:      player.X,
					PredictionOffset: ctx.Float64()*predictionJitter - predictionJitter/2,
				}
				e.State.Hunt = st
			}

			trendX, _ := ctx.PlayerTrend()
			targetX := player.X + st.PredictionOffset + trendX

			goal := nav.Point{X: player.X, Y: player.Y}
			if obstacles := ctx.Obstacles(); ctx.Paths != nil && blocksLine(obstacles, e.Position(), goal) {
				if st.PlannedAt.IsZero() || ctx.Now.Sub(st.PlannedAt) >= huntReplanEvery {
					st.Path = ctx.Paths.FindPath(e.Position(), goal, obstacles)
					st.PlannedAt = ctx.Now
				}
				st.Path = dropColumn(st.Path, nav.Quantize(e.X, e.Y).X)
				if len(st.Path) > 0 {
					targetX = st.Path[0].Center().X
				}
			} else {
				st.Path = nil
				st.PlannedAt = time.Time{}
			}

			dir := sign(targetX - e.X)
			e.X += dir * speed
			e.VX = dir * speed
			e.Pose = PoseHunting
			st.LastPlayerX = player.X
			return StatusRunning
		},
	}
}

// blocksLine reports whether any obstacle crosses the straight line a-b.
func blocksLine(obstacles []nav.Rect, a, b nav.Point) bool {
	for _, r := range obstacles {
		if r.IntersectsSegment(a, b) {
			return true
		}
	}
	return false
}

// dropColumn trims the plan through its last node in column x. Hunt only
// moves horizontally, so vertical steps inside a column are skipped.
func dropColumn(path []nav.GridNode, x int) []nav.GridNode {
	cut := -1
	for i, n := range path {
		if n.X == x {
			cut = i
		}
	}
	return path[cut+1:]
}

// attackAction strikes in melee or at range, gated by aggression.
func attackAction(p *ArchetypeProfile) *Action {
	return &Action{
		Name: "Attack",
		Run: func(e *Entity, ctx *Context) Status {
			player, ok := ctx.Player()
			if !ok {
				return StatusFailure
			}
			d := e.DistanceTo(player.X, player.Y)
			switch {
			case d < meleeRange:
				if ctx.Roll(p.Aggression * meleeFactor) {
					e.Pose = PoseAttacking
					ctx.Emit(e, EventMeleeAttack)
					return StatusSuccess
				}
			case d < rangedRange:
				if ctx.Roll(p.Aggression * rangedFactor) {
					e.Pose = PoseRangedAttacking
					ctx.Emit(e, EventRangedAttack)
					return StatusSuccess
				}
			}
			return StatusRunning
		},
	}
}

// ---- Trap ----

func trapState(e *Entity) *TrapState {
	if e.State.Trap == nil {
		e.State.Trap = &TrapState{Phase: TrapIdle, HomeY: e.Y}
	}
	return e.State.Trap
}

// fallAction releases an armed trap.
func fallAction(p *ArchetypeProfile) *Action {
	return &Action{
		Name: "Fall",
		Run: func(e *Entity, ctx *Context) Status {
			st := trapState(e)
			if st.Phase == TrapIdle {
				st.Phase = TrapFalling
				st.HomeY = e.Y
				e.VY = 0
			}
			return stepTrap(e, ctx, st, p)
		},
	}
}

// resetAction finishes a fall in progress, waits on the ground, then rises
// back to the home position. An idle trap has nothing to reset.
func resetAction(p *ArchetypeProfile) *Action {
	return &Action{
		Name: "Reset",
		Run: func(e *Entity, ctx *Context) Status {
			return stepTrap(e, ctx, trapState(e), p)
		},
	}
}

func stepTrap(e *Entity, ctx *Context, st *TrapState, p *ArchetypeProfile) Status {
	switch st.Phase {
	case TrapFalling:
		e.VY = math.Min(e.VY+trapGravity, trapMaxFall)
		e.Y += e.VY
		e.Pose = PoseFalling
		floor := st.HomeY + p.Awareness*250
		if r, ok := ctx.PlatformUnder(e); ok && r.Y-e.Height/2 < floor {
			floor = math.Max(r.Y-e.Height/2, st.HomeY)
		}
		if e.Y >= floor {
			e.Y = floor
			e.VY = 0
			st.Phase = TrapLanded
			st.LandedAt = ctx.Now
			e.Pose = PoseLanded
			ctx.Emit(e, EventTrapLanded)
		}
		return StatusRunning
	case TrapLanded:
		if ctx.Now.Sub(st.LandedAt) >= trapLandWait {
			st.Phase = TrapRising
		}
		return StatusRunning
	case TrapRising:
		e.VY = -trapRiseStep
		e.Y += e.VY
		e.Pose = PoseRising
		if e.Y <= st.HomeY {
			e.Y = st.HomeY
			e.VY = 0
			st.Phase = TrapIdle
			e.Pose = PoseIdle
			ctx.Emit(e, EventResetComplete)
			return StatusSuccess
		}
		return StatusRunning
	default:
		e.VY = 0
		e.Pose = PoseIdle
		return StatusSuccess
	}
}

// ---- Ranged ----

func rangedState(e *Entity) *RangedState {
	if e.State.Ranged == nil {
		e.State.Ranged = &RangedState{}
	}
	return e.State.Ranged
}

func measureDistanceAction(_ *ArchetypeProfile) *Action {
	return &Action{
		Name: "MeasureDistance",
		Run: func(e *Entity, ctx *Context) Status {
			player, ok := ctx.Player()
			if !ok {
				return StatusFailure
			}
			rangedState(e).Distance = e.DistanceTo(player.X, player.Y)
			return StatusSuccess
		},
	}
}

// evadeAction keeps the attacker inside its preferred band: it backs away from
// a close player, closes in on a distant one, and never walks off its platform.
func evadeAction(p *ArchetypeProfile) *Action {
	minRange := p.Evasion * 150
	maxRange := p.Awareness * 400
	retreatSpeed := p.Evasion * 3
	approachSpeed := p.Intelligence * 2
	return &Action{
		Name: "Evade",
		Run: func(e *Entity, ctx *Context) Status {
			player, ok := ctx.Player()
			if !ok {
				return StatusFailure
			}
			st := rangedState(e)
			var dir, speed float64
			switch {
			case st.Distance < minRange:
				dir = -sign(player.X - e.X)
				if dir == 0 {
					dir = 1
				}
				speed = retreatSpeed
				if !st.Retreating {
					ctx.Emit(e, EventEvade)
				}
				st.Retreating = true
				e.Pose = PoseEvading
			case st.Distance > maxRange:
				dir = sign(player.X - e.X)
				speed = approachSpeed
				st.Retreating = false
				e.Pose = PoseFlanking
			default:
				st.Retreating = false
				e.VX = 0
				return StatusSuccess
			}

			nextX := e.X + dir*speed
			if r, ok := ctx.PlatformUnder(e); ok {
				nextX = math.Max(r.X, math.Min(r.X+r.Width, nextX))
			}
			e.VX = nextX - e.X
			e.X = nextX
			return StatusRunning
		},
	}
}

// rangedAttackAction throws when the player is in range and the cooldown,
// which shrinks with intelligence, has elapsed.
func rangedAttackAction(p *ArchetypeProfile) *Action {
	maxRange := p.Awareness * 400
	cooldown := throwBaseCooldown - time.Duration(p.Intelligence*float64(time.Second))
	return &Action{
		Name: "RangedAttack",
		Run: func(e *Entity, ctx *Context) Status {
			player, ok := ctx.Player()
			if !ok {
				return StatusFailure
			}
			st := rangedState(e)
			if e.DistanceTo(player.X, player.Y) > maxRange {
				return StatusRunning
			}
			if !st.LastThrow.IsZero() && ctx.Now.Sub(st.LastThrow) < cooldown {
				return StatusRunning
			}
			if !ctx.Roll(p.Aggression * throwFactor) {
				return StatusRunning
			}
			st.LastThrow = ctx.Now
			e.Pose = PoseThrowing
			ctx.Emit(e, EventRangedAttack)
			return StatusSuccess
		},
	}
}
