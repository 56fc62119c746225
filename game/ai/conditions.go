package ai

import "math"

const (
	threatRange          = 80.0
	ambushChance         = 0.8
	defaultTrapHalfWidth = 40.0
)

// PlayerWithin succeeds while the player is closer than radius.
// It fails when there is no player.
func PlayerWithin(name string, radius float64, onTrue func(e *Entity, ctx *Context)) *Condition {
	return &Condition{
		Name: name,
		Check: func(e *Entity, ctx *Context) bool {
			player, ok := ctx.Player()
			if !ok {
				return false
			}
			return e.DistanceTo(player.X, player.Y) < radius
		},
		OnTrue: onTrue,
	}
}

func playerCloseCondition(p *ArchetypeProfile) *Condition {
	return PlayerWithin("PlayerClose", p.Awareness*200, func(e *Entity, ctx *Context) {
		ctx.Emit(e, EventPlayerClose)
	})
}

// threatDetectedCondition fires with probability aggression while the player
// is attacking or inside threat range.
func threatDetectedCondition(p *ArchetypeProfile) *Condition {
	return &Condition{
		Name: "ThreatDetected",
		Check: func(e *Entity, ctx *Context) bool {
			player, ok := ctx.Player()
			if !ok {
				return false
			}
			threatening := player.State.Attacking() || e.DistanceTo(player.X, player.Y) < threatRange
			return threatening && ctx.Roll(p.Aggression)
		},
		OnTrue: func(e *Entity, ctx *Context) {
			if ctx.Memory == nil {
				return
			}
			player, _ := ctx.Player()
			ctx.Memory.Record(KindThreats, Record{
				Type:      "player_attack",
				EntityID:  e.ID,
				X:         player.X,
				Y:         player.Y,
				Intensity: p.Aggression,
			})
		},
	}
}

// ambushCondition fires most of the time when an unaware player wanders in.
func ambushCondition(p *ArchetypeProfile) *Condition {
	return &Condition{
		Name: "AmbushReady",
		Check: func(e *Entity, ctx *Context) bool {
			player, ok := ctx.Player()
			if !ok {
				return false
			}
			if e.DistanceTo(player.X, player.Y) >= p.Awareness*150 || player.State == PlayerAlert {
				return false
			}
			return ctx.Roll(ambushChance)
		},
		OnTrue: func(e *Entity, ctx *Context) {
			ctx.Emit(e, EventAmbush)
		},
	}
}

func pursuitCondition(p *ArchetypeProfile) *Condition {
	return &Condition{
		Name: "PursuitTarget",
		Check: func(e *Entity, ctx *Context) bool {
			player, ok := ctx.Player()
			if !ok {
				return false
			}
			return e.DistanceTo(player.X, player.Y) < p.Intelligence*300 && ctx.Roll(p.Aggression)
		},
		OnTrue: func(e *Entity, ctx *Context) {
			if ctx.Memory == nil {
				return
			}
			player, _ := ctx.Player()
			ctx.Memory.Record(KindOpportunities, Record{
				Type:     "pursuit",
				EntityID: e.ID,
				X:        player.X,
				Y:        player.Y,
				Distance: e.DistanceTo(player.X, player.Y),
			})
		},
	}
}

// trapOverPlayerCondition holds when an armed trap hangs directly over the
// player: the player is inside the trap's horizontal extent, below it and
// within reach of its drop. Y grows downward, so a player with a smaller Y
// than the trap is out of reach.
func trapOverPlayerCondition(p *ArchetypeProfile) *Condition {
	return &Condition{
		Name: "TrapOverPlayer",
		Check: func(e *Entity, ctx *Context) bool {
			if st := e.State.Trap; st != nil && st.Phase != TrapIdle {
				return false
			}
			player, ok := ctx.Player()
			if !ok {
				return false
			}
			half := e.Width / 2
			if half <= 0 {
				half = defaultTrapHalfWidth
			}
			if math.Abs(player.X-e.X) > half {
				return false
			}
			gap := player.Y - e.Y
			return gap > 0 && gap < p.Awareness*300
		},
		OnTrue: func(e *Entity, ctx *Context) {
			ctx.Emit(e, EventTrapTriggered)
		},
	}
}
