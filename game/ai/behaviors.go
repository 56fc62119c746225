package ai

// Tree shapes for each behavior kind. Leaves live in conditions.go and
// actions.go.

func buildPatrol(p *ArchetypeProfile) Node {
	return NewSequence("Patrol",
		NewSelector("PatrolOrNotice",
			playerCloseCondition(p),
			patrolAction(p),
		),
		patrolUpdateAction(p),
	)
}

func buildDefensive(p *ArchetypeProfile) Node {
	return NewSequence("Defensive",
		NewParallel("Guard",
			threatDetectedCondition(p),
			defendAction(p),
		),
		counterAction(p),
	)
}

func buildPredator(p *ArchetypeProfile) Node {
	return NewSequence("Predator",
		NewSelector("Stalk",
			ambushCondition(p),
			pursuitCondition(p),
			huntAction(p),
		),
		attackAction(p),
	)
}

func buildTrap(p *ArchetypeProfile) Node {
	return NewSelector("Trap",
		NewSequence("Trigger",
			trapOverPlayerCondition(p),
			fallAction(p),
		),
		resetAction(p),
	)
}

func buildRanged(p *ArchetypeProfile) Node {
	return NewSequence("Ranged",
		NewParallel("Position",
			measureDistanceAction(p),
			evadeAction(p),
		),
		rangedAttackAction(p),
	)
}
