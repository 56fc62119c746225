package ai

import "time"

// EventType names a stimulus fired by a condition or action.
type EventType string

const (
	EventPlayerClose    EventType = "player_close"
	EventReadyToCounter EventType = "ready_to_counter"
	EventCounterAttack  EventType = "counter_attack"
	EventAmbush         EventType = "ambush"
	EventMeleeAttack    EventType = "melee_attack"
	EventRangedAttack   EventType = "ranged_attack"
	EventTrapTriggered  EventType = "trap_triggered"
	EventTrapLanded     EventType = "trap_landed"
	EventResetComplete  EventType = "reset_complete"
	EventEvade          EventType = "evade"
)

// Event is the notification presentation systems subscribe to.
type Event struct {
	EntityID  EntityID  `json:"entity_id"`
	Archetype string    `json:"archetype"`
	Type      EventType `json:"event_type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives AI events. It is the only way the AI talks to
// rendering, audio or animation.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(ev Event) { f(ev) }
