package model

import (
	"time"

	"gorm.io/datatypes"
)

// AIEventLog is one journaled AI event.
type AIEventLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityID   uint64         `gorm:"index:idx_ai_event_entity;not null" json:"entity_id"`
	Archetype  string         `gorm:"size:32;not null" json:"archetype"`
	Type       string         `gorm:"index:idx_ai_event_type;size:32;not null" json:"event_type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Payload    datatypes.JSON `json:"payload"`
	OccurredAt time.Time      `gorm:"index:idx_ai_event_occurred;not null" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime:milli" json:"created_at"`
}

func (AIEventLog) TableName() string { return "ai_event_logs" }
