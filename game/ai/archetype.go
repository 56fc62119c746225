package ai

import "fmt"

// BehaviorKind selects which tree constructor builds an archetype's root.
type BehaviorKind string

const (
	BehaviorPatrol    BehaviorKind = "patrol"
	BehaviorDefensive BehaviorKind = "defensive"
	BehaviorPredator  BehaviorKind = "predator"
	BehaviorTrap      BehaviorKind = "trap"
	BehaviorRanged    BehaviorKind = "ranged"
)

// ArchetypeProfile is an immutable enemy personality.
// Reactions maps a stimulus to a preferred pattern; it is authoring metadata
// and is never consulted by the trees.
type ArchetypeProfile struct {
	ID           string            `yaml:"id" json:"id"`
	Name         string            `yaml:"name" json:"name"`
	Behavior     BehaviorKind      `yaml:"behavior" json:"behavior"`
	Aggression   float64           `yaml:"aggression" json:"aggression"`
	Intelligence float64           `yaml:"intelligence" json:"intelligence"`
	Awareness    float64           `yaml:"awareness" json:"awareness"`
	Evasion      float64           `yaml:"evasion" json:"evasion"`
	Patterns     []string          `yaml:"patterns" json:"patterns"`
	Reactions    map[string]string `yaml:"reactions" json:"reactions"`
}

// Validate checks the profile's identity and that every trait lies in [0,1].
func (p *ArchetypeProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("archetype: missing id")
	}
	traits := []struct {
		name string
		v    float64
	}{
		{"aggression", p.Aggression},
		{"intelligence", p.Intelligence},
		{"awareness", p.Awareness},
		{"evasion", p.Evasion},
	}
	for _, t := range traits {
		if t.v < 0 || t.v > 1 {
			return fmt.Errorf("archetype %q: %s %.2f outside [0,1]", p.ID, t.name, t.v)
		}
	}
	return nil
}

// DefaultArchetypes returns the built-in enemy roster.
func DefaultArchetypes() []*ArchetypeProfile {
	return []*ArchetypeProfile{
		{
			ID: "goomba", Name: "Goomba", Behavior: BehaviorPatrol,
			Aggression: 0.3, Intelligence: 0.2, Awareness: 0.4, Evasion: 0.1,
			Patterns: []string{"patrol", "chase", "flee", "hide"},
			Reactions: map[string]string{
				"damage":       "flee",
				"level_start":  "patrol",
				"player_close": "chase",
			},
		},
		{
			ID: "koopa", Name: "Koopa", Behavior: BehaviorDefensive,
			Aggression: 0.5, Intelligence: 0.4, Awareness: 0.6, Evasion: 0.3,
			Patterns: []string{"defend", "counter", "retreat", "ambush"},
			Reactions: map[string]string{
				"damage":              "counter",
				"player_close":        "defend",
				"allied_under_attack": "counter",
			},
		},
		{
			ID: "piranha", Name: "Piranha", Behavior: BehaviorPredator,
			Aggression: 0.8, Intelligence: 0.6, Awareness: 0.9, Evasion: 0.7,
			Patterns: []string{"lurk", "ambush", "pursue", "retreat"},
			Reactions: map[string]string{
				"player_approaching": "ambush",
				"player_distracted":  "pursue",
				"player_far":         "lurk",
			},
		},
		{
			ID: "thwomp", Name: "Thwomp", Behavior: BehaviorTrap,
			Aggression: 0.9, Intelligence: 0.1, Awareness: 0.8, Evasion: 0.0,
			Patterns: []string{"idle", "trigger", "fall", "reset"},
			Reactions: map[string]string{
				"player_above":   "trigger",
				"player_hit":     "fall",
				"reset_complete": "idle",
			},
		},
		{
			ID: "hammerBro", Name: "Hammer Bro", Behavior: BehaviorRanged,
			Aggression: 0.9, Intelligence: 0.8, Awareness: 0.9, Evasion: 0.6,
			Patterns: []string{"ranged_combat", "flank", "evade", "retreat"},
			Reactions: map[string]string{
				"player_close": "ranged_combat",
				"player_far":   "flank",
				"player_weak":  "retreat",
			},
		},
	}
}
