package ai

import (
	"math/rand"
	"time"

	"github.com/kasuganosora/enemyai/game/nav"
)

// fakeWorld is a static WorldQuery.
type fakeWorld struct {
	player    *PlayerInfo
	obstacles []nav.Rect
}

func (w *fakeWorld) Player() (PlayerInfo, bool) {
	if w.player == nil {
		return PlayerInfo{}, false
	}
	return *w.player, true
}

func (w *fakeWorld) Obstacles() []nav.Rect { return w.obstacles }

// fixedSource makes every Float64 draw return the same value.
type fixedSource int64

func (s fixedSource) Int63() int64 { return int64(s) }
func (fixedSource) Seed(int64)     {}

// fixedRand returns a *rand.Rand whose Float64 is always v.
// fixedRand(0) passes every Roll(p>0); fixedRand(0.99) fails Roll(p<0.99).
func fixedRand(v float64) *rand.Rand {
	return rand.New(fixedSource(int64(v * (1 << 63))))
}

type recorder struct {
	events []Event
}

func (r *recorder) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestContext builds a context around a world with the player at (px, py).
func newTestContext(p *ArchetypeProfile, r *rand.Rand, player *PlayerInfo) (*Context, *fakeWorld, *recorder) {
	w := &fakeWorld{player: player}
	rec := &recorder{}
	now := epoch
	ctx := &Context{
		World:   w,
		Memory:  NewMemory(MemoryConfig{Clock: func() time.Time { return now }}),
		Events:  rec,
		Rand:    r,
		Profile: p,
		Now:     now,
		Delta:   DefaultTickDelta,
	}
	return ctx, w, rec
}

func profile(id string) *ArchetypeProfile {
	for _, p := range DefaultArchetypes() {
		if p.ID == id {
			return p
		}
	}
	panic("no default archetype " + id)
}
