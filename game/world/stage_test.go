package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
)

func TestStage_Player(t *testing.T) {
	s := NewStage(800, 600)
	w, h := s.Size()
	assert.Equal(t, 800.0, w)
	assert.Equal(t, 600.0, h)

	_, ok := s.Player()
	assert.False(t, ok)
	assert.True(t, s.UpdatedAt().IsZero())

	s.SetPlayer(ai.PlayerInfo{X: 10, Y: 20, State: ai.PlayerJumping})
	p, ok := s.Player()
	require.True(t, ok)
	assert.Equal(t, ai.PlayerInfo{X: 10, Y: 20, State: ai.PlayerJumping}, p)
	assert.False(t, s.UpdatedAt().IsZero())

	s.ClearPlayer()
	_, ok = s.Player()
	assert.False(t, ok)
}

func TestStage_ObstaclesAreCopied(t *testing.T) {
	s := NewStage(800, 600)
	assert.Empty(t, s.Obstacles())

	in := []nav.Rect{{X: 0, Y: 550, Width: 800, Height: 50}}
	s.SetObstacles(in)
	in[0].X = 999

	got := s.Obstacles()
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].X)
}

func TestStatsFields(t *testing.T) {
	f := StatsFields(Stats{
		Enabled:      true,
		Entities:     3,
		Active:       2,
		UpdateRateMs: 16,
		Ticks:        7,
		Memory:       map[ai.MemoryKind]int{ai.KindThreats: 4},
	}, map[ai.EventType]uint64{ai.EventAmbush: 2})

	assert.Equal(t, "true", f["enabled"])
	assert.Equal(t, "3", f["entity_count"])
	assert.Equal(t, "2", f["active_count"])
	assert.Equal(t, "16", f["update_rate_ms"])
	assert.Equal(t, "7", f["ticks"])
	assert.Equal(t, "4", f["memory.threats"])
	assert.Equal(t, "2", f["events.ambush"])
	assert.NotContains(t, f, "last_tick")
}

func TestStatsPublisher_Publish(t *testing.T) {
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	d, _, _, _ := newRecorderDirector(t)
	d.AddEntity(ai.Entity{Archetype: "recorder"})
	d.Tick()

	counts := func() map[ai.EventType]uint64 { return map[ai.EventType]uint64{ai.EventEvade: 9} }
	pub := NewStatsPublisher(d, c, counts, time.Second, zap.NewNop())
	require.NoError(t, pub.Publish(context.Background()))

	got, err := c.HGetAll(context.Background(), StatsKey)
	require.NoError(t, err)
	assert.Equal(t, "1", got["entity_count"])
	assert.Equal(t, "1", got["ticks"])
	assert.Equal(t, "9", got["events.evade"])
	assert.Contains(t, got, "last_tick")
}

func TestStatsPublisher_Start(t *testing.T) {
	c, _ := cache.NewCache(cache.CacheConfig{})
	d, _, _, _ := newRecorderDirector(t)
	ft := newFakeTicker()

	NewStatsPublisher(d, c, nil, 0, nil).Start(ft)
	assert.Equal(t, defaultStatsInterval, ft.tasks[StatsTickerName])
}
