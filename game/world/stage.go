package world

import (
	"sync"
	"time"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
)

// Stage is the host's view of the level: where the player is and which
// rectangles are solid. The host writes it (HTTP, WebSocket), the AI reads it.
type Stage struct {
	mu            sync.RWMutex
	width, height float64
	player        *ai.PlayerInfo
	obstacles     []nav.Rect
	updatedAt     time.Time
}

// NewStage creates an empty stage of the given world size.
func NewStage(width, height float64) *Stage {
	return &Stage{width: width, height: height}
}

// Size returns the world size in world units.
func (s *Stage) Size() (width, height float64) {
	return s.width, s.height
}

// SetPlayer records the player's latest position and state.
func (s *Stage) SetPlayer(p ai.PlayerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = &p
	s.updatedAt = time.Now()
}

// ClearPlayer removes the player, e.g. on death or level exit.
func (s *Stage) ClearPlayer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = nil
	s.updatedAt = time.Now()
}

// Player implements ai.WorldQuery.
func (s *Stage) Player() (ai.PlayerInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return ai.PlayerInfo{}, false
	}
	return *s.player, true
}

// SetObstacles replaces the solid rectangles.
func (s *Stage) SetObstacles(rects []nav.Rect) {
	cp := append([]nav.Rect(nil), rects...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obstacles = cp
	s.updatedAt = time.Now()
}

// Obstacles implements ai.WorldQuery. The returned slice is never modified
// after it is handed out.
func (s *Stage) Obstacles() []nav.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obstacles
}

// UpdatedAt returns when the host last wrote to the stage.
func (s *Stage) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
