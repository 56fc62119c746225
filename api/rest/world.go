package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/game/world"
)

// WorldHandler lets the host feed player and platform data to the AI and
// ask for paths.
type WorldHandler struct {
	stage    *world.Stage
	director *world.Director
}

// NewWorldHandler creates a WorldHandler.
func NewWorldHandler(stage *world.Stage, d *world.Director) *WorldHandler {
	return &WorldHandler{stage: stage, director: d}
}

type playerRequest struct {
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	State ai.PlayerState `json:"state"`
}

var playerStates = map[ai.PlayerState]bool{
	"":                 true,
	ai.PlayerIdle:      true,
	ai.PlayerRunning:   true,
	ai.PlayerJumping:   true,
	ai.PlayerAttacking: true,
	ai.PlayerAlert:     true,
}

// SetPlayer updates the player snapshot.
// PUT /api/world/player {"x": 120, "y": 300, "state": "running"}
func (h *WorldHandler) SetPlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player"})
		return
	}
	if !playerStates[req.State] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown player state"})
		return
	}
	if req.State == "" {
		req.State = ai.PlayerIdle
	}
	p := ai.PlayerInfo{X: req.X, Y: req.Y, State: req.State}
	h.stage.SetPlayer(p)
	c.JSON(http.StatusOK, p)
}

// ClearPlayer removes the player, e.g. on death or level change.
// DELETE /api/world/player
func (h *WorldHandler) ClearPlayer(c *gin.Context) {
	h.stage.ClearPlayer()
	c.Status(http.StatusNoContent)
}

// SetObstacles replaces the platform rectangles.
// PUT /api/world/obstacles [{"x":0,"y":550,"width":800,"height":50}]
func (h *WorldHandler) SetObstacles(c *gin.Context) {
	var rects []nav.Rect
	if err := c.ShouldBindJSON(&rects); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "obstacles must be a list of rectangles"})
		return
	}
	for _, r := range rects {
		if r.Width < 0 || r.Height < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "obstacle size must not be negative"})
			return
		}
	}
	h.stage.SetObstacles(rects)
	c.JSON(http.StatusOK, gin.H{"count": len(rects)})
}

// Get returns the stage snapshot.
// GET /api/world
func (h *WorldHandler) Get(c *gin.Context) {
	w, ht := h.stage.Size()
	resp := gin.H{
		"width":      w,
		"height":     ht,
		"obstacles":  h.stage.Obstacles(),
		"updated_at": h.stage.UpdatedAt(),
	}
	if p, ok := h.stage.Player(); ok {
		resp["player"] = p
	}
	c.JSON(http.StatusOK, resp)
}

type pathRequest struct {
	Start nav.Point `json:"start"`
	End   nav.Point `json:"end"`
}

// FindPath plans a grid path around the current obstacles. An unreachable
// goal yields an empty path with found=false.
// POST /api/path {"start":{"x":0,"y":0},"end":{"x":400,"y":0}}
func (h *WorldHandler) FindPath(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end required"})
		return
	}
	path := h.director.FindPath(req.Start, req.End)
	if path == nil {
		path = []nav.GridNode{}
	}
	found := len(path) > 0 || nav.Quantize(req.Start.X, req.Start.Y) == nav.Quantize(req.End.X, req.End.Y)
	c.JSON(http.StatusOK, gin.H{"path": path, "found": found, "cell_size": nav.CellSize})
}
