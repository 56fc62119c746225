package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/world"
	"github.com/kasuganosora/enemyai/journal"
	mw "github.com/kasuganosora/enemyai/middleware"
	"github.com/kasuganosora/enemyai/scheduler"
)

// Archetypes lists and resolves behavior trees. *ai.Library implements it.
type Archetypes interface {
	world.TreeSource
	Archetypes() []string
}

// AIHandler exposes the Director's control surface.
type AIHandler struct {
	director *world.Director
	lib      Archetypes
	bus      *event.Bus
	cache    cache.Cache
	db       *gorm.DB
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewAIHandler creates an AIHandler. db and sched may be nil; the journal
// and task listings are then unavailable.
func NewAIHandler(d *world.Director, lib Archetypes, bus *event.Bus, c cache.Cache, db *gorm.DB, sched *scheduler.Scheduler, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{director: d, lib: lib, bus: bus, cache: c, db: db, sched: sched, logger: logger}
}

// Stats returns Director stats and event totals.
// GET /api/ai/stats[?cached=1]
func (h *AIHandler) Stats(c *gin.Context) {
	if c.Query("cached") == "1" {
		fields, err := h.cache.HGetAll(c.Request.Context(), world.StatsKey)
		if err != nil {
			mw.RequestLogger(c, h.logger).Warn("read cached stats failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "stats cache unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": fields})
		return
	}

	resp := gin.H{"stats": h.director.Stats()}
	if h.bus != nil {
		resp["events"] = h.bus.Counts()
	}
	if h.sched != nil {
		resp["tasks"] = h.sched.Tasks()
	}
	c.JSON(http.StatusOK, resp)
}

// Enable resumes AI updates.
// POST /api/ai/enable
func (h *AIHandler) Enable(c *gin.Context) {
	h.director.Enable()
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

// Disable pauses AI updates.
// POST /api/ai/disable
func (h *AIHandler) Disable(c *gin.Context) {
	h.director.Disable()
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

// A pointer so an explicit 0 reaches the Director, which clamps it to 1 ms.
type rateRequest struct {
	UpdateRateMs *int `json:"update_rate_ms" binding:"required"`
}

// SetRate changes the tick interval.
// PUT /api/ai/rate {"update_rate_ms": 33}
func (h *AIHandler) SetRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "update_rate_ms required"})
		return
	}
	applied := h.director.SetUpdateRate(*req.UpdateRateMs)
	mw.RequestLogger(c, h.logger).Info("ai update rate changed", zap.Duration("rate", applied))
	c.JSON(http.StatusOK, gin.H{"update_rate_ms": applied.Milliseconds()})
}

// ListArchetypes returns the registered archetype ids.
// GET /api/ai/archetypes
func (h *AIHandler) ListArchetypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"archetypes": h.lib.Archetypes()})
}

// ListEntities returns the roster as of the last tick.
// GET /api/ai/entities
func (h *AIHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": h.director.Entities()})
}

func parseEntityID(c *gin.Context) (ai.EntityID, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return 0, false
	}
	return ai.EntityID(id), true
}

// GetEntity returns one entity.
// GET /api/ai/entities/:id
func (h *AIHandler) GetEntity(c *gin.Context) {
	id, ok := parseEntityID(c)
	if !ok {
		return
	}
	e, found := h.director.Entity(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

type addEntityRequest struct {
	ID        uint64  `json:"id"`
	Archetype string  `json:"archetype" binding:"required"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// AddEntity puts a new enemy under AI control.
// POST /api/ai/entities {"archetype": "goomba", "x": 100, "y": 0}
func (h *AIHandler) AddEntity(c *gin.Context) {
	var req addEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archetype required"})
		return
	}
	if _, err := h.lib.Tree(req.Archetype); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.director.AddEntity(ai.Entity{
		ID:        ai.EntityID(req.ID),
		Archetype: req.Archetype,
		X:         req.X,
		Y:         req.Y,
		Width:     req.Width,
		Height:    req.Height,
	})
	if errors.Is(err, world.ErrDuplicateEntity) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	mw.RequestLogger(c, h.logger).Info("ai entity added",
		zap.Uint64("entity_id", uint64(id)), zap.String("archetype", req.Archetype))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// RemoveEntity takes an enemy out of the roster.
// DELETE /api/ai/entities/:id
func (h *AIHandler) RemoveEntity(c *gin.Context) {
	id, ok := parseEntityID(c)
	if !ok {
		return
	}
	if err := h.director.RemoveEntity(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEntityAI toggles one entity's AI.
// PUT /api/ai/entities/:id/ai {"enabled": false}
func (h *AIHandler) SetEntityAI(c *gin.Context) {
	id, ok := parseEntityID(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled required"})
		return
	}
	if err := h.director.SetEntityAI(id, *req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "ai_enabled": *req.Enabled})
}

func queryLimit(c *gin.Context, def, max int) int {
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= max {
		return l
	}
	return def
}

// RecentEvents returns the newest events from the cache history.
// GET /api/ai/events?limit=20
func (h *AIHandler) RecentEvents(c *gin.Context) {
	events, err := event.Recent(c.Request.Context(), h.cache, queryLimit(c, 20, event.RecentLimit))
	if err != nil {
		mw.RequestLogger(c, h.logger).Warn("read recent events failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "event history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Journal queries persisted events.
// GET /api/ai/journal?entity=3&type=evade&since=2024-01-01T00:00:00Z&limit=50
func (h *AIHandler) Journal(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	f := journal.Filter{Type: c.Query("type"), Limit: queryLimit(c, 100, 1000)}
	if s := c.Query("entity"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity"})
			return
		}
		f.EntityID = id
	}
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		f.Since = t
	}
	rows, err := journal.Query(c.Request.Context(), h.db, f)
	if err != nil {
		mw.RequestLogger(c, h.logger).Error("journal query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}
