package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/game/world"
	mw "github.com/kasuganosora/enemyai/middleware"
)

// Handler is the host feed: the game pushes player and platform updates in
// and receives AI events out over one connection.
type Handler struct {
	stage    *world.Stage
	director *world.Director
	trees    world.TreeSource
	pubsub   cache.PubSub
	adminKey string
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
	sessions atomic.Int64
}

// NewHandler creates a new WebSocket Handler. allowedOrigins empty permits
// all origins (development only).
func NewHandler(stage *world.Stage, d *world.Director, trees world.TreeSource, ps cache.PubSub, adminKey string, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allow := mw.OriginAllowed(allowedOrigins)
	h := &Handler{
		stage:    stage,
		director: d,
		trees:    trees,
		pubsub:   ps,
		adminKey: adminKey,
		router:   NewRouter(logger),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return allow(r.Header.Get("Origin")) },
		},
	}
	h.registerHandlers()
	return h
}

// Sessions returns the number of connected hosts.
func (h *Handler) Sessions() int64 { return h.sessions.Load() }

// ServeWS handles GET /ws/host. The admin key is taken from the X-Admin-Key
// header or the key query parameter, since browsers cannot set headers on a
// WebSocket handshake.
func (h *Handler) ServeWS(c *gin.Context) {
	if h.adminKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "host feed disabled: set server.admin_key in config"})
		return
	}
	key := c.GetHeader(mw.AdminKeyHeader)
	if key == "" {
		key = c.Query("key")
	}
	if key != h.adminKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	s := newSession(conn, h.logger)
	h.sessions.Add(1)
	h.logger.Info("host connected", zap.String("session", s.ID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.forwardEvents(ctx, s); err != nil {
		h.logger.Error("ws event subscribe failed", zap.Error(err))
	}
	s.Send("welcome", gin.H{"session": s.ID, "archetypes": archetypes(h.trees)})

	h.readPump(s)
}

func archetypes(t world.TreeSource) []string {
	if l, ok := t.(interface{ Archetypes() []string }); ok {
		return l.Archetypes()
	}
	return nil
}

// forwardEvents relays pub/sub AI events to the session until ctx ends.
func (h *Handler) forwardEvents(ctx context.Context, s *Session) error {
	msgCh, unsub, err := h.pubsub.Subscribe(ctx, event.Channel)
	if err != nil {
		return err
	}
	go func() {
		defer unsub()
		for msg := range msgCh {
			data, err := json.Marshal(&Packet{Type: "ai_event", Payload: json.RawMessage(msg.Payload)})
			if err != nil {
				continue
			}
			s.SendRaw(data, "ai_event")
		}
	}()
	return nil
}

// readPump reads messages until the connection closes.
func (h *Handler) readPump(s *Session) {
	defer func() {
		s.Close()
		h.sessions.Add(-1)
		h.logger.Info("host disconnected", zap.String("session", s.ID))
	}()

	s.extendReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close", zap.String("session", s.ID), zap.Error(err))
			}
			return
		}
		s.extendReadDeadline()
		h.router.Dispatch(s, raw)
	}
}

// ---- Messages ----

type playerMsg struct {
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	State ai.PlayerState `json:"state"`
}

type spawnMsg struct {
	ID        uint64  `json:"id"`
	Archetype string  `json:"archetype"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

type entityRef struct {
	ID      uint64 `json:"id"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}

func (h *Handler) registerHandlers() {
	h.router.On("ping", func(_ context.Context, s *Session, payload json.RawMessage) error {
		s.Send("pong", payload)
		return nil
	})

	h.router.On("player", func(_ context.Context, _ *Session, payload json.RawMessage) error {
		var m playerMsg
		if err := decode(payload, &m); err != nil {
			return err
		}
		if m.State == "" {
			m.State = ai.PlayerIdle
		}
		h.stage.SetPlayer(ai.PlayerInfo{X: m.X, Y: m.Y, State: m.State})
		return nil
	})

	h.router.On("player_clear", func(_ context.Context, _ *Session, _ json.RawMessage) error {
		h.stage.ClearPlayer()
		return nil
	})

	h.router.On("obstacles", func(_ context.Context, s *Session, payload json.RawMessage) error {
		var rects []nav.Rect
		if err := decode(payload, &rects); err != nil {
			return err
		}
		h.stage.SetObstacles(rects)
		s.Send("obstacles_ok", gin.H{"count": len(rects)})
		return nil
	})

	h.router.On("spawn", func(_ context.Context, s *Session, payload json.RawMessage) error {
		var m spawnMsg
		if err := decode(payload, &m); err != nil {
			return err
		}
		if _, err := h.trees.Tree(m.Archetype); err != nil {
			return err
		}
		id, err := h.director.AddEntity(ai.Entity{
			ID:        ai.EntityID(m.ID),
			Archetype: m.Archetype,
			X:         m.X,
			Y:         m.Y,
			Width:     m.Width,
			Height:    m.Height,
		})
		if err != nil {
			return err
		}
		s.Send("spawned", gin.H{"id": id, "archetype": m.Archetype})
		return nil
	})

	h.router.On("despawn", func(_ context.Context, s *Session, payload json.RawMessage) error {
		var m entityRef
		if err := decode(payload, &m); err != nil {
			return err
		}
		if err := h.director.RemoveEntity(ai.EntityID(m.ID)); err != nil {
			return err
		}
		s.Send("despawned", gin.H{"id": m.ID})
		return nil
	})

	h.router.On("entity_ai", func(_ context.Context, s *Session, payload json.RawMessage) error {
		var m entityRef
		if err := decode(payload, &m); err != nil {
			return err
		}
		if m.Enabled == nil {
			return errors.New("enabled required")
		}
		return h.director.SetEntityAI(ai.EntityID(m.ID), *m.Enabled)
	})

	h.router.On("entities", func(_ context.Context, s *Session, _ json.RawMessage) error {
		s.Send("entities", h.director.Entities())
		return nil
	})
}
