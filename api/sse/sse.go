package sse

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	mw "github.com/kasuganosora/enemyai/middleware"
)

const defaultKeepalive = 30 * time.Second

// Handler streams AI events to browsers and tools over server-sent events.
type Handler struct {
	pubsub      cache.PubSub
	allowOrigin func(string) bool
	keepalive   time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new SSE Handler. allowedOrigins empty permits all.
func NewHandler(pubsub cache.PubSub, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pubsub:      pubsub,
		allowOrigin: mw.OriginAllowed(allowedOrigins),
		keepalive:   defaultKeepalive,
		logger:      logger,
	}
}

// filter selects which events a client receives.
type filter struct {
	types  map[ai.EventType]bool
	entity ai.EntityID
}

func parseFilter(c *gin.Context) (filter, error) {
	var f filter
	if s := c.Query("types"); s != "" {
		f.types = make(map[ai.EventType]bool)
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.types[ai.EventType(t)] = true
			}
		}
	}
	if s := c.Query("entity"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid entity %q", s)
		}
		f.entity = ai.EntityID(id)
	}
	return f, nil
}

func (f filter) match(ev ai.Event) bool {
	if f.types != nil && !f.types[ev.Type] {
		return false
	}
	return f.entity == 0 || f.entity == ev.EntityID
}

// ServeSSE handles GET /sse/ai?types=ambush,evade&entity=3.
// Each AI event is sent with its type as the SSE event name and its JSON
// encoding as data.
func (h *Handler) ServeSSE(c *gin.Context) {
	if !h.allowOrigin(c.GetHeader("Origin")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log := mw.RequestLogger(c, h.logger)

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, event.Channel)
	if err != nil {
		log.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			ev, err := event.Decode(msg.Payload)
			if err != nil {
				log.Warn("sse dropped undecodable event", zap.Error(err))
				continue
			}
			if !f.match(ev) {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
