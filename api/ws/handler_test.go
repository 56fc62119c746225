package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/game/world"
	"github.com/kasuganosora/enemyai/testutil"
)

const key = "secret"

type fixture struct {
	srv      *httptest.Server
	h        *Handler
	stage    *world.Stage
	director *world.Director
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, ps := testutil.SetupTestCache(t)

	bus := event.NewBus(zap.NewNop())
	fw := event.NewForwarder(ps, c, zap.NewNop())
	fw.Attach(bus)
	t.Cleanup(func() { fw.Stop(context.Background()) })
	lib := ai.NewLibrary(ai.DefaultArchetypes(), zap.NewNop())
	stage := world.NewStage(1000, 500)
	d := world.NewDirector(world.DirectorConfig{Seed: 1}, lib, stage, bus, nav.NewPathfinder(1000, 500), zap.NewNop())

	h := NewHandler(stage, d, lib, ps, key, nil, zap.NewNop())
	r := gin.New()
	r.GET("/ws/host", h.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, h: h, stage: stage, director: d}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/host?key=" + key
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Equal(t, "welcome", read(t, conn).Type)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, seq uint64, typ string, payload interface{}) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	require.NoError(t, conn.WriteJSON(Packet{Seq: seq, Type: typ, Payload: raw}))
}

func read(t *testing.T, conn *websocket.Conn) Packet {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pkt Packet
	require.NoError(t, conn.ReadJSON(&pkt))
	return pkt
}

func TestServeWS_Auth(t *testing.T) {
	f := setup(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/host"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	hdr := http.Header{}
	hdr.Set("X-Admin-Key", key)
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	defer conn.Close()

	welcome := read(t, conn)
	require.Equal(t, "welcome", welcome.Type)
	var body struct {
		Session    string   `json:"session"`
		Archetypes []string `json:"archetypes"`
	}
	require.NoError(t, json.Unmarshal(welcome.Payload, &body))
	assert.NotEmpty(t, body.Session)
	assert.Contains(t, body.Archetypes, "goomba")
	assert.Eventually(t, func() bool { return f.h.Sessions() == 1 }, time.Second, 5*time.Millisecond)
}

func TestServeWS_HostFeed(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	send(t, conn, 1, "obstacles", []nav.Rect{{X: 0, Y: 450, Width: 1000, Height: 50}})
	assert.Equal(t, "obstacles_ok", read(t, conn).Type)
	assert.Len(t, f.stage.Obstacles(), 1)

	send(t, conn, 2, "spawn", map[string]interface{}{"archetype": "goomba", "x": 100})
	spawned := read(t, conn)
	require.Equal(t, "spawned", spawned.Type)
	assert.JSONEq(t, `{"id":1,"archetype":"goomba"}`, string(spawned.Payload))

	send(t, conn, 3, "player", map[string]interface{}{"x": 150, "y": 0, "state": "running"})
	send(t, conn, 4, "ping", map[string]int{"t": 7})
	pong := read(t, conn)
	require.Equal(t, "pong", pong.Type, "packets are handled in order")
	assert.JSONEq(t, `{"t":7}`, string(pong.Payload))
	p, ok := f.stage.Player()
	require.True(t, ok)
	assert.Equal(t, ai.PlayerRunning, p.State)

	f.director.Tick()
	evPkt := read(t, conn)
	require.Equal(t, "ai_event", evPkt.Type)
	var ev ai.Event
	require.NoError(t, json.Unmarshal(evPkt.Payload, &ev))
	assert.Equal(t, ai.EventPlayerClose, ev.Type)
	assert.Equal(t, ai.EntityID(1), ev.EntityID)

	send(t, conn, 5, "entities", nil)
	ents := read(t, conn)
	require.Equal(t, "entities", ents.Type)
	var list []ai.Entity
	require.NoError(t, json.Unmarshal(ents.Payload, &list))
	require.Len(t, list, 1)
	assert.Equal(t, ai.PoseChasing, list[0].Pose)

	send(t, conn, 6, "despawn", map[string]uint64{"id": 1})
	assert.Equal(t, "despawned", read(t, conn).Type)
	assert.Empty(t, f.director.Entities())
}

func TestServeWS_Errors(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", read(t, conn).Type)

	send(t, conn, 0, "teleport", nil)
	pkt := read(t, conn)
	require.Equal(t, "error", pkt.Type)
	assert.Contains(t, string(pkt.Payload), "unknown message type")

	send(t, conn, 0, "spawn", map[string]interface{}{"archetype": "bowser"})
	pkt = read(t, conn)
	require.Equal(t, "error", pkt.Type)
	assert.Contains(t, string(pkt.Payload), "bowser")

	send(t, conn, 0, "despawn", map[string]uint64{"id": 42})
	assert.Equal(t, "error", read(t, conn).Type)

	send(t, conn, 0, "entity_ai", map[string]uint64{"id": 42})
	assert.Equal(t, "error", read(t, conn).Type)

	send(t, conn, 0, "player", nil)
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestServeWS_DropsReplayedSeq(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	send(t, conn, 5, "player", map[string]float64{"x": 1})
	send(t, conn, 5, "player", map[string]float64{"x": 2})
	send(t, conn, 4, "player", map[string]float64{"x": 3})
	send(t, conn, 6, "ping", nil)
	require.Equal(t, "pong", read(t, conn).Type)

	p, ok := f.stage.Player()
	require.True(t, ok)
	assert.Equal(t, 1.0, p.X)
	assert.Equal(t, ai.PlayerIdle, p.State)
}

func TestServeWS_DisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, ps := testutil.SetupTestCache(t)
	h := NewHandler(world.NewStage(10, 10), nil, nil, ps, "", nil, nil)
	r := gin.New()
	r.GET("/ws/host", h.ServeWS)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/host?key=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
