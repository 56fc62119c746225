package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one connected host.
type Session struct {
	ID   string
	Conn *websocket.Conn

	sendCh chan []byte
	done   chan struct{}
	once   sync.Once

	// lastSeq is only touched by the read pump.
	lastSeq uint64
	logger  *zap.Logger
}

func newSession(conn *websocket.Conn, logger *zap.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:     id,
		Conn:   conn,
		sendCh: make(chan []byte, sendChanBuf),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("session", id)),
	}
	go s.writePump()
	return s
}

// writePump drains sendCh and writes to the connection. It also pings so
// dead peers are noticed before the read deadline.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data := <-s.sendCh:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error", zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			_ = s.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeDeadline))
			return
		}
	}
}

// Send encodes a packet of the given type and queues it. Packets are dropped
// when the session is closed or its queue is full.
func (s *Session) Send(typ string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("ws encode failed", zap.String("type", typ), zap.Error(err))
			return
		}
		raw = b
	}
	data, err := json.Marshal(&Packet{Type: typ, Payload: raw})
	if err != nil {
		return
	}
	s.SendRaw(data, typ)
}

// SendRaw queues pre-encoded bytes.
func (s *Session) SendRaw(data []byte, typ string) {
	if s.IsClosed() {
		return
	}
	select {
	case s.sendCh <- data:
	case <-s.done:
	default:
		s.logger.Warn("send channel full, dropping packet", zap.String("type", typ))
	}
}

// Close signals the write pump to shut down.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// IsClosed returns true once the session has been closed.
func (s *Session) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) extendReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}
