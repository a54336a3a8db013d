package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// session is one authenticated socket on one function. It owns a bounded
// send buffer and the set of seats selected over this socket, which are
// released again when the socket goes away.
type session struct {
	hub        *Hub
	conn       *websocket.Conn
	functionID string
	userID     string

	send      chan ServerMessage
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	held map[string]struct{}
}

func newSession(hub *Hub, conn *websocket.Conn, functionID, userID string, buffer int) *session {
	return &session{
		hub:        hub,
		conn:       conn,
		functionID: functionID,
		userID:     userID,
		send:       make(chan ServerMessage, buffer),
		closed:     make(chan struct{}),
		held:       make(map[string]struct{}),
	}
}

// trySend queues a frame without ever blocking. A full buffer means the
// consumer cannot keep up, and the session is dropped: a disconnect is
// recoverable, a stalled hub is not.
func (s *session) trySend(msg ServerMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case <-s.closed:
	case s.send <- msg:
	default:
		s.hub.log.Warn("Dropping slow realtime session",
			"function_id", s.functionID,
			"user_id", s.userID,
		)
		s.close()
	}
}

func (s *session) sendError(message string) {
	s.trySend(ServerMessage{Type: MsgError, FunctionID: s.functionID, Message: message})
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

func (s *session) addSeats(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		s.held[code] = struct{}{}
	}
}

func (s *session) removeSeats(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		delete(s.held, code)
	}
}

// takeSeats empties and returns the session's selection set.
func (s *session) takeSeats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.held))
	for code := range s.held {
		codes = append(codes, code)
	}
	s.held = make(map[string]struct{})
	return codes
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("invalid message format")
			continue
		}
		s.hub.route(s, msg)
	}
}
