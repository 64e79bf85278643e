package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/behaviorgraph/internal/events"
)

const (
	// Events replayed to a client before the live stream starts.
	wsBacklog = 50

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsStream is one client of /ws/events.
type wsStream struct {
	conn *websocket.Conn
	sub  events.Subscriber
}

func (s *wsStream) send(e events.Event) error {
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(e)
}

func (s *wsStream) ping() error {
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *wsStream) close() {
	events.Unsubscribe(s.sub)
	s.conn.Close()
}

// readUntilClosed consumes control frames until the peer goes away.
func (s *wsStream) readUntilClosed(done chan<- struct{}) {
	defer close(done)
	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsEventsHandler streams events as JSON text frames: first the buffered
// backlog, then live events. ?agent=<id> limits both to one agent.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	agent := r.URL.Query().Get("agent")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	// Subscribe before reading the backlog so nothing falls in between.
	s := &wsStream{conn: conn, sub: events.SubscribeAgent(agent)}
	defer s.close()

	for _, e := range events.Recent(agent, wsBacklog) {
		if err := s.send(e); err != nil {
			slog.Debug("ws backlog write failed", "error", err)
			return
		}
	}

	done := make(chan struct{})
	go s.readUntilClosed(done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case e, ok := <-s.sub:
			if !ok {
				return
			}
			if err := s.send(e); err != nil {
				slog.Debug("ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}
