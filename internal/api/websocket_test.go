package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/behaviorgraph/internal/events"
)

func dialEvents(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

// emitLater emits after the client has had time to subscribe.
func emitLater(name string, fields map[string]interface{}) {
	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", name, "", fields)
	}()
}

func TestWebSocketReplaysBacklog(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "node.entered", "", map[string]interface{}{"node": i})
	}

	conn := dialEvents(t, "")
	for i := 0; i < 5; i++ {
		e := readEvent(t, conn)
		assert.Equal(t, "node.entered", e.Name)
		assert.Equal(t, float64(i), e.Fields["node"], "backlog is oldest first")
	}
}

func TestWebSocketStreamsNewEvents(t *testing.T) {
	events.Clear()
	conn := dialEvents(t, "")

	emitLater("transition.fired", map[string]interface{}{"transition": 3})

	e := readEvent(t, conn)
	assert.Equal(t, "transition.fired", e.Name)
	assert.Equal(t, float64(3), e.Fields["transition"])
}

func TestWebSocketDisconnectUnsubscribes(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()

	conn := dialEvents(t, "")
	emitLater("node.entered", nil)
	readEvent(t, conn)
	require.Equal(t, 1, events.SubscriberCount())

	conn.Close()
	require.Eventually(t, func() bool {
		// Emitting makes the writer notice the closed peer.
		events.Emit("info", "node.entered", "", nil)
		return events.SubscriberCount() == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWebSocketMultipleClients(t *testing.T) {
	events.Clear()
	a := dialEvents(t, "")
	b := dialEvents(t, "")

	emitLater("agent.finished", map[string]interface{}{"agent": "a-1"})

	assert.Equal(t, "agent.finished", readEvent(t, a).Name)
	assert.Equal(t, "agent.finished", readEvent(t, b).Name)
}

func TestWebSocketAgentFilter(t *testing.T) {
	events.Clear()
	events.Emit("info", "node.entered", "", map[string]interface{}{"agent": "a-1"})
	events.Emit("info", "node.entered", "", map[string]interface{}{"agent": "a-2"})

	conn := dialEvents(t, "?agent=a-2")
	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "transition.fired", "", map[string]interface{}{"agent": "a-1"})
		events.Emit("info", "transition.fired", "", map[string]interface{}{"agent": "a-2"})
	}()

	for _, want := range []string{"node.entered", "transition.fired"} {
		e := readEvent(t, conn)
		assert.Equal(t, "a-2", e.Agent)
		assert.Equal(t, want, e.Name)
	}
}
