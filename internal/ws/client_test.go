package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve upgrades one connection for userID and runs both pumps
func serve(t *testing.T, hub *Hub, userID uuid.UUID, handler MessageHandler) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, userID, "tester")
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump(handler)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ConnectionCount(userID) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.WSEvent {
	t.Helper()
	var ev model.WSEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestClient_InvalidFrameGetsErrorReply(t *testing.T) {
	hub := startHub(t)
	conn := serve(t, hub, uuid.New(), nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	ev := readEvent(t, conn)
	assert.Equal(t, model.WSEventError, ev.Type)
}

func TestClient_DispatchesEvents(t *testing.T) {
	hub := startHub(t)
	got := make(chan model.WSEvent, 1)
	conn := serve(t, hub, uuid.New(), func(c *Client, ev model.WSEvent) { got <- ev })

	require.NoError(t, conn.WriteJSON(model.WSEvent{Type: model.WSEventTyping}))
	select {
	case ev := <-got:
		assert.Equal(t, model.WSEventTyping, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestClient_OneEventPerFrame(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	conn := serve(t, hub, userID, nil)

	hub.SendToUser(userID, &model.WSEvent{Type: model.WSEventNewMessage})
	hub.SendToUser(userID, &model.WSEvent{Type: model.WSEventMessagesSeen})

	assert.Equal(t, model.WSEventNewMessage, readEvent(t, conn).Type)
	assert.Equal(t, model.WSEventMessagesSeen, readEvent(t, conn).Type)
}

func TestClient_CloseUnregisters(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	conn := serve(t, hub, userID, nil)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount(userID) == 0 }, time.Second, 5*time.Millisecond)
}
