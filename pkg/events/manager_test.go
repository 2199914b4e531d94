package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) (*Bus, *ConnectionManager, *httptest.Server) {
	t.Helper()

	bus := NewBus()
	manager := NewConnectionManager(bus, 5*time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}
		manager.HandleConnection(r.Context(), conn)
	}))

	t.Cleanup(server.Close)
	return bus, manager, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeClientMessage(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestConnectionManager_ConnectionEstablished(t *testing.T) {
	_, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	msg := readJSON(t, conn)
	assert.Equal(t, "connection.established", msg["type"])
	assert.NotEmpty(t, msg["connection_id"])
}

func TestConnectionManager_SubscribeConfirmsAndForwardsBusEvents(t *testing.T) {
	bus, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	_ = readJSON(t, conn) // connection.established

	writeClientMessage(t, conn, ClientMessage{Action: "subscribe", Channel: TaskChannel("t1")})
	confirmed := readJSON(t, conn)
	assert.Equal(t, "subscription.confirmed", confirmed["type"])

	require.Eventually(t, func() bool { return bus.SubscriberCount(TaskChannel("t1")) == 1 }, time.Second, 10*time.Millisecond)

	bus.Publish(Event{Type: EventTaskStatus, Channel: TaskChannel("t1"), Payload: TaskStatusPayload{TaskID: "t1", Status: "running"}})

	delivered := readJSON(t, conn)
	assert.Equal(t, string(EventTaskStatus), delivered["Type"])
}

func TestConnectionManager_UnsubscribeStopsDelivery(t *testing.T) {
	bus, _, server := setupTestManager(t)
	conn := connectWS(t, server)
	_ = readJSON(t, conn)

	writeClientMessage(t, conn, ClientMessage{Action: "subscribe", Channel: GlobalChannel})
	_ = readJSON(t, conn)
	require.Eventually(t, func() bool { return bus.SubscriberCount(GlobalChannel) == 1 }, time.Second, 10*time.Millisecond)

	writeClientMessage(t, conn, ClientMessage{Action: "unsubscribe", Channel: GlobalChannel})
	require.Eventually(t, func() bool { return bus.SubscriberCount(GlobalChannel) == 0 }, time.Second, 10*time.Millisecond)
}

func TestConnectionManager_PingReturnsPong(t *testing.T) {
	_, _, server := setupTestManager(t)
	conn := connectWS(t, server)
	_ = readJSON(t, conn)

	writeClientMessage(t, conn, ClientMessage{Action: "ping"})
	pong := readJSON(t, conn)
	assert.Equal(t, "pong", pong["type"])
}

func TestConnectionManager_ActiveConnectionsTracksLifecycle(t *testing.T) {
	_, manager, server := setupTestManager(t)
	conn := connectWS(t, server)
	_ = readJSON(t, conn)

	require.Eventually(t, func() bool { return manager.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return manager.ActiveConnections() == 0 }, time.Second, 10*time.Millisecond)
}
