package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(HistoryCreated, map[string]string{"id": "abc"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	require.Equal(t, HistoryCreated, msg.Type)
	require.JSONEq(t, `{"id":"abc"}`, string(msg.Data))
	require.NotEmpty(t, msg.ID)
}

func TestHubPublishAfterStop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Stop()
	require.ErrorIs(t, hub.Publish(HistoryDeleted, nil), ErrHubStopped)
}
