package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-rescue-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func readWS(t *testing.T, conn *websocket.Conn) services.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketSession(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, "token-vol-a")
	require.NoError(t, err)
	defer conn.Close()

	snapshot := readWS(t, conn)
	assert.Equal(t, services.MsgSnapshot, snapshot.Type)
	assert.Len(t, snapshot.Donations, 3)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, services.MsgPong, readWS(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "refresh"}))
	assert.Equal(t, services.MsgSnapshot, readWS(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	msg := readWS(t, conn)
	assert.Equal(t, services.MsgError, msg.Type)
	assert.Equal(t, "Unknown message type", msg.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "Invalid message format", readWS(t, conn).Message)
}

func TestWebSocketRejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	for _, token := range []string{"", "garbage"} {
		_, resp, err := dialWS(t, srv, token)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}
