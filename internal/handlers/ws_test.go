package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/apschat/internal/models"
)

func dialWS(t *testing.T, h *ChatHandler) (net.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.WSHandler))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, _, err := ws.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readResponse(t *testing.T, conn net.Conn) models.ChatResponse {
	t.Helper()
	data, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestWebSocketChatRoundTrip(t *testing.T) {
	fake := &fakeProcessor{
		replies: []string{"Here is a list of your hubs: Main Hub."},
		options: []models.Option{{ID: "b.h1", Name: "Main Hub", Kind: "hub"}},
	}
	h := NewChatHandler(fake, writeTemplate(t))
	conn, cleanup := dialWS(t, h)
	defer cleanup()

	require.NoError(t, wsutil.WriteClientText(conn, []byte(`{"message":"show hubs"}`)))

	resp := readResponse(t, conn)
	assert.Equal(t, "assistant", resp.Role)
	assert.True(t, resp.Done)
	assert.Contains(t, resp.Content, "Main Hub")
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "b.h1", resp.Options[0].ID)
}

func TestWebSocketRejectsMalformedAndEmpty(t *testing.T) {
	h := NewChatHandler(&fakeProcessor{}, writeTemplate(t))
	conn, cleanup := dialWS(t, h)
	defer cleanup()

	require.NoError(t, wsutil.WriteClientText(conn, []byte(`not json`)))
	resp := readResponse(t, conn)
	assert.Equal(t, "system", resp.Role)
	assert.Contains(t, resp.Content, "invalid request")

	require.NoError(t, wsutil.WriteClientText(conn, []byte(`{"message":""}`)))
	resp = readResponse(t, conn)
	assert.Contains(t, resp.Content, "empty message")
}

func TestWebSocketProcessorError(t *testing.T) {
	h := NewChatHandler(&fakeProcessor{err: assert.AnError}, writeTemplate(t))
	conn, cleanup := dialWS(t, h)
	defer cleanup()

	require.NoError(t, wsutil.WriteClientText(conn, []byte(`{"message":"hi"}`)))
	resp := readResponse(t, conn)
	assert.Equal(t, "system", resp.Role)
	assert.Contains(t, resp.Content, "processing message")
}
