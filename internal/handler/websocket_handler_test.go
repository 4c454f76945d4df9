package handler

import (
	"encoding/json"
	"fmt"
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

	"device-terminal/internal/model"
	"device-terminal/internal/terminal"
)

type wsEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func dialTerminal(t *testing.T, h *WebSocketHandler, query string) *websocket.Conn {
	t.Helper()

	r := gin.New()
	h.RegisterRoutes(r.Group("/ws"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/terminal" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env wsEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func readLogEntry(t *testing.T, conn *websocket.Conn) model.LogEntry {
	t.Helper()
	for {
		env := readEnvelope(t, conn)
		if env.Type != "log_entry" {
			continue
		}
		var entry model.LogEntry
		require.NoError(t, json.Unmarshal(env.Data, &entry))
		return entry
	}
}

func TestWebSocketReplaysBacklogThenStreams(t *testing.T) {
	log := terminal.NewLog()
	log.Append(model.EntryKindInfo, "Connected to serial port", "")
	log.Append(model.EntryKindData, "ready\r\n", "")

	h := NewWebSocketHandler(newFakeSession(log), log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	first := readLogEntry(t, conn)
	assert.Equal(t, uint64(1), first.Seq)
	second := readLogEntry(t, conn)
	assert.Equal(t, "ready\r\n", second.Text)

	log.Append(model.EntryKindData, "tick\r\n", "")
	third := readLogEntry(t, conn)
	assert.Equal(t, uint64(3), third.Seq)
	assert.Equal(t, "tick\r\n", third.Text)
}

func TestWebSocketSinceSkipsSeenEntries(t *testing.T) {
	log := terminal.NewLog()
	log.Append(model.EntryKindInfo, "one", "")
	log.Append(model.EntryKindInfo, "two", "")

	h := NewWebSocketHandler(newFakeSession(log), log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "?since=1")

	entry := readLogEntry(t, conn)
	assert.Equal(t, "two", entry.Text)
}

func TestWebSocketSendCommand(t *testing.T) {
	log := terminal.NewLog()
	session := newFakeSession(log)
	h := NewWebSocketHandler(session, log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "send",
		"data":       map[string]string{"command": "AT"},
		"request_id": "r1",
	}))

	var response, echo *wsEnvelope
	for response == nil || echo == nil {
		env := readEnvelope(t, conn)
		switch env.Type {
		case "command_response":
			response = &env
		case "log_entry":
			echo = &env
		}
	}

	assert.Equal(t, "r1", response.RequestID)
	var data struct {
		Command string `json:"command"`
		Success bool   `json:"success"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &data))
	assert.Equal(t, "send", data.Command)
	assert.True(t, data.Success)

	var entry model.LogEntry
	require.NoError(t, json.Unmarshal(echo.Data, &entry))
	assert.Equal(t, model.EntryKindEcho, entry.Kind)
	assert.Equal(t, "AT", entry.Text)
	assert.Equal(t, []string{"AT"}, session.sentCommands())
}

func TestWebSocketCommandsKeepSubmissionOrder(t *testing.T) {
	log := terminal.NewLog()
	session := newFakeSession(log)
	h := NewWebSocketHandler(session, log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "connect"}))
	want := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		command := fmt.Sprintf("cmd%03d", i)
		want = append(want, command)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "send",
			"data": map[string]string{"command": command},
		}))
	}

	require.Eventually(t, func() bool {
		return len(session.sentCommands()) == len(want)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, session.sentCommands())

	entries := log.Since(0)
	require.NotEmpty(t, entries)
	assert.Equal(t, "Connected to serial port", entries[0].Text, "connect runs before the sends queued behind it")
}

func TestWebSocketReportsFailedCommand(t *testing.T) {
	log := terminal.NewLog()
	session := newFakeSession(log)
	session.sendErr = terminal.ErrNotOpen
	h := NewWebSocketHandler(session, log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "send",
		"data": map[string]string{"command": "AT"},
	}))

	env := readEnvelope(t, conn)
	require.Equal(t, "command_response", env.Type)
	var data struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Status  int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Success)
	assert.Equal(t, terminal.ErrNotOpen.Error(), data.Error)
	assert.Equal(t, http.StatusConflict, data.Status)
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	log := terminal.NewLog()
	h := NewWebSocketHandler(newFakeSession(log), log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "send", "data": "AT"}))
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "reboot"}))
	env = readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "request_id": "p"}))
	env = readEnvelope(t, conn)
	assert.Equal(t, "pong", env.Type)
	assert.Equal(t, "p", env.RequestID)
}

func TestWebSocketCloseDisconnectsClients(t *testing.T) {
	log := terminal.NewLog()
	h := NewWebSocketHandler(newFakeSession(log), log, nil, zap.NewNop())
	conn := dialTerminal(t, h, "")

	require.Eventually(t, func() bool {
		return h.GetConnectionStats().TotalConnections == 1
	}, time.Second, 5*time.Millisecond)

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/terminal", nil)

	assert.True(t, originChecker(nil)(req))

	check := originChecker([]string{"http://localhost:3000"})
	assert.True(t, check(req), "requests without an Origin header are not browser requests")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
