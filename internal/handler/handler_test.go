package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-terminal/internal/config"
	"device-terminal/internal/model"
	"device-terminal/internal/terminal"
	"device-terminal/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newTerminalRouter(session TerminalSession, log LogSource) *gin.Engine {
	h := NewTerminalHandler(session, log, zap.NewNop())
	r := gin.New()
	r.GET("/session", h.GetSession)
	r.POST("/session/connect", h.Connect)
	r.POST("/session/disconnect", h.Disconnect)
	r.POST("/session/send", h.Send)
	r.GET("/session/log", h.GetLog)
	return r
}

func TestTerminalHandlerSend(t *testing.T) {
	log := terminal.NewLog()
	session := newFakeSession(log)
	r := newTerminalRouter(session, log)

	w := perform(r, http.MethodPost, "/session/send", `{"command":"AT"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"AT"}, session.sentCommands())

	w = perform(r, http.MethodPost, "/session/send", `{"command":""}`)
	assert.Equal(t, http.StatusOK, w.Code, "an empty command still sends CR LF")

	w = perform(r, http.MethodPost, "/session/send", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestTerminalHandlerErrorStatus(t *testing.T) {
	log := terminal.NewLog()
	session := newFakeSession(log)
	r := newTerminalRouter(session, log)

	session.sendErr = terminal.ErrNotOpen
	w := perform(r, http.MethodPost, "/session/send", `{"command":"AT"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w).Error.Code)

	session.connectErr = fmt.Errorf("%w: permission denied", terminal.ErrNotSelected)
	w = perform(r, http.MethodPost, "/session/connect", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	session.connectErr = nil
	w = perform(r, http.MethodPost, "/session/connect", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Data model.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, model.SessionStateOpen, info.Data.State)

	w = perform(r, http.MethodPost, "/session/disconnect", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, session.disconnects)
}

func TestSessionErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{terminal.ErrNotOpen, http.StatusConflict},
		{terminal.ErrAlreadyOpen, http.StatusConflict},
		{fmt.Errorf("%w: no port", terminal.ErrNotSelected), http.StatusNotFound},
		{fmt.Errorf("%w: busy", terminal.ErrOpenFailed), http.StatusBadGateway},
		{terminal.ErrTransferStall, http.StatusBadGateway},
		{terminal.ErrTransferException, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sessionErrorStatus(tt.err), tt.err.Error())
	}
}

func TestTerminalHandlerGetLog(t *testing.T) {
	log := terminal.NewLog()
	log.Append(model.EntryKindInfo, "Connected to serial port", "")
	log.Append(model.EntryKindEcho, "AT", "")
	log.Append(model.EntryKindData, "OK\r\n", "")
	r := newTerminalRouter(newFakeSession(log), log)

	w := perform(r, http.MethodGet, "/session/log?since=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Entries []model.LogEntry `json:"entries"`
			LastSeq uint64           `json:"last_seq"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Entries, 2)
	assert.Equal(t, "AT", body.Data.Entries[0].Text)
	assert.Equal(t, uint64(3), body.Data.LastSeq)

	w = perform(r, http.MethodGet, "/session/log?since=9", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data.Entries)
	assert.Equal(t, uint64(9), body.Data.LastSeq)

	w = perform(r, http.MethodGet, "/session/log?since=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscoveryHandler(t *testing.T) {
	scanner := &fakeScanner{devices: []*model.DiscoveredDevice{
		{Transport: model.TransportKindSerial, Path: "/dev/ttyACM0", VendorID: "0x381F", IsUSB: true},
	}}
	h := NewDiscoveryHandler(scanner, zap.NewNop())
	r := gin.New()
	r.GET("/devices", h.ScanDevices)

	w := perform(r, http.MethodGet, "/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", scanner.lastType)
	assert.Contains(t, w.Body.String(), "/dev/ttyACM0")

	w = perform(r, http.MethodGet, "/devices?type=serial", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "serial", scanner.lastType)

	w = perform(r, http.MethodGet, "/devices?type=tcp", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptHandler(t *testing.T) {
	id := uuid.New()
	reader := &fakeTranscripts{entries: map[uuid.UUID][]*model.TranscriptEntry{
		id: {{ID: uuid.New(), SessionID: id, Seq: 1, Kind: model.EntryKindEcho, Text: "AT"}},
	}}

	h := NewTranscriptHandler(reader, zap.NewNop())
	r := gin.New()
	r.GET("/transcripts", h.ListSessions)
	r.GET("/transcripts/:session_id", h.GetTranscript)

	w := perform(r, http.MethodGet, "/transcripts/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"AT"`)

	w = perform(r, http.MethodGet, "/transcripts/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodGet, "/transcripts/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/transcripts?limit=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/transcripts?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptHandlerDisabled(t *testing.T) {
	h := NewTranscriptHandler(nil, zap.NewNop())
	r := gin.New()
	r.GET("/transcripts", h.ListSessions)

	w := perform(r, http.MethodGet, "/transcripts", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Name: "device-terminal", Version: "1.0.0"}}
	session := newFakeSession(terminal.NewLog())

	h := NewHealthHandler(nil, session, cfg, zap.NewNop())
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)

	w := perform(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "CLOSED", health.Checks["session"].Message)
	assert.NotContains(t, health.Checks, "database")

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/live", "").Code)

	h = NewHealthHandler(fakePinger{err: errors.New("connection refused")}, session, cfg, zap.NewNop())
	r = gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)

	assert.Equal(t, http.StatusServiceUnavailable, perform(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, perform(r, http.MethodGet, "/ready", "").Code)
}
