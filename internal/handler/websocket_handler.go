// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	commandTimeout = 30 * time.Second
)

// WebSocketHandler streams the terminal log to browsers and accepts
// commands from them
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	session     TerminalSession
	log         LogSource
	logger      *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. An empty origin list
// accepts every origin.
func NewWebSocketHandler(session TerminalSession, log LogSource, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		connections: NewConnectionManager(),
		session:     session,
		log:         log,
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && set[u.Scheme+"://"+u.Host]
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/terminal", h.HandleTerminalConnection)
}

// HandleTerminalConnection upgrades the request, replays the log after the
// optional since parameter and then streams new entries
func (h *WebSocketHandler) HandleTerminalConnection(c *gin.Context) {
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since parameter"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, c.Request.UserAgent(), c.Request.RemoteAddr)

	h.connections.Register(client)
	h.logger.Info("Terminal WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	go h.log.Follow(client.ctx, since, func(entry model.LogEntry) bool {
		return h.sendLogEntry(client, entry)
	})
	go h.handleClientRead(client)
	go h.handleClientWrite(client)
	go h.handleClientCommands(client)
}

func (h *WebSocketHandler) sendLogEntry(client *Client, entry model.LogEntry) bool {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "log_entry",
		Data:      entry,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal log entry", zap.Error(err))
		return true
	}

	select {
	case client.Send <- messageBytes:
		return true
	case <-client.Done():
		return false
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Terminal WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Error("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done():
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "send":
		data, ok := message.Data.(map[string]interface{})
		if !ok {
			h.sendError(client, message.RequestID, "invalid command data")
			return
		}
		command, ok := data["command"].(string)
		if !ok {
			h.sendError(client, message.RequestID, "command is required")
			return
		}
		h.enqueueCommand(client, message.RequestID, "send", func(ctx context.Context) error {
			return h.session.Send(ctx, command)
		})

	case "connect":
		h.enqueueCommand(client, message.RequestID, "connect", h.session.Connect)

	case "disconnect":
		h.enqueueCommand(client, message.RequestID, "disconnect", func(context.Context) error {
			return h.session.Disconnect()
		})

	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})

	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message.RequestID, "unknown message type: "+message.Type)
	}
}

// enqueueCommand queues a session operation behind the client's earlier
// ones. A full queue blocks the read loop until the worker catches up.
func (h *WebSocketHandler) enqueueCommand(client *Client, requestID, command string, run func(ctx context.Context) error) {
	select {
	case client.commands <- func() { h.executeCommand(client, requestID, command, run) }:
	case <-client.Done():
	}
}

// handleClientCommands runs the client's session operations one at a time
// so they reach the device in the order they were submitted
func (h *WebSocketHandler) handleClientCommands(client *Client) {
	for {
		select {
		case job := <-client.commands:
			job()
		case <-client.Done():
			return
		}
	}
}

// executeCommand runs a session operation and reports the outcome to the
// requesting client. The output itself reaches every client through the log.
func (h *WebSocketHandler) executeCommand(client *Client, requestID, command string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := run(ctx)

	data := map[string]interface{}{
		"command": command,
		"success": err == nil,
		"session": h.session.Info(),
	}
	if err != nil {
		data["error"] = err.Error()
		data["status"] = sessionErrorStatus(err)
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- messageBytes:
	case <-client.Done():
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// Close disconnects every WebSocket client
func (h *WebSocketHandler) Close() {
	h.connections.CloseAll()
}
