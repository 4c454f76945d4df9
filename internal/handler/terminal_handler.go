// internal/handler/terminal_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/terminal"
	"device-terminal/internal/utils"
)

// TerminalSession is the device session driven by the API
type TerminalSession interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(ctx context.Context, text string) error
	Info() model.SessionInfo
}

// LogSource exposes the terminal output
type LogSource interface {
	Since(seq uint64) []model.LogEntry
	Follow(ctx context.Context, seq uint64, fn func(model.LogEntry) bool)
}

// TerminalHandler handles device session requests
type TerminalHandler struct {
	session TerminalSession
	log     LogSource
	logger  *utils.ServiceLogger
}

// NewTerminalHandler creates a new terminal handler
func NewTerminalHandler(session TerminalSession, log LogSource, logger *zap.Logger) *TerminalHandler {
	return &TerminalHandler{
		session: session,
		log:     log,
		logger:  utils.NewServiceLogger(logger, "terminal-handler"),
	}
}

// GetSession returns the session state
// @Summary Get session
// @Description Get the device session state, variant and transport statistics
// @Tags Session
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.SessionInfo} "Session retrieved"
// @Router /session [get]
func (h *TerminalHandler) GetSession(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Session retrieved", h.session.Info())
}

// Connect opens the device session
// @Summary Connect
// @Description Select and open the configured device, negotiate the line and start reading
// @Tags Session
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.SessionInfo} "Connected"
// @Failure 404 {object} utils.APIResponse "No device selected"
// @Failure 409 {object} utils.APIResponse "Session already open"
// @Failure 502 {object} utils.APIResponse "Device could not be opened"
// @Router /session/connect [post]
func (h *TerminalHandler) Connect(c *gin.Context) {
	if err := h.session.Connect(c.Request.Context()); err != nil {
		h.logger.Warn("Connect failed", zap.Error(err))
		sessionErrorResponse(c, "Failed to connect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Connected", h.session.Info())
}

// Disconnect closes the device session
// @Summary Disconnect
// @Description Stop reading and close the device. Succeeds when no session is open.
// @Tags Session
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.SessionInfo} "Disconnected"
// @Router /session/disconnect [post]
func (h *TerminalHandler) Disconnect(c *gin.Context) {
	if err := h.session.Disconnect(); err != nil {
		h.logger.Error("Disconnect failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to disconnect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Disconnected", h.session.Info())
}

// Send writes one command to the device
// @Summary Send command
// @Description Send a command followed by CR LF
// @Tags Session
// @Accept json
// @Produce json
// @Param request body SendRequest true "Command"
// @Success 200 {object} utils.APIResponse "Command sent"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Port is not open"
// @Failure 502 {object} utils.APIResponse "Transfer failed"
// @Router /session/send [post]
func (h *TerminalHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"command": "command is required"})
		return
	}

	if err := h.session.Send(c.Request.Context(), *req.Command); err != nil {
		sessionErrorResponse(c, "Failed to send command", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command sent", gin.H{"command": *req.Command})
}

// GetLog returns terminal output entries
// @Summary Get log
// @Description Get terminal log entries with a sequence number greater than since
// @Tags Session
// @Produce json
// @Param since query int false "Last sequence number already seen" default(0)
// @Success 200 {object} utils.APIResponse{data=object{entries=[]model.LogEntry,last_seq=int}} "Log retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid since parameter"
// @Router /session/log [get]
func (h *TerminalHandler) GetLog(c *gin.Context) {
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid since parameter", err)
		return
	}

	entries := h.log.Since(since)
	lastSeq := since
	if len(entries) > 0 {
		lastSeq = entries[len(entries)-1].Seq
	}

	utils.SuccessResponse(c, http.StatusOK, "Log retrieved", gin.H{
		"entries":  entries,
		"last_seq": lastSeq,
	})
}

// SendRequest represents a command to send
type SendRequest struct {
	Command *string `json:"command" binding:"required"`
}

// sessionErrorResponse maps session errors onto HTTP statuses
func sessionErrorResponse(c *gin.Context, message string, err error) {
	utils.ErrorResponse(c, sessionErrorStatus(err), message, err)
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, terminal.ErrNotOpen), errors.Is(err, terminal.ErrAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrNotSelected):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrOpenFailed),
		errors.Is(err, terminal.ErrTransferStall),
		errors.Is(err, terminal.ErrTransferException):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
