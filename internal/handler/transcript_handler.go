// internal/handler/transcript_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/repository"
	"device-terminal/internal/utils"
)

// TranscriptReader reads archived session transcripts
type TranscriptReader interface {
	GetTranscript(ctx context.Context, sessionID uuid.UUID) ([]*model.TranscriptEntry, error)
	ListSessions(ctx context.Context, limit int) ([]*model.TranscriptSession, error)
}

// TranscriptHandler serves archived transcripts. A nil reader means the
// archive is disabled.
type TranscriptHandler struct {
	reader TranscriptReader
	logger *utils.ServiceLogger
}

// NewTranscriptHandler creates a new transcript handler
func NewTranscriptHandler(reader TranscriptReader, logger *zap.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		reader: reader,
		logger: utils.NewServiceLogger(logger, "transcript-handler"),
	}
}

// ListSessions lists archived sessions
// @Summary List archived sessions
// @Description List sessions with archived transcripts, newest first
// @Tags Transcripts
// @Produce json
// @Param limit query int false "Maximum sessions" default(50)
// @Success 200 {object} utils.APIResponse{data=[]model.TranscriptSession} "Sessions retrieved"
// @Failure 503 {object} utils.APIResponse "Archive disabled"
// @Router /transcripts [get]
func (h *TranscriptHandler) ListSessions(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		utils.ErrorResponse(c, http.StatusBadRequest, "limit must be between 1 and 500", err)
		return
	}

	sessions, err := h.reader.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", sessions)
}

// GetTranscript returns one archived transcript
// @Summary Get transcript
// @Description Get the archived log entries of one session in sequence order
// @Tags Transcripts
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} utils.APIResponse{data=[]model.TranscriptEntry} "Transcript retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid session ID"
// @Failure 404 {object} utils.APIResponse "Transcript not found"
// @Failure 503 {object} utils.APIResponse "Archive disabled"
// @Router /transcripts/{session_id} [get]
func (h *TranscriptHandler) GetTranscript(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session ID", err)
		return
	}

	entries, err := h.reader.GetTranscript(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrTranscriptNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Transcript not found", err)
			return
		}
		h.logger.Error("Failed to get transcript", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get transcript", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Transcript retrieved", entries)
}

func (h *TranscriptHandler) enabled(c *gin.Context) bool {
	if h.reader == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Transcript archive is disabled", nil)
		return false
	}
	return true
}
