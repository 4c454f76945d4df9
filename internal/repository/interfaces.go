// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"device-terminal/internal/model"
)

// ErrTranscriptNotFound is returned when a session has no archived entries
var ErrTranscriptNotFound = errors.New("transcript not found")

// TranscriptRepository defines transcript data access operations
type TranscriptRepository interface {
	// Write operations
	CreateBatch(ctx context.Context, entries []*model.TranscriptEntry) error
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)

	// Read operations
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*model.TranscriptEntry, error)
	ListSessions(ctx context.Context, limit int) ([]*model.TranscriptSession, error)
}
