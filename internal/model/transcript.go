// internal/model/transcript.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptEntry is an archived log entry
type TranscriptEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	Seq       int64     `json:"seq" db:"seq"`
	Kind      EntryKind `json:"kind" db:"kind"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TranscriptSession summarises one archived session
type TranscriptSession struct {
	SessionID  uuid.UUID `json:"session_id" db:"session_id"`
	EntryCount int64     `json:"entry_count" db:"entry_count"`
	FirstAt    time.Time `json:"first_at" db:"first_at"`
	LastAt     time.Time `json:"last_at" db:"last_at"`
}
