package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-terminal/internal/model"
)

func TestBuildInsert(t *testing.T) {
	session := uuid.New()
	now := time.Now()
	entries := []*model.TranscriptEntry{
		{ID: uuid.New(), SessionID: session, Seq: 1, Kind: model.EntryKindInfo, Text: "Connected to serial port", CreatedAt: now},
		{ID: uuid.New(), SessionID: session, Seq: 2, Kind: model.EntryKindEcho, Text: "AT", CreatedAt: now},
	}

	query, args := buildInsert(entries)

	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12)")
	assert.Contains(t, query, "ON CONFLICT (session_id, seq) DO NOTHING")
	require.Len(t, args, 12)
	assert.Equal(t, session, args[1])
	assert.Equal(t, int64(2), args[8])
	assert.Equal(t, "echo", args[9])
	assert.Equal(t, "AT", args[10])
}
