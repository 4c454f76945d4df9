// internal/repository/transcript_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-terminal/internal/database"
	"device-terminal/internal/model"
	"device-terminal/internal/utils"
)

// transcriptRepository implements TranscriptRepository interface
type transcriptRepository struct {
	db     *database.DB
	logger *utils.ServiceLogger
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *database.DB, logger *zap.Logger) TranscriptRepository {
	return &transcriptRepository{
		db:     db,
		logger: utils.NewServiceLogger(logger, "transcript-repository"),
	}
}

// CreateBatch inserts entries in one statement. Entries already archived
// for the same session and sequence number are skipped.
func (r *transcriptRepository) CreateBatch(ctx context.Context, entries []*model.TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query, args := buildInsert(entries)

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, args...)
	r.logger.LogDatabaseQuery("insert transcript_entries", nil, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to archive %d transcript entries: %w", len(entries), err)
	}
	return nil
}

// buildInsert renders a multi-row insert for the given entries
func buildInsert(entries []*model.TranscriptEntry) (string, []interface{}) {
	const columns = 6

	var sb strings.Builder
	sb.WriteString("INSERT INTO transcript_entries (id, session_id, seq, kind, text, created_at) VALUES ")

	args := make([]interface{}, 0, len(entries)*columns)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * columns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, e.ID, e.SessionID, e.Seq, string(e.Kind), e.Text, e.CreatedAt)
	}
	sb.WriteString(" ON CONFLICT (session_id, seq) DO NOTHING")

	return sb.String(), args
}

// ListBySession returns the entries of one session in sequence order
func (r *transcriptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*model.TranscriptEntry, error) {
	query := `
		SELECT id, session_id, seq, kind, text, created_at
		FROM transcript_entries
		WHERE session_id = $1
		ORDER BY seq ASC
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	r.logger.LogDatabaseQuery(query, []interface{}{sessionID}, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript: %w", err)
	}
	defer rows.Close()

	var entries []*model.TranscriptEntry
	for rows.Next() {
		entry := &model.TranscriptEntry{}
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Seq, &entry.Kind, &entry.Text, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcript: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, sessionID)
	}
	return entries, nil
}

// ListSessions summarises archived sessions, newest first
func (r *transcriptRepository) ListSessions(ctx context.Context, limit int) ([]*model.TranscriptSession, error) {
	query := `
		SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		FROM transcript_entries
		GROUP BY session_id
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, limit)
	r.logger.LogDatabaseQuery(query, []interface{}{limit}, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*model.TranscriptSession, 0)
	for rows.Next() {
		s := &model.TranscriptSession{}
		if err := rows.Scan(&s.SessionID, &s.EntryCount, &s.FirstAt, &s.LastAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteOlderThan removes entries created before the cutoff
func (r *transcriptRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM transcript_entries WHERE created_at < $1`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, olderThan)
	r.logger.LogDatabaseQuery(query, []interface{}{olderThan}, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old transcript entries: %w", err)
	}

	return result.RowsAffected()
}
