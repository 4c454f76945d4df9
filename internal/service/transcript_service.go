// internal/service/transcript_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-terminal/internal/config"
	"device-terminal/internal/model"
	"device-terminal/internal/repository"
	"device-terminal/internal/utils"
)

const pruneInterval = time.Hour

// LogFeed is the terminal output the archive follows
type LogFeed interface {
	Follow(ctx context.Context, seq uint64, fn func(model.LogEntry) bool)
}

// TranscriptService archives session log entries and serves them back
type TranscriptService struct {
	repo          repository.TranscriptRepository
	batchSize     int
	flushInterval time.Duration
	retention     time.Duration
	logger        *utils.ServiceLogger
	now           func() time.Time

	pending []*model.TranscriptEntry
}

// NewTranscriptService creates a new transcript service instance
func NewTranscriptService(repo repository.TranscriptRepository, cfg *config.DatabaseConfig, logger *zap.Logger) *TranscriptService {
	return &TranscriptService{
		repo:          repo,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		retention:     cfg.Retention,
		logger:        utils.NewServiceLogger(logger, "transcript-service"),
		now:           time.Now,
	}
}

// Run archives every log entry that belongs to a session until ctx is
// cancelled, then writes what is still pending. Entries logged before Run
// started are archived as well.
func (s *TranscriptService) Run(ctx context.Context, feed LogFeed) {
	entries := make(chan model.LogEntry, s.batchSize)
	go feed.Follow(ctx, 0, func(entry model.LogEntry) bool {
		select {
		case entries <- entry:
			return true
		case <-ctx.Done():
			return false
		}
	})

	flush := time.NewTicker(s.flushInterval)
	defer flush.Stop()

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	s.logger.Info("Transcript archive started",
		zap.Int("batch_size", s.batchSize),
		zap.Duration("flush_interval", s.flushInterval),
	)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			s.drain(shutdownCtx, entries)
			s.flush(shutdownCtx)
			done()
			s.logger.Info("Transcript archive stopped")
			return

		case entry := <-entries:
			s.add(ctx, entry)

		case <-flush.C:
			s.flush(ctx)

		case <-prune.C:
			s.Prune(ctx)
		}
	}
}

// drain archives entries already handed over by the follower
func (s *TranscriptService) drain(ctx context.Context, entries <-chan model.LogEntry) {
	for {
		select {
		case entry := <-entries:
			s.add(ctx, entry)
		default:
			return
		}
	}
}

func (s *TranscriptService) add(ctx context.Context, entry model.LogEntry) {
	sessionID, err := uuid.Parse(entry.SessionID)
	if err != nil {
		// Entries outside a session, such as a failed connect, are not archived.
		return
	}

	s.pending = append(s.pending, &model.TranscriptEntry{
		ID:        uuid.New(),
		SessionID: sessionID,
		Seq:       int64(entry.Seq),
		Kind:      entry.Kind,
		Text:      entry.Text,
		CreatedAt: entry.Timestamp,
	})

	if len(s.pending) >= s.batchSize {
		s.flush(ctx)
	}
}

func (s *TranscriptService) flush(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}

	if err := s.repo.CreateBatch(ctx, s.pending); err != nil {
		s.logger.Error("Failed to archive transcript entries",
			zap.Int("entries", len(s.pending)),
			zap.Error(err),
		)
	}
	s.pending = s.pending[:0]
}

// Prune removes entries older than the configured retention
func (s *TranscriptService) Prune(ctx context.Context) {
	if s.retention <= 0 {
		return
	}

	removed, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.Error("Failed to prune transcripts", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Pruned transcript entries", zap.Int64("removed", removed))
	}
}

// GetTranscript returns the archived entries of one session
func (s *TranscriptService) GetTranscript(ctx context.Context, sessionID uuid.UUID) ([]*model.TranscriptEntry, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

// ListSessions returns the most recent archived sessions
func (s *TranscriptService) ListSessions(ctx context.Context, limit int) ([]*model.TranscriptSession, error) {
	return s.repo.ListSessions(ctx, limit)
}
