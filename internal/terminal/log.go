// internal/terminal/log.go
package terminal

import (
	"context"
	"strings"
	"sync"
	"time"

	"device-terminal/internal/model"
)

// Log is the append-only terminal output shared by every client.
// Followers are woken on append and read what they have not seen yet, so a
// slow follower never loses entries and never blocks Append.
type Log struct {
	mu       sync.RWMutex
	entries  []model.LogEntry
	watchers map[int]chan struct{}
	nextID   int
	now      func() time.Time
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{
		watchers: make(map[int]chan struct{}),
		now:      time.Now,
	}
}

// Append adds an entry and wakes followers
func (l *Log) Append(kind model.EntryKind, text, sessionID string) model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := model.LogEntry{
		Seq:       uint64(len(l.entries)) + 1,
		Kind:      kind,
		Text:      text,
		SessionID: sessionID,
		Timestamp: l.now(),
	}
	l.entries = append(l.entries, entry)

	for _, ch := range l.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// a wake-up is already pending
		}
	}
	return entry
}

// Since returns the entries with a sequence number greater than seq
func (l *Log) Since(seq uint64) []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.entries)) {
		return []model.LogEntry{}
	}
	out := make([]model.LogEntry, len(l.entries)-int(seq))
	copy(out, l.entries[seq:])
	return out
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// String renders the whole output area
func (l *Log) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sb strings.Builder
	for _, e := range l.entries {
		sb.WriteString(e.Render())
	}
	return sb.String()
}

// Follow calls fn for every entry after seq in sequence order, first the
// backlog and then entries as they are appended, until ctx is done or fn
// returns false.
func (l *Log) Follow(ctx context.Context, seq uint64, fn func(model.LogEntry) bool) {
	wake, stop := l.watch()
	defer stop()

	for {
		for _, e := range l.Since(seq) {
			if !fn(e) {
				return
			}
			seq = e.Seq
		}

		select {
		case <-ctx.Done():
			return
		case <-wake:
		}
	}
}

// watch registers a wake-up channel. The channel holds at most one pending
// signal; any append after a receive sends a new one.
func (l *Log) watch() (<-chan struct{}, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan struct{}, 1)
	l.watchers[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.watchers, id)
	}
}
