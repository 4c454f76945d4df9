// internal/protocol/stats.go
package protocol

import (
	"sync"
	"time"

	"device-terminal/internal/model"
)

// StatsRecorder accumulates transport statistics. Safe for concurrent use.
type StatsRecorder struct {
	mu    sync.Mutex
	stats model.TransportStats
}

// RecordRead records one completed read
func (r *StatsRecorder) RecordRead(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.ReadCount++
	r.stats.BytesRead += int64(n)
	r.stats.LastActivity = time.Now()
}

// RecordWrite records one completed write
func (r *StatsRecorder) RecordWrite(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.WriteCount++
	r.stats.BytesWritten += int64(n)
	r.stats.LastActivity = time.Now()
}

// RecordError records a failed transfer
func (r *StatsRecorder) RecordError(stall bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.ErrorCount++
	if stall {
		r.stats.StallCount++
	}
}

// Snapshot returns a copy of the current statistics
func (r *StatsRecorder) Snapshot() model.TransportStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
