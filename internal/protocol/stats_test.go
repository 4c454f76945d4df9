package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsRecorder(t *testing.T) {
	var r StatsRecorder
	r.RecordRead(10)
	r.RecordRead(4)
	r.RecordWrite(4)
	r.RecordError(true)
	r.RecordError(false)

	s := r.Snapshot()
	assert.Equal(t, int64(2), s.ReadCount)
	assert.Equal(t, int64(14), s.BytesRead)
	assert.Equal(t, int64(1), s.WriteCount)
	assert.Equal(t, int64(4), s.BytesWritten)
	assert.Equal(t, int64(2), s.ErrorCount)
	assert.Equal(t, int64(1), s.StallCount)
	assert.False(t, s.LastActivity.IsZero())
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "in", DirectionIn.String())
	assert.Equal(t, "out", DirectionOut.String())
}
