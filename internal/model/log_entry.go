// internal/model/log_entry.go
package model

import "time"

// EntryKind represents what produced a log entry
type EntryKind string

const (
	EntryKindData  EntryKind = "data"  // text received from the device
	EntryKindEcho  EntryKind = "echo"  // command sent to the device
	EntryKindInfo  EntryKind = "info"  // session lifecycle messages
	EntryKindError EntryKind = "error" // failures reported to the user
)

// LogEntry is one append-only fragment of the terminal output
type LogEntry struct {
	Seq       uint64    `json:"seq"`
	Kind      EntryKind `json:"kind"`
	Text      string    `json:"text"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Render returns the entry as it appears in the output area.
// Received data is shown verbatim, everything else is one line.
func (e LogEntry) Render() string {
	switch e.Kind {
	case EntryKindData:
		return e.Text
	case EntryKindEcho:
		return "> " + e.Text + "\n"
	default:
		return e.Text + "\n"
	}
}
