// internal/model/session.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// TransportKind represents how the device is attached
type TransportKind string

const (
	TransportKindSerial TransportKind = "SERIAL"
	TransportKindUSB    TransportKind = "USB"
)

// SessionState represents the lifecycle state of the device session
type SessionState string

const (
	SessionStateClosed     SessionState = "CLOSED"
	SessionStateConnecting SessionState = "CONNECTING"
	SessionStateOpen       SessionState = "OPEN"
)

// TransportStats provides transport-level statistics
type TransportStats struct {
	BytesWritten int64     `json:"bytes_written"`
	BytesRead    int64     `json:"bytes_read"`
	ReadCount    int64     `json:"read_count"`
	WriteCount   int64     `json:"write_count"`
	ErrorCount   int64     `json:"error_count"`
	StallCount   int64     `json:"stall_count"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionInfo describes the current device session
type SessionInfo struct {
	ID               *uuid.UUID      `json:"id,omitempty"`
	State            SessionState    `json:"state"`
	Variant          string          `json:"variant"`
	Transport        TransportKind   `json:"transport,omitempty"`
	Device           string          `json:"device,omitempty"`
	Settings         string          `json:"settings,omitempty"`
	ControlInterface bool            `json:"control_interface"`
	OpenedAt         *time.Time      `json:"opened_at,omitempty"`
	Stats            *TransportStats `json:"stats,omitempty"`
}

// IsOpen checks if the session is currently open
func (s *SessionInfo) IsOpen() bool {
	return s.State == SessionStateOpen
}
