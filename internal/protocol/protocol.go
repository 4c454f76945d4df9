// internal/protocol/protocol.go
package protocol

import (
	"context"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol/cdc"
)

// Direction selects an endpoint direction
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// Transport is a byte pipe to one device. Implementations allow one Read and
// one Write in flight at a time; Close unblocks a pending Read.
type Transport interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication. Read returns io.EOF once the stream has completed.
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, data []byte) (int, error)

	// ClearHalt clears a stalled endpoint. Transports without endpoints
	// return nil.
	ClearHalt(dir Direction) error

	// Transport information
	Kind() model.TransportKind
	Describe() string
	Stats() model.TransportStats
}

// LineConfigurer is implemented by transports that own a CDC control interface
type LineConfigurer interface {
	SetLineCoding(ctx context.Context, lc cdc.LineCoding) error
	SetControlLineState(ctx context.Context, state cdc.ControlLineState) error
}

// SettingsReporter is implemented by transports that can describe their
// line or endpoint settings
type SettingsReporter interface {
	Settings() string
}
