// internal/terminal/errors.go
package terminal

import "errors"

var (
	// ErrAlreadyOpen is returned by Connect while a session is open or opening
	ErrAlreadyOpen = errors.New("session already open")
	// ErrNotOpen is returned by Send without an open session
	ErrNotOpen = errors.New("port is not open")
	// ErrNotSelected is returned when no device was chosen or access was refused
	ErrNotSelected = errors.New("no device selected")
	// ErrOpenFailed is returned when the device was chosen but could not be opened
	ErrOpenFailed = errors.New("failed to open device")
	// ErrTransferStall is returned when a write hit a stalled endpoint
	ErrTransferStall = errors.New("transfer stalled")
	// ErrTransferException is returned for any other failed or short write
	ErrTransferException = errors.New("transfer failed")
)
