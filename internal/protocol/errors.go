// internal/protocol/errors.go
package protocol

import "errors"

var (
	// ErrDeviceNotFound is returned when no device matches the selection
	ErrDeviceNotFound = errors.New("no matching device found")
	// ErrPermissionDenied is returned when the OS refuses access to the device
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotOpen is returned for I/O on a closed transport
	ErrNotOpen = errors.New("transport not open")
	// ErrStall is returned when an endpoint reports a halt condition
	ErrStall = errors.New("endpoint stalled")
	// ErrNoDevice is returned when the device disappeared
	ErrNoDevice = errors.New("device disconnected")
)
