package terminal

import (
	"context"
	"io"
	"sync"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol"
	"device-terminal/internal/protocol/cdc"
)

type readResult struct {
	data []byte
	err  error
}

// fakeTransport serves scripted reads and records everything written to it.
// Close unblocks a pending Read with io.EOF, like a serial port.
type fakeTransport struct {
	kind    model.TransportKind
	openErr error

	reads  chan readResult
	closed chan struct{}

	mu         sync.Mutex
	isOpen     bool
	closeCount int
	readCount  int
	writes     [][]byte
	writeErr   error
	shortWrite bool
	halts      []protocol.Direction
}

func newFakeTransport(kind model.TransportKind) *fakeTransport {
	return &fakeTransport{
		kind:   kind,
		reads:  make(chan readResult, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Open(context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.mu.Lock()
	f.isOpen = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	if f.isOpen {
		f.isOpen = false
		close(f.closed)
	}
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isOpen
}

func (f *fakeTransport) Read(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	f.readCount++
	f.mu.Unlock()

	select {
	case r := <-f.reads:
		return copy(buf, r.data), r.err
	case <-f.closed:
		return 0, io.EOF
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (f *fakeTransport) Write(_ context.Context, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.shortWrite {
		return len(data) - 1, nil
	}
	return len(data), nil
}

func (f *fakeTransport) ClearHalt(dir protocol.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halts = append(f.halts, dir)
	return nil
}

func (f *fakeTransport) Kind() model.TransportKind { return f.kind }
func (f *fakeTransport) Describe() string          { return "fake" }
func (f *fakeTransport) Stats() model.TransportStats {
	return model.TransportStats{}
}

func (f *fakeTransport) readCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCount
}

func (f *fakeTransport) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakeTransport) haltsCleared() []protocol.Direction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Direction(nil), f.halts...)
}

// fakeCDCTransport adds a control interface
type fakeCDCTransport struct {
	*fakeTransport

	lineErr      error
	lineCodings  []cdc.LineCoding
	controlLines []cdc.ControlLineState
}

func (f *fakeCDCTransport) Settings() string { return "config 1 cdc" }

func (f *fakeCDCTransport) SetLineCoding(_ context.Context, lc cdc.LineCoding) error {
	if f.lineErr != nil {
		return f.lineErr
	}
	f.lineCodings = append(f.lineCodings, lc)
	return nil
}

func (f *fakeCDCTransport) SetControlLineState(_ context.Context, s cdc.ControlLineState) error {
	f.controlLines = append(f.controlLines, s)
	return nil
}

type fakeSelector struct {
	transport protocol.Transport
	err       error
}

func (s fakeSelector) Select(context.Context) (protocol.Transport, error) {
	return s.transport, s.err
}
