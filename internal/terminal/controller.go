// internal/terminal/controller.go
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol"
	"device-terminal/internal/utils"
)

// Selector chooses the device for a new session and returns its unopened
// transport
type Selector interface {
	Select(ctx context.Context) (protocol.Transport, error)
}

// Controller owns the single device session
type Controller struct {
	selector Selector
	opts     Options
	log      *Log
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   model.SessionState
	session *session
	// abort cancels a connect that is still in progress
	abort context.CancelFunc
}

type session struct {
	id        uuid.UUID
	transport protocol.Transport
	cdc       bool
	openedAt  time.Time
	decoder   *Decoder
	logger    *utils.SessionLogger

	cancel    context.CancelFunc
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewController creates a controller with no open session
func NewController(selector Selector, opts Options, log *Log, logger *zap.Logger) *Controller {
	if opts.ReadSize <= 0 {
		opts.ReadSize = 64
	}
	return &Controller{
		selector: selector,
		opts:     opts,
		log:      log,
		logger:   logger.Named("terminal"),
		sleep:    sleepContext,
		state:    model.SessionStateClosed,
	}
}

// Log returns the terminal output log
func (c *Controller) Log() *Log {
	return c.log
}

// Connect selects and opens the device, negotiates the line when configured
// and starts the read loop
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.SessionStateClosed {
		c.mu.Unlock()
		c.log.Append(model.EntryKindError, "Error: "+ErrAlreadyOpen.Error(), "")
		return ErrAlreadyOpen
	}
	ctx, abort := context.WithCancel(ctx)
	defer abort()
	c.state = model.SessionStateConnecting
	c.abort = abort
	c.mu.Unlock()

	s, err := c.open(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = model.SessionStateClosed
		c.abort = nil
		c.mu.Unlock()

		c.logger.Error("Connect failed", zap.Error(err))
		c.log.Append(model.EntryKindError, "Error: "+err.Error(), "")
		return err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	c.mu.Lock()
	c.abort = nil
	if ctx.Err() != nil {
		// disconnected while the connect was finishing
		c.state = model.SessionStateClosed
		c.mu.Unlock()
		cancel()
		c.closeTransport(s.transport)
		err := fmt.Errorf("%w: %w", ErrOpenFailed, ctx.Err())
		c.log.Append(model.EntryKindError, "Error: "+err.Error(), "")
		return err
	}
	c.session = s
	c.state = model.SessionStateOpen
	c.mu.Unlock()

	s.logger.LogConnection("open", s.transport.Describe(), nil)
	c.log.Append(model.EntryKindInfo, "Connected to "+c.opts.deviceName(), s.id.String())

	go c.readLoop(readCtx, s)
	return nil
}

func (c *Controller) open(ctx context.Context) (*session, error) {
	transport, err := c.selector.Select(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSelected, err)
	}

	if err := transport.Open(ctx); err != nil {
		if errors.Is(err, protocol.ErrDeviceNotFound) || errors.Is(err, protocol.ErrPermissionDenied) {
			return nil, fmt.Errorf("%w: %w", ErrNotSelected, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	id := uuid.New()
	s := &session{
		id:        id,
		transport: transport,
		openedAt:  time.Now(),
		decoder:   NewDecoder(),
		logger:    utils.NewSessionLogger(c.logger, id.String(), c.opts.Variant),
		done:      make(chan struct{}),
	}

	if c.opts.LineCoding != nil {
		if err := c.negotiate(ctx, s); err != nil {
			c.closeTransport(transport)
			return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
		}
		s.cdc = true
	}

	if err := c.sleep(ctx, c.opts.SettleDelay); err != nil {
		c.closeTransport(transport)
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	return s, nil
}

// negotiate sends SET_LINE_CODING then SET_CONTROL_LINE_STATE
func (c *Controller) negotiate(ctx context.Context, s *session) error {
	lc, ok := s.transport.(protocol.LineConfigurer)
	if !ok {
		return fmt.Errorf("%s transport has no control interface", s.transport.Kind())
	}

	if err := lc.SetLineCoding(ctx, *c.opts.LineCoding); err != nil {
		return fmt.Errorf("set line coding: %w", err)
	}
	c.log.Append(model.EntryKindInfo, fmt.Sprintf("Set baud rate to %d", c.opts.LineCoding.BaudRate), s.id.String())

	lines := c.opts.ControlLines
	if err := lc.SetControlLineState(ctx, lines); err != nil {
		return fmt.Errorf("set control line state: %w", err)
	}
	c.log.Append(model.EntryKindInfo, fmt.Sprintf("Set DTR/RTS to DTR:%t, RTS:%t", lines.DTR, lines.RTS), s.id.String())
	return nil
}

// Send writes text followed by CR LF as one transfer
func (c *Controller) Send(ctx context.Context, text string) error {
	s := c.current()
	if s == nil {
		c.log.Append(model.EntryKindError, "Error: Port is not open.", "")
		return ErrNotOpen
	}
	sid := s.id.String()
	data := FrameCommand(text)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.transport.Write(ctx, data)
	s.logger.LogTransfer(protocol.DirectionOut.String(), n, err)
	if err != nil {
		if errors.Is(err, protocol.ErrStall) {
			c.log.Append(model.EntryKindError, "Write Error: Endpoint stalled. Clearing halt...", sid)
			if cerr := s.transport.ClearHalt(protocol.DirectionOut); cerr != nil {
				s.logger.Warn("Failed to clear OUT halt", zap.Error(cerr))
				c.log.Append(model.EntryKindError, "Clear Halt Error: "+cerr.Error(), sid)
			}
			return fmt.Errorf("%w: %w", ErrTransferStall, err)
		}

		c.log.Append(model.EntryKindError, c.writeErrorText(s, err), sid)
		return fmt.Errorf("%w: %w", ErrTransferException, err)
	}

	if n != len(data) {
		msg := fmt.Sprintf("Write Error: sent %d of %d bytes", n, len(data))
		c.log.Append(model.EntryKindError, msg, sid)
		return fmt.Errorf("%w: short write (%d of %d bytes)", ErrTransferException, n, len(data))
	}

	c.log.Append(model.EntryKindEcho, text, sid)
	return nil
}

func (c *Controller) writeErrorText(s *session, err error) string {
	if s.transport.Kind() == model.TransportKindSerial {
		return "Error writing data: " + err.Error()
	}
	return "Write Exception: " + err.Error()
}

// Disconnect stops the read loop and closes the transport. It is a no-op
// without a session.
// A connect still in progress is cancelled and closes its own transport.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.abort != nil {
		c.abort()
	}
	c.mu.Unlock()

	s := c.current()
	if s == nil {
		return nil
	}

	closed := c.teardown(s)
	<-s.done

	if closed {
		s.logger.LogConnection("close", s.transport.Describe(), nil)
		c.log.Append(model.EntryKindInfo, "Disconnected from "+c.opts.deviceName(), s.id.String())
	}
	return nil
}

// Close disconnects any open session
func (c *Controller) Close() error {
	return c.Disconnect()
}

// State returns the session lifecycle state
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Info describes the current session
func (c *Controller) Info() model.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := model.SessionInfo{
		State:   c.state,
		Variant: c.opts.Variant,
	}
	if s := c.session; s != nil {
		id := s.id
		openedAt := s.openedAt
		stats := s.transport.Stats()
		info.ID = &id
		info.Transport = s.transport.Kind()
		info.Device = s.transport.Describe()
		if r, ok := s.transport.(protocol.SettingsReporter); ok {
			info.Settings = r.Settings()
		}
		info.ControlInterface = s.cdc
		info.OpenedAt = &openedAt
		info.Stats = &stats
	}
	return info
}

func (c *Controller) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// readLoop keeps exactly one read outstanding until the session ends
func (c *Controller) readLoop(ctx context.Context, s *session) {
	defer close(s.done)

	sid := s.id.String()
	buf := make([]byte, c.opts.ReadSize)

	// a transfer error that keeps repeating is logged once and retried
	// with a growing delay
	lastErr := ""
	repeats := 0

	for ctx.Err() == nil {
		n, err := s.transport.Read(ctx, buf)
		if n > 0 || err != nil {
			s.logger.LogTransfer(protocol.DirectionIn.String(), n, err)
		}
		if n > 0 {
			c.appendData(s, s.decoder.Decode(buf[:n]))
		}
		if err == nil {
			lastErr, repeats = "", 0
			continue
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case errors.Is(err, io.EOF):
			c.appendData(s, s.decoder.Flush())
			c.endSession(s, "Device closed the connection")
			return

		case errors.Is(err, protocol.ErrStall):
			c.log.Append(model.EntryKindError, "Read Error: "+err.Error(), sid)
			c.clearReadStall(s)
			lastErr, repeats = "", 0

		case errors.Is(err, protocol.ErrNoDevice), errors.Is(err, protocol.ErrNotOpen):
			c.log.Append(model.EntryKindError, "Read Error: "+err.Error(), sid)
			c.endSession(s, "Device disconnected")
			return

		case s.transport.Kind() == model.TransportKindSerial:
			c.log.Append(model.EntryKindError, "Error reading data: "+err.Error(), sid)
			c.endSession(s, "")
			return

		default:
			if err.Error() != lastErr {
				lastErr, repeats = err.Error(), 0
				c.log.Append(model.EntryKindError, "Read Error: "+lastErr, sid)
				continue
			}
			repeats++
			if c.sleep(ctx, readRetryDelay(repeats)) != nil {
				return
			}
		}
	}
}

// readRetryDelay doubles from 10ms per repeated read error up to one second
func readRetryDelay(repeats int) time.Duration {
	if repeats > 7 {
		return time.Second
	}
	return 10 * time.Millisecond << (repeats - 1)
}

// clearReadStall clears the IN halt, then the OUT halt
func (c *Controller) clearReadStall(s *session) {
	sid := s.id.String()
	c.log.Append(model.EntryKindInfo, "Clearing endpoint halt...", sid)

	if err := s.transport.ClearHalt(protocol.DirectionIn); err != nil {
		s.logger.Warn("Failed to clear IN halt", zap.Error(err))
		c.log.Append(model.EntryKindError, "Clear Halt Error: "+err.Error(), sid)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.transport.ClearHalt(protocol.DirectionOut); err != nil {
		s.logger.Warn("Failed to clear OUT halt", zap.Error(err))
		c.log.Append(model.EntryKindError, "Clear Halt Error: "+err.Error(), sid)
	}
}

func (c *Controller) appendData(s *session, text string) {
	if text != "" {
		c.log.Append(model.EntryKindData, text, s.id.String())
	}
}

// endSession is called by the read loop when the stream can not continue
func (c *Controller) endSession(s *session, reason string) {
	if !c.teardown(s) {
		return
	}
	sid := s.id.String()
	s.logger.Info("Session ended by device", zap.String("reason", reason))
	if reason != "" {
		c.log.Append(model.EntryKindInfo, reason, sid)
	}
	c.log.Append(model.EntryKindInfo, "Disconnected from "+c.opts.deviceName(), sid)
}

// teardown runs the close sequence once per session and reports whether
// this call ran it
func (c *Controller) teardown(s *session) bool {
	ran := false
	s.closeOnce.Do(func() {
		ran = true
		s.cancel()
		c.closeTransport(s.transport)
	})

	c.mu.Lock()
	if c.session == s {
		c.session = nil
		c.state = model.SessionStateClosed
	}
	c.mu.Unlock()
	return ran
}

func (c *Controller) closeTransport(t protocol.Transport) {
	if err := t.Close(); err != nil {
		c.logger.Warn("Failed to close transport", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
