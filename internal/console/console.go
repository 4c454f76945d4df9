// internal/console/console.go
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"device-terminal/internal/model"
)

// Session is the device session the console drives
type Session interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(ctx context.Context, text string) error
}

// LogSource is the output printed by the console
type LogSource interface {
	Since(seq uint64) []model.LogEntry
	Follow(ctx context.Context, seq uint64, fn func(model.LogEntry) bool)
}

// Console commands start with a colon so they never collide with device commands.
const (
	cmdQuit       = ":quit"
	cmdConnect    = ":connect"
	cmdDisconnect = ":disconnect"
	cmdHelp       = ":help"
)

// Console drives a device session from a line-oriented terminal. Every
// input line is sent to the device and the session log is printed.
type Console struct {
	session Session
	log     LogSource
	out     io.Writer
	logger  *zap.Logger

	mu      sync.Mutex // serializes writes to out
	lastSeq uint64
}

// New creates a console writing to out
func New(session Session, log LogSource, out io.Writer, logger *zap.Logger) *Console {
	return &Console{
		session: session,
		log:     log,
		out:     out,
		logger:  logger.Named("console"),
	}
}

// Run prints the log and sends every line read from in until in is
// exhausted, ":quit" is entered or ctx is cancelled. The session is
// disconnected before Run returns.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		c.log.Follow(ctx, 0, func(e model.LogEntry) bool {
			c.printEntry(e)
			return true
		})
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-readErr:
			break loop
		case line := <-lines:
			if !c.handle(ctx, line) {
				break loop
			}
		}
	}

	if derr := c.session.Disconnect(); derr != nil {
		c.logger.Warn("Disconnect failed", zap.Error(derr))
	}
	cancel()
	printer.Wait()

	// print what was logged while shutting down
	for _, e := range c.log.Since(c.lastSeq) {
		c.printEntry(e)
	}

	return err
}

// handle runs one input line and reports whether to keep reading
func (c *Console) handle(ctx context.Context, line string) bool {
	switch strings.TrimSpace(line) {
	case cmdQuit:
		return false
	case cmdConnect:
		// failures are already in the log
		_ = c.session.Connect(ctx)
	case cmdDisconnect:
		if err := c.session.Disconnect(); err != nil {
			c.logger.Warn("Disconnect failed", zap.Error(err))
		}
	case cmdHelp:
		c.print(fmt.Sprintf("%s  %s  %s  %s\n", cmdConnect, cmdDisconnect, cmdQuit, cmdHelp))
	default:
		if err := c.session.Send(ctx, line); err != nil {
			c.logger.Debug("Send failed", zap.Error(err))
		}
	}
	return true
}

func (c *Console) printEntry(e model.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Seq <= c.lastSeq {
		return
	}
	io.WriteString(c.out, e.Render())
	c.lastSeq = e.Seq
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, s)
}
