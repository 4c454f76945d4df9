// internal/protocol/serial/connection.go
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol"
)

// Connection represents a serial port connection
type Connection struct {
	config *Config
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  protocol.StatsRecorder
}

// Config represents serial port configuration
type Config struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    float64       `json:"stop_bits"`
	Parity      string        `json:"parity"`
	DTR         bool          `json:"dtr"`
	RTS         bool          `json:"rts"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// NewConnection creates a new serial connection
func NewConnection(config *Config, logger *zap.Logger) (*Connection, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("port is required")
	}

	return &Connection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}, nil
}

// Open opens the serial connection
func (c *Connection) Open(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isOpen {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	mode, err := buildMode(c.config)
	if err != nil {
		return err
	}

	port, err := serial.Open(c.config.Port, mode)
	if err != nil {
		c.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", c.config.Port, classify(err))
	}

	if c.config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	c.port = port
	c.isOpen = true

	c.logger.Info("Serial port opened successfully",
		zap.Int("baud_rate", mode.BaudRate),
		zap.Int("data_bits", mode.DataBits),
	)

	return nil
}

// Close closes the serial connection
func (c *Connection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return nil
	}

	// Close wakes a blocked Read with a PortClosed error
	if err := c.port.Close(); err != nil {
		c.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	c.isOpen = false

	c.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the connection is open
func (c *Connection) IsOpen() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.isOpen
}

// Read blocks until data arrives. A closed port ends the stream with io.EOF.
func (c *Connection) Read(ctx context.Context, buf []byte) (int, error) {
	port, err := c.activePort()
	if err != nil {
		return 0, err
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	n, err := port.Read(buf)
	if err != nil {
		if isClosed(err) {
			return n, io.EOF
		}
		c.stats.RecordError(false)
		c.logger.Error("Failed to read from serial port", zap.Error(err))
		return n, fmt.Errorf("failed to read from serial port: %w", err)
	}
	if n == 0 {
		// read timeout elapsed with nothing received
		return 0, nil
	}

	c.stats.RecordRead(n)
	c.logger.Debug("Data read from serial port", zap.Int("bytes_read", n))
	return n, nil
}

// Write writes data to the serial port
func (c *Connection) Write(ctx context.Context, data []byte) (int, error) {
	port, err := c.activePort()
	if err != nil {
		return 0, err
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	n, err := port.Write(data)
	if err != nil {
		c.stats.RecordError(false)
		c.logger.Error("Failed to write to serial port",
			zap.Error(err),
			zap.Int("bytes_to_write", len(data)),
		)
		if isClosed(err) {
			return n, protocol.ErrNotOpen
		}
		return n, fmt.Errorf("failed to write to serial port: %w", err)
	}

	c.stats.RecordWrite(n)
	c.logger.Debug("Data written to serial port",
		zap.Int("bytes_written", n),
		zap.Binary("data", data),
	)
	return n, nil
}

// ClearHalt is a no-op; serial ports have no endpoints to stall.
func (c *Connection) ClearHalt(protocol.Direction) error {
	return nil
}

// Kind returns the transport kind
func (c *Connection) Kind() model.TransportKind {
	return model.TransportKindSerial
}

// Describe returns the port name
func (c *Connection) Describe() string {
	return c.config.Port
}

// Stats returns transport statistics
func (c *Connection) Stats() model.TransportStats {
	return c.stats.Snapshot()
}

// Settings returns the line settings in the usual short form, e.g. 921600 8N1
func (c *Connection) Settings() string {
	parity := "N"
	if c.config.Parity != "" {
		parity = strings.ToUpper(c.config.Parity[:1])
	}
	return fmt.Sprintf("%d %d%s%g", c.config.BaudRate, c.config.DataBits, parity, c.config.StopBits)
}

func (c *Connection) activePort() (serial.Port, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if !c.isOpen || c.port == nil {
		return nil, protocol.ErrNotOpen
	}
	return c.port, nil
}

// buildMode translates the configuration into a serial.Mode
func buildMode(config *Config) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %v", config.StopBits)
	}

	switch config.Parity {
	case "", "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unsupported parity: %s", config.Parity)
	}

	if config.DTR || config.RTS {
		mode.InitialStatusBits = &serial.ModemOutputBits{
			DTR: config.DTR,
			RTS: config.RTS,
		}
	}

	return mode, nil
}

func isClosed(err error) bool {
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortClosed
}

// classify maps port errors onto the transport sentinels
func classify(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", protocol.ErrDeviceNotFound, err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", protocol.ErrPermissionDenied, err)
	default:
		return err
	}
}
