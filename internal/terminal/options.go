// internal/terminal/options.go
package terminal

import (
	"fmt"
	"math"
	"time"

	"device-terminal/internal/config"
	"device-terminal/internal/protocol/cdc"
)

// Options controls how a session is opened and read
type Options struct {
	Variant     string
	ReadSize    int
	SettleDelay time.Duration

	// LineCoding is sent with ControlLines right after open. Nil skips the
	// CDC negotiation.
	LineCoding   *cdc.LineCoding
	ControlLines cdc.ControlLineState
}

// OptionsFromConfig derives session options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Variant:     cfg.Terminal.Transport,
		ReadSize:    cfg.Terminal.ReadSize,
		SettleDelay: cfg.Terminal.SettleDelay,
	}

	if cfg.Terminal.Transport != config.TransportUSBCDC {
		return opts, nil
	}

	line := cfg.USB.LineCoding
	if line.BaudRate <= 0 || int64(line.BaudRate) > math.MaxUint32 {
		return Options{}, fmt.Errorf("usb.line_coding: baud rate %d does not fit the line coding", line.BaudRate)
	}
	parity, err := cdc.ParseParity(line.Parity)
	if err != nil {
		return Options{}, fmt.Errorf("usb.line_coding: %w", err)
	}
	stopBits, err := cdc.ParseStopBits(line.StopBits)
	if err != nil {
		return Options{}, fmt.Errorf("usb.line_coding: %w", err)
	}

	lc := cdc.LineCoding{
		BaudRate: uint32(line.BaudRate),
		StopBits: stopBits,
		Parity:   parity,
		DataBits: uint8(line.DataBits),
	}
	if err := lc.Validate(); err != nil {
		return Options{}, fmt.Errorf("usb.line_coding: %w", err)
	}

	opts.LineCoding = &lc
	opts.ControlLines = cdc.ControlLineState{DTR: line.DTR, RTS: line.RTS}
	return opts, nil
}

func (o Options) deviceName() string {
	if o.Variant == config.TransportSerial || o.Variant == "" {
		return "serial port"
	}
	return o.Variant + " device"
}
