// internal/discovery/selector.go
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"device-terminal/internal/config"
	serialscan "device-terminal/internal/discovery/serial"
	"device-terminal/internal/protocol"
	serialproto "device-terminal/internal/protocol/serial"
	usbproto "device-terminal/internal/protocol/usb"
)

// PortFinder picks a serial port when none is configured
type PortFinder interface {
	FirstPort(ctx context.Context) (string, bool, error)
}

// Selector builds the transport for the configured variant. It stands in
// for the interactive device chooser: the configured filters decide which
// device is used.
type Selector struct {
	cfg    *config.Config
	ports  PortFinder
	logger *zap.Logger
}

// NewSelector creates a selector for cfg
func NewSelector(cfg *config.Config, logger *zap.Logger) *Selector {
	var vendorID uint16
	if cfg.Serial.VendorID != "" {
		// validated on load
		vendorID, _ = config.ParseHexID(cfg.Serial.VendorID)
	}

	return &Selector{
		cfg:    cfg,
		ports:  serialscan.NewScanner(logger, vendorID),
		logger: logger.With(zap.String("component", "selector")),
	}
}

// WithPortFinder replaces the serial port finder
func (s *Selector) WithPortFinder(pf PortFinder) *Selector {
	s.ports = pf
	return s
}

// Select returns an unopened transport for the configured device
func (s *Selector) Select(ctx context.Context) (protocol.Transport, error) {
	switch s.cfg.Terminal.Transport {
	case config.TransportUSB, config.TransportUSBCDC:
		return s.selectUSB()
	default:
		return s.selectSerial(ctx)
	}
}

func (s *Selector) selectSerial(ctx context.Context) (protocol.Transport, error) {
	sc := s.cfg.Serial
	port := sc.Port

	if port == "" {
		found, ok, err := s.ports.FirstPort(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: no serial port matches the filter", protocol.ErrDeviceNotFound)
		}
		port = found
		s.logger.Info("Serial port selected", zap.String("port", port))
	}

	return serialproto.NewConnection(&serialproto.Config{
		Port:        port,
		BaudRate:    sc.BaudRate,
		DataBits:    sc.DataBits,
		StopBits:    sc.StopBits,
		Parity:      sc.Parity,
		DTR:         sc.DTR,
		RTS:         sc.RTS,
		ReadTimeout: sc.ReadTimeout,
	}, s.logger)
}

func (s *Selector) selectUSB() (protocol.Transport, error) {
	uc := s.cfg.USB

	vendorID, err := config.ParseHexID(uc.VendorID)
	if err != nil {
		return nil, err
	}
	var productID uint16
	if uc.ProductID != "" {
		if productID, err = config.ParseHexID(uc.ProductID); err != nil {
			return nil, err
		}
	}

	return usbproto.NewConnection(&usbproto.Config{
		VendorID:         vendorID,
		ProductID:        productID,
		Configuration:    uc.Configuration,
		Interfaces:       uc.Interfaces,
		InEndpoint:       uc.InEndpoint,
		OutEndpoint:      uc.OutEndpoint,
		ControlInterface: uc.ControlInterface,
		ControlTimeout:   uc.ControlTimeout,
		CDC:              s.cfg.Terminal.Transport == config.TransportUSBCDC,
	}, s.logger), nil
}
