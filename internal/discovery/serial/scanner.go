// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"device-terminal/internal/model"
)

// PortLister returns the serial ports present on the system
type PortLister func() ([]*enumerator.PortDetails, error)

// Scanner implements serial port scanning
type Scanner struct {
	logger   *zap.Logger
	vendorID uint16
	list     PortLister
}

// NewScanner creates a new serial scanner. A zero vendorID lists every port.
func NewScanner(logger *zap.Logger, vendorID uint16) *Scanner {
	return &Scanner{
		logger:   logger.With(zap.String("scanner", "serial")),
		vendorID: vendorID,
		list:     enumerator.GetDetailedPortsList,
	}
}

// WithLister replaces the port enumerator
func (s *Scanner) WithLister(list PortLister) *Scanner {
	s.list = list
	return s
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists serial ports, keeping only the configured vendor when one is set
func (s *Scanner) Scan(ctx context.Context) ([]*model.DiscoveredDevice, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	devices := []*model.DiscoveredDevice{}
	for _, port := range ports {
		if s.vendorID != 0 && !MatchesVendor(port, s.vendorID) {
			s.logger.Debug("Skipping serial port", zap.String("port", port.Name), zap.String("vid", port.VID))
			continue
		}
		devices = append(devices, toDevice(port))
	}

	s.logger.Debug("Serial scan completed",
		zap.Int("ports_total", len(ports)),
		zap.Int("ports_matched", len(devices)),
	)
	return devices, nil
}

// FirstPort returns the name of the first matching USB serial port
func (s *Scanner) FirstPort(ctx context.Context) (string, bool, error) {
	devices, err := s.Scan(ctx)
	if err != nil {
		return "", false, err
	}
	for _, d := range devices {
		if d.IsUSB {
			return d.Path, true, nil
		}
	}
	return "", false, nil
}

// MatchesVendor reports whether a USB serial port carries the vendor id
func MatchesVendor(port *enumerator.PortDetails, vendorID uint16) bool {
	if !port.IsUSB || port.VID == "" {
		return false
	}
	vid, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(port.VID), "0x"), 16, 16)
	if err != nil {
		return false
	}
	return uint16(vid) == vendorID
}

func toDevice(port *enumerator.PortDetails) *model.DiscoveredDevice {
	device := &model.DiscoveredDevice{
		Transport:    model.TransportKindSerial,
		Path:         port.Name,
		SerialNumber: port.SerialNumber,
		Description:  port.Product,
		IsUSB:        port.IsUSB,
	}
	if port.IsUSB {
		device.VendorID = "0x" + strings.ToUpper(port.VID)
		device.ProductID = "0x" + strings.ToUpper(port.PID)
	}
	return device
}
