// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"device-terminal/internal/model"
)

// Scanner implements USB device scanning
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for USB scanner
type Config struct {
	VendorID    uint16        `json:"vendor_id"`
	ProductID   uint16        `json:"product_id"`
	ScanTimeout time.Duration `json:"scan_timeout"`
	EnableDebug bool          `json:"enable_debug"`
}

// NewScanner creates a new USB scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 10 * time.Second
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "usb")),
		config: config,
	}
}

// GetScannerType returns scanner type identifier
func (s *Scanner) GetScannerType() string {
	return "usb"
}

// IsAvailable checks that libusb can be initialised
func (s *Scanner) IsAvailable() bool {
	testCtx := gousb.NewContext()
	defer testCtx.Close()
	return true
}

// Scan lists devices matching the vendor (and product) filter
func (s *Scanner) Scan(ctx context.Context) ([]*model.DiscoveredDevice, error) {
	startTime := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	if s.config.EnableDebug {
		usbCtx.Debug(3)
	}

	devices, err := usbCtx.OpenDevices(s.Matches)
	defer s.closeAllDevices(devices)
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	discovered := []*model.DiscoveredDevice{}
	for _, device := range devices {
		if scanCtx.Err() != nil {
			return discovered, scanCtx.Err()
		}
		if d := s.processDevice(device); d != nil {
			discovered = append(discovered, d)
		}
	}

	s.logger.Info("USB scan completed",
		zap.Int("devices_found", len(discovered)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return discovered, nil
}

// Matches is the OpenDevices filter
func (s *Scanner) Matches(desc *gousb.DeviceDesc) bool {
	if uint16(desc.Vendor) != s.config.VendorID {
		return false
	}
	return s.config.ProductID == 0 || uint16(desc.Product) == s.config.ProductID
}

func (s *Scanner) processDevice(device *gousb.Device) *model.DiscoveredDevice {
	desc := device.Desc
	if desc == nil {
		return nil
	}

	return &model.DiscoveredDevice{
		Transport:    model.TransportKindUSB,
		Path:         fmt.Sprintf("usb:%d:%d", desc.Bus, desc.Address),
		Bus:          desc.Bus,
		Address:      desc.Address,
		VendorID:     fmt.Sprintf("0x%04X", uint16(desc.Vendor)),
		ProductID:    fmt.Sprintf("0x%04X", uint16(desc.Product)),
		SerialNumber: s.stringDescriptor("serial", device.SerialNumber),
		Description:  s.describe(device),
		IsUSB:        true,
	}
}

func (s *Scanner) describe(device *gousb.Device) string {
	manufacturer := s.stringDescriptor("manufacturer", device.Manufacturer)
	product := s.stringDescriptor("product", device.Product)
	return strings.TrimSpace(manufacturer + " " + product)
}

// stringDescriptor reads an optional descriptor; devices without one return ""
func (s *Scanner) stringDescriptor(name string, read func() (string, error)) string {
	str, err := read()
	if err != nil {
		s.logger.Debug("Failed to get string descriptor", zap.String("descriptor", name), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(str)
}

func (s *Scanner) closeAllDevices(devices []*gousb.Device) {
	for i, device := range devices {
		if device == nil {
			continue
		}
		if err := device.Close(); err != nil {
			s.logger.Warn("Failed to close USB device",
				zap.Int("device_index", i),
				zap.Error(err),
			)
		}
	}
}
