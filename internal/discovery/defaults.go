// internal/discovery/defaults.go
package discovery

import (
	"go.uber.org/zap"

	"device-terminal/internal/config"
	serialscan "device-terminal/internal/discovery/serial"
	usbscan "device-terminal/internal/discovery/usb"
)

// NewDefaultScannerManager registers the serial and USB scanners with the
// vendor filters from cfg. IDs are validated when the config is loaded.
func NewDefaultScannerManager(cfg *config.Config, logger *zap.Logger) *ScannerManager {
	sm := NewScannerManager(logger.With(zap.String("component", "discovery")))

	var serialVendor uint16
	if cfg.Serial.VendorID != "" {
		serialVendor, _ = config.ParseHexID(cfg.Serial.VendorID)
	}
	sm.RegisterScanner(serialscan.NewScanner(logger, serialVendor))

	usbVendor, _ := config.ParseHexID(cfg.USB.VendorID)
	var usbProduct uint16
	if cfg.USB.ProductID != "" {
		usbProduct, _ = config.ParseHexID(cfg.USB.ProductID)
	}
	sm.RegisterScanner(usbscan.NewScanner(logger, &usbscan.Config{
		VendorID:    usbVendor,
		ProductID:   usbProduct,
		EnableDebug: cfg.App.Debug,
	}))

	return sm
}
