// internal/model/device.go
package model

// DiscoveredDevice represents a device found by a scanner
type DiscoveredDevice struct {
	Transport    TransportKind `json:"transport"`
	Path         string        `json:"path,omitempty"`
	Bus          int           `json:"bus,omitempty"`
	Address      int           `json:"address,omitempty"`
	VendorID     string        `json:"vendor_id,omitempty"`
	ProductID    string        `json:"product_id,omitempty"`
	SerialNumber string        `json:"serial_number,omitempty"`
	Description  string        `json:"description,omitempty"`
	IsUSB        bool          `json:"is_usb"`
}
