package usb

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMatches(t *testing.T) {
	s := NewScanner(zap.NewNop(), &Config{VendorID: 0x381F})

	assert.True(t, s.Matches(&gousb.DeviceDesc{Vendor: 0x381F, Product: 0x0001}))
	assert.True(t, s.Matches(&gousb.DeviceDesc{Vendor: 0x381F, Product: 0x1234}))
	assert.False(t, s.Matches(&gousb.DeviceDesc{Vendor: 0x0403, Product: 0x6001}))

	s = NewScanner(zap.NewNop(), &Config{VendorID: 0x381F, ProductID: 0x0001})
	assert.True(t, s.Matches(&gousb.DeviceDesc{Vendor: 0x381F, Product: 0x0001}))
	assert.False(t, s.Matches(&gousb.DeviceDesc{Vendor: 0x381F, Product: 0x0002}))
}

func TestNewScannerDefaults(t *testing.T) {
	s := NewScanner(zap.NewNop(), &Config{VendorID: 0x381F})
	assert.Equal(t, "usb", s.GetScannerType())
	assert.Positive(t, s.config.ScanTimeout)
}
