package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-terminal/internal/model"
)

type stubScanner struct {
	kind      string
	available bool
	devices   []*model.DiscoveredDevice
	err       error
}

func (s *stubScanner) Scan(context.Context) ([]*model.DiscoveredDevice, error) {
	return s.devices, s.err
}
func (s *stubScanner) GetScannerType() string { return s.kind }
func (s *stubScanner) IsAvailable() bool      { return s.available }

func TestScanAllSkipsFailingScanners(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "usb", available: true, devices: []*model.DiscoveredDevice{{Transport: model.TransportKindUSB}}})
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, err: errors.New("boom")})
	sm.RegisterScanner(&stubScanner{kind: "other", available: false})

	devices, err := sm.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, model.TransportKindUSB, devices[0].Transport)

	assert.Equal(t, []string{"serial", "usb"}, sm.GetAvailableScanners())
}

func TestScanByType(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, devices: []*model.DiscoveredDevice{{Path: "/dev/ttyACM0"}}})
	sm.RegisterScanner(&stubScanner{kind: "usb", available: false})

	devices, err := sm.ScanByType(context.Background(), "serial")
	require.NoError(t, err)
	assert.Len(t, devices, 1)

	_, err = sm.ScanByType(context.Background(), "usb")
	assert.Error(t, err)
	_, err = sm.ScanByType(context.Background(), "tcp")
	assert.Error(t, err)
}
