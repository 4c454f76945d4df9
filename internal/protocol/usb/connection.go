// internal/protocol/usb/connection.go
package usb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol"
	"device-terminal/internal/protocol/cdc"
)

// Standard request used to clear an endpoint halt
const (
	requestClearFeature = 0x01
	featureEndpointHalt = 0x00
)

// ErrNoControlInterface is returned for class requests on a plain bulk device
var ErrNoControlInterface = errors.New("device has no CDC control interface")

// Config represents USB connection configuration
type Config struct {
	VendorID         uint16        `json:"vendor_id"`
	ProductID        uint16        `json:"product_id"` // 0 matches any product
	Configuration    int           `json:"configuration"`
	Interfaces       []int         `json:"interfaces"`
	InEndpoint       int           `json:"in_endpoint"`
	OutEndpoint      int           `json:"out_endpoint"`
	ControlInterface int           `json:"control_interface"`
	ControlTimeout   time.Duration `json:"control_timeout"`
	CDC              bool          `json:"cdc"`
}

// Connection implements protocol.Transport over bulk endpoints
type Connection struct {
	config *Config
	logger *zap.Logger

	mutex    sync.RWMutex
	usbCtx   *gousb.Context
	device   *gousb.Device
	usbCfg   *gousb.Config
	intfs    []*gousb.Interface
	inEndpt  *gousb.InEndpoint
	outEndpt *gousb.OutEndpoint
	isOpen   bool

	// lifetime is cancelled by Close so pending transfers return
	lifetime context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup

	stats protocol.StatsRecorder
}

// NewConnection creates a new USB connection
func NewConnection(config *Config, logger *zap.Logger) *Connection {
	return &Connection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", fmt.Sprintf("0x%04X", config.VendorID)),
			zap.Bool("cdc", config.CDC),
		),
	}
}

// Open finds the device, selects the configuration and claims the interfaces
func (uc *Connection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	uc.logger.Info("Opening USB connection",
		zap.Int("configuration", uc.config.Configuration),
		zap.Ints("interfaces", uc.config.Interfaces),
	)

	uc.usbCtx = gousb.NewContext()

	device, err := uc.findAndOpenDevice()
	if err != nil {
		uc.releaseLocked()
		return err
	}
	uc.device = device

	if uc.config.ControlTimeout > 0 {
		device.ControlTimeout = uc.config.ControlTimeout
	}

	// Kernel drivers such as cdc_acm hold the interfaces otherwise
	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Auto detach not supported", zap.Error(err))
	}

	usbCfg, err := device.Config(uc.config.Configuration)
	if err != nil {
		uc.releaseLocked()
		return fmt.Errorf("failed to select configuration %d: %w", uc.config.Configuration, classify(err))
	}
	uc.usbCfg = usbCfg

	for _, num := range uc.config.Interfaces {
		intf, err := usbCfg.Interface(num, 0)
		if err != nil {
			uc.releaseLocked()
			return fmt.Errorf("failed to claim interface %d: %w", num, classify(err))
		}
		uc.intfs = append(uc.intfs, intf)
	}

	inEndpt, err := uc.findInEndpoint(uc.config.InEndpoint)
	if err != nil {
		uc.releaseLocked()
		return err
	}
	outEndpt, err := uc.findOutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		uc.releaseLocked()
		return err
	}

	uc.inEndpt = inEndpt
	uc.outEndpt = outEndpt
	uc.lifetime, uc.stop = context.WithCancel(context.Background())
	uc.isOpen = true

	uc.logger.Info("USB connection opened successfully",
		zap.String("in_endpoint", inEndpt.Desc.Address.String()),
		zap.String("out_endpoint", outEndpt.Desc.Address.String()),
	)
	return nil
}

// Close cancels pending transfers, then releases interfaces and the device
func (uc *Connection) Close() error {
	uc.mutex.Lock()
	if !uc.isOpen {
		uc.mutex.Unlock()
		return nil
	}
	uc.isOpen = false
	uc.stop()
	uc.mutex.Unlock()

	uc.inflight.Wait()

	uc.mutex.Lock()
	defer uc.mutex.Unlock()
	uc.releaseLocked()

	uc.logger.Info("USB connection closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (uc *Connection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen
}

// Read performs one bulk IN transfer of up to len(buf) bytes
func (uc *Connection) Read(ctx context.Context, buf []byte) (int, error) {
	uc.mutex.RLock()
	if !uc.isOpen {
		uc.mutex.RUnlock()
		return 0, protocol.ErrNotOpen
	}
	inEndpt, lifetime := uc.inEndpt, uc.lifetime
	uc.inflight.Add(1)
	uc.mutex.RUnlock()
	defer uc.inflight.Done()

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(lifetime, cancel)
	defer stop()

	n, err := inEndpt.ReadContext(readCtx, buf)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if lifetime.Err() != nil {
			return n, protocol.ErrNotOpen
		}
		err = classify(err)
		uc.stats.RecordError(errors.Is(err, protocol.ErrStall))
		uc.logger.Debug("USB read failed", zap.Error(err))
		return n, fmt.Errorf("failed to read from USB device: %w", err)
	}

	uc.stats.RecordRead(n)
	return n, nil
}

// Write performs one bulk OUT transfer
func (uc *Connection) Write(ctx context.Context, data []byte) (int, error) {
	uc.mutex.RLock()
	if !uc.isOpen {
		uc.mutex.RUnlock()
		return 0, protocol.ErrNotOpen
	}
	outEndpt, lifetime := uc.outEndpt, uc.lifetime
	uc.inflight.Add(1)
	uc.mutex.RUnlock()
	defer uc.inflight.Done()

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(lifetime, cancel)
	defer stop()

	n, err := outEndpt.WriteContext(writeCtx, data)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		err = classify(err)
		uc.stats.RecordError(errors.Is(err, protocol.ErrStall))
		uc.logger.Error("USB write failed", zap.Error(err))
		return n, fmt.Errorf("failed to write to USB device: %w", err)
	}

	uc.stats.RecordWrite(n)
	uc.logger.Debug("USB write completed", zap.Int("bytes", n))
	return n, nil
}

// ClearHalt sends CLEAR_FEATURE(ENDPOINT_HALT) for the data endpoint in dir
func (uc *Connection) ClearHalt(dir protocol.Direction) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen {
		return protocol.ErrNotOpen
	}

	var addr gousb.EndpointAddress
	if dir == protocol.DirectionIn {
		addr = uc.inEndpt.Desc.Address
	} else {
		addr = uc.outEndpt.Desc.Address
	}

	_, err := uc.device.Control(
		gousb.ControlOut|gousb.ControlStandard|gousb.ControlEndpoint,
		requestClearFeature, featureEndpointHalt, uint16(addr), nil,
	)
	if err != nil {
		return fmt.Errorf("failed to clear halt on endpoint %s: %w", addr, classify(err))
	}

	uc.logger.Info("Endpoint halt cleared", zap.String("endpoint", addr.String()))
	return nil
}

// SetLineCoding sends SET_LINE_CODING to the control interface
func (uc *Connection) SetLineCoding(ctx context.Context, lc cdc.LineCoding) error {
	req, err := cdc.SetLineCoding(uint16(uc.config.ControlInterface), lc)
	if err != nil {
		return err
	}
	return uc.control(ctx, req)
}

// SetControlLineState sends SET_CONTROL_LINE_STATE to the control interface
func (uc *Connection) SetControlLineState(ctx context.Context, state cdc.ControlLineState) error {
	return uc.control(ctx, cdc.SetControlLineState(uint16(uc.config.ControlInterface), state))
}

func (uc *Connection) control(ctx context.Context, req cdc.Request) error {
	if !uc.config.CDC {
		return ErrNoControlInterface
	}

	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen {
		return protocol.ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := uc.device.Control(req.RequestType, req.Request, req.Value, req.Index, req.Data)
	if err != nil {
		return fmt.Errorf("control request 0x%02X failed: %w", req.Request, classify(err))
	}
	if n != len(req.Data) {
		return fmt.Errorf("control request 0x%02X: sent %d of %d bytes", req.Request, n, len(req.Data))
	}

	uc.logger.Debug("Control request sent",
		zap.Uint8("request", req.Request),
		zap.Uint16("value", req.Value),
		zap.Uint16("index", req.Index),
	)
	return nil
}

// Kind returns the transport kind
func (uc *Connection) Kind() model.TransportKind {
	return model.TransportKindUSB
}

// Describe returns the vendor and product of the matched device
func (uc *Connection) Describe() string {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	if uc.device != nil && uc.device.Desc != nil {
		d := uc.device.Desc
		return fmt.Sprintf("%04X:%04X bus %d addr %d", uint16(d.Vendor), uint16(d.Product), d.Bus, d.Address)
	}
	return fmt.Sprintf("%04X:%04X", uc.config.VendorID, uc.config.ProductID)
}

// Stats returns transport statistics
func (uc *Connection) Stats() model.TransportStats {
	return uc.stats.Snapshot()
}

// Settings returns the configuration, interfaces and endpoints in use
func (uc *Connection) Settings() string {
	settings := fmt.Sprintf("config %d interfaces %v in %d out %d",
		uc.config.Configuration, uc.config.Interfaces, uc.config.InEndpoint, uc.config.OutEndpoint)
	if uc.config.CDC {
		settings += fmt.Sprintf(" cdc control %d", uc.config.ControlInterface)
	}
	return settings
}

// findAndOpenDevice opens the first device matching the vendor (and product) id
func (uc *Connection) findAndOpenDevice() (*gousb.Device, error) {
	vendorID := gousb.ID(uc.config.VendorID)
	productID := gousb.ID(uc.config.ProductID)

	devices, err := uc.usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != vendorID {
			return false
		}
		return uc.config.ProductID == 0 || desc.Product == productID
	})

	if len(devices) == 0 {
		if err != nil {
			return nil, fmt.Errorf("failed to open USB device: %w", classify(err))
		}
		return nil, fmt.Errorf("%w (VID: %04X)", protocol.ErrDeviceNotFound, uc.config.VendorID)
	}

	if len(devices) > 1 {
		for i := 1; i < len(devices); i++ {
			devices[i].Close()
		}
		uc.logger.Warn("Multiple matching USB devices found, using first one")
	}

	return devices[0], nil
}

func (uc *Connection) findInEndpoint(num int) (*gousb.InEndpoint, error) {
	for _, intf := range uc.intfs {
		if ep, err := intf.InEndpoint(num); err == nil {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("IN endpoint %d not found on claimed interfaces", num)
}

func (uc *Connection) findOutEndpoint(num int) (*gousb.OutEndpoint, error) {
	for _, intf := range uc.intfs {
		if ep, err := intf.OutEndpoint(num); err == nil {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("OUT endpoint %d not found on claimed interfaces", num)
}

// releaseLocked frees everything Open acquired. Caller holds the mutex.
func (uc *Connection) releaseLocked() {
	for i := len(uc.intfs) - 1; i >= 0; i-- {
		uc.intfs[i].Close()
	}
	uc.intfs = nil

	if uc.usbCfg != nil {
		if err := uc.usbCfg.Close(); err != nil {
			uc.logger.Warn("Failed to release configuration", zap.Error(err))
		}
		uc.usbCfg = nil
	}

	if uc.device != nil {
		if err := uc.device.Close(); err != nil {
			uc.logger.Warn("Failed to close USB device", zap.Error(err))
		}
		uc.device = nil
	}

	if uc.usbCtx != nil {
		if err := uc.usbCtx.Close(); err != nil {
			uc.logger.Warn("Failed to close USB context", zap.Error(err))
		}
		uc.usbCtx = nil
	}

	uc.inEndpt = nil
	uc.outEndpt = nil
}

// classify maps libusb errors onto the transport sentinels
func classify(err error) error {
	switch {
	case errors.Is(err, gousb.TransferStall), errors.Is(err, gousb.ErrorPipe):
		return fmt.Errorf("%w: %v", protocol.ErrStall, err)
	case errors.Is(err, gousb.TransferNoDevice), errors.Is(err, gousb.ErrorNoDevice):
		return fmt.Errorf("%w: %v", protocol.ErrNoDevice, err)
	case errors.Is(err, gousb.ErrorAccess):
		return fmt.Errorf("%w: %v", protocol.ErrPermissionDenied, err)
	case errors.Is(err, gousb.ErrorNotFound):
		return fmt.Errorf("%w: %v", protocol.ErrDeviceNotFound, err)
	default:
		return err
	}
}
