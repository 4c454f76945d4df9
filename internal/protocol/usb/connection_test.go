package usb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/protocol"
	"device-terminal/internal/protocol/cdc"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{gousb.TransferStall, protocol.ErrStall},
		{gousb.ErrorPipe, protocol.ErrStall},
		{gousb.TransferNoDevice, protocol.ErrNoDevice},
		{gousb.ErrorNoDevice, protocol.ErrNoDevice},
		{gousb.ErrorAccess, protocol.ErrPermissionDenied},
		{gousb.ErrorNotFound, protocol.ErrDeviceNotFound},
		{fmt.Errorf("wrapped: %w", gousb.TransferStall), protocol.ErrStall},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, classify(tt.in), tt.want, "classify(%v)", tt.in)
	}

	plain := errors.New("timeout")
	assert.Equal(t, plain, classify(plain))
}

func TestClosedConnection(t *testing.T) {
	conn := NewConnection(&Config{VendorID: 0x381F, InEndpoint: 1, OutEndpoint: 2}, zap.NewNop())

	assert.False(t, conn.IsOpen())
	assert.Equal(t, model.TransportKindUSB, conn.Kind())
	assert.Equal(t, "381F:0000", conn.Describe())

	_, err := conn.Read(context.Background(), make([]byte, 64))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	_, err = conn.Write(context.Background(), []byte("AT\r\n"))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	assert.ErrorIs(t, conn.ClearHalt(protocol.DirectionOut), protocol.ErrNotOpen)
	assert.NoError(t, conn.Close())
}

func TestControlRequiresCDC(t *testing.T) {
	conn := NewConnection(&Config{VendorID: 0x381F}, zap.NewNop())
	err := conn.SetControlLineState(context.Background(), cdc.ControlLineState{DTR: true})
	assert.ErrorIs(t, err, ErrNoControlInterface)

	conn = NewConnection(&Config{VendorID: 0x381F, CDC: true}, zap.NewNop())
	err = conn.SetControlLineState(context.Background(), cdc.ControlLineState{DTR: true})
	assert.ErrorIs(t, err, protocol.ErrNotOpen)

	err = conn.SetLineCoding(context.Background(), cdc.LineCoding{BaudRate: 115200, DataBits: 9})
	assert.Error(t, err)
}
