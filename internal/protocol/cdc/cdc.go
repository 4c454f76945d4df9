// internal/protocol/cdc/cdc.go
package cdc

import (
	"encoding/binary"
	"fmt"
)

// CDC-ACM class request codes a host sends to configure a virtual serial line
const (
	RequestSetLineCoding       = 0x20
	RequestGetLineCoding       = 0x21
	RequestSetControlLineState = 0x22
	RequestSendBreak           = 0x23
)

// RequestTypeClassInterfaceOut is bmRequestType for a host-to-device,
// class-specific request addressed to an interface.
const RequestTypeClassInterfaceOut = 0x21

// LineCodingSize is the length of the SET_LINE_CODING data stage.
const LineCodingSize = 7

// StopBits is the bCharFormat field of the line coding.
type StopBits uint8

const (
	StopBits1   StopBits = 0
	StopBits1_5 StopBits = 1
	StopBits2   StopBits = 2
)

// Parity is the bParityType field of the line coding.
type Parity uint8

const (
	ParityNone  Parity = 0
	ParityOdd   Parity = 1
	ParityEven  Parity = 2
	ParityMark  Parity = 3
	ParitySpace Parity = 4
)

var parityNames = map[string]Parity{
	"none":  ParityNone,
	"odd":   ParityOdd,
	"even":  ParityEven,
	"mark":  ParityMark,
	"space": ParitySpace,
}

// ParseParity maps a parity name to its code.
func ParseParity(name string) (Parity, error) {
	p, ok := parityNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown parity %q", name)
	}
	return p, nil
}

// ParseStopBits maps a stop bit count (1, 1.5, 2) to its code.
func ParseStopBits(n float64) (StopBits, error) {
	switch n {
	case 1:
		return StopBits1, nil
	case 1.5:
		return StopBits1_5, nil
	case 2:
		return StopBits2, nil
	}
	return 0, fmt.Errorf("unsupported stop bits %v", n)
}

// LineCoding represents the serial line configuration.
type LineCoding struct {
	BaudRate uint32
	StopBits StopBits
	Parity   Parity
	DataBits uint8 // 5, 6, 7, 8 or 16
}

// Validate reports whether every field holds a value the class defines.
func (lc LineCoding) Validate() error {
	switch lc.DataBits {
	case 5, 6, 7, 8, 16:
	default:
		return fmt.Errorf("unsupported data bits %d", lc.DataBits)
	}
	if lc.StopBits > StopBits2 {
		return fmt.Errorf("unsupported stop bits code %d", lc.StopBits)
	}
	if lc.Parity > ParitySpace {
		return fmt.Errorf("unsupported parity code %d", lc.Parity)
	}
	return nil
}

// MarshalBinary encodes the 7-byte little-endian data stage:
// dwDTERate, bCharFormat, bParityType, bDataBits.
func (lc LineCoding) MarshalBinary() ([]byte, error) {
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, LineCodingSize)
	binary.LittleEndian.PutUint32(buf[0:4], lc.BaudRate)
	buf[4] = byte(lc.StopBits)
	buf[5] = byte(lc.Parity)
	buf[6] = lc.DataBits
	return buf, nil
}

// UnmarshalBinary decodes a data stage produced by MarshalBinary or by
// GET_LINE_CODING.
func (lc *LineCoding) UnmarshalBinary(data []byte) error {
	if len(data) != LineCodingSize {
		return fmt.Errorf("line coding must be %d bytes, got %d", LineCodingSize, len(data))
	}
	lc.BaudRate = binary.LittleEndian.Uint32(data[0:4])
	lc.StopBits = StopBits(data[4])
	lc.Parity = Parity(data[5])
	lc.DataBits = data[6]
	return lc.Validate()
}

// Control line bits of SET_CONTROL_LINE_STATE wValue.
const (
	ControlLineDTR = 1 << 0
	ControlLineRTS = 1 << 1
)

// ControlLineState holds the DTR and RTS signals.
type ControlLineState struct {
	DTR bool
	RTS bool
}

// Value packs the signals into the request wValue.
func (s ControlLineState) Value() uint16 {
	var v uint16
	if s.DTR {
		v |= ControlLineDTR
	}
	if s.RTS {
		v |= ControlLineRTS
	}
	return v
}

// Request describes one control transfer in the class-interface direction.
type Request struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Data        []byte
}

// SetLineCoding builds the SET_LINE_CODING request for the given control interface.
func SetLineCoding(iface uint16, lc LineCoding) (Request, error) {
	data, err := lc.MarshalBinary()
	if err != nil {
		return Request{}, err
	}
	return Request{
		RequestType: RequestTypeClassInterfaceOut,
		Request:     RequestSetLineCoding,
		Value:       0,
		Index:       iface,
		Data:        data,
	}, nil
}

// SetControlLineState builds the SET_CONTROL_LINE_STATE request.
func SetControlLineState(iface uint16, s ControlLineState) Request {
	return Request{
		RequestType: RequestTypeClassInterfaceOut,
		Request:     RequestSetControlLineState,
		Value:       s.Value(),
		Index:       iface,
	}
}
