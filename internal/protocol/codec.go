// internal/protocol/codec.go
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goburrow/modbus"
)

const (
	headerSize = 7
	maxADU     = 260

	// MaxQuantity is the register limit of one read holding registers request.
	MaxQuantity = 125
)

var (
	ErrQuantity = errors.New("protocol: quantity out of range")
	ErrFrame    = errors.New("protocol: malformed frame")
	ErrMismatch = errors.New("protocol: response does not match request")
)

// Request is one encoded read holding registers frame.
type Request struct {
	Unit     uint8
	Address  uint16
	Quantity uint16
	ADU      []byte
}

// Exception is a device exception response.
type Exception struct {
	Err *modbus.ModbusError
}

func (e *Exception) Error() string { return e.Err.Error() }
func (e *Exception) Unwrap() error { return e.Err }
func (e *Exception) Code() int     { return int(e.Err.ExceptionCode) }

// Codec frames register reads in Modbus TCP.
//
// One codec serves the whole fleet so transaction ids stay unique across
// sessions. The unit id is per request.
type Codec struct {
	mu sync.Mutex
	h  *modbus.TCPClientHandler
}

func NewCodec() *Codec {
	// The handler is used as a packager only; it never dials.
	return &Codec{h: modbus.NewTCPClientHandler("")}
}

// EncodeRead builds a read holding registers request.
func (c *Codec) EncodeRead(unit uint8, address, quantity uint16) (Request, error) {
	if quantity == 0 || quantity > MaxQuantity {
		return Request{}, fmt.Errorf("%w: %d", ErrQuantity, quantity)
	}

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], quantity)

	pdu := &modbus.ProtocolDataUnit{
		FunctionCode: modbus.FuncCodeReadHoldingRegisters,
		Data:         data,
	}

	c.mu.Lock()
	c.h.SlaveId = unit
	adu, err := c.h.Encode(pdu)
	c.mu.Unlock()
	if err != nil {
		return Request{}, err
	}

	return Request{Unit: unit, Address: address, Quantity: quantity, ADU: adu}, nil
}

// ReadFrame reads exactly one MBAP-framed ADU from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(header[4:6]))
	if length < 2 || headerSize+length-1 > maxADU {
		return nil, fmt.Errorf("%w: length %d", ErrFrame, length)
	}

	adu := make([]byte, headerSize+length-1)
	copy(adu, header)
	if _, err := io.ReadFull(r, adu[headerSize:]); err != nil {
		return nil, err
	}
	return adu, nil
}

// DecodeRegisters verifies resp against req and returns its registers.
// Device exceptions are returned as *Exception.
func (c *Codec) DecodeRegisters(req Request, resp []byte) ([]uint16, error) {
	if len(resp) < headerSize+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrame, len(resp))
	}
	if err := c.h.Verify(req.ADU, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}

	pdu, err := c.h.Decode(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrame, err)
	}

	switch pdu.FunctionCode {
	case modbus.FuncCodeReadHoldingRegisters:
	case modbus.FuncCodeReadHoldingRegisters | 0x80:
		if len(pdu.Data) < 1 {
			return nil, fmt.Errorf("%w: empty exception", ErrFrame)
		}
		return nil, &Exception{Err: &modbus.ModbusError{
			FunctionCode:  pdu.FunctionCode,
			ExceptionCode: pdu.Data[0],
		}}
	default:
		return nil, fmt.Errorf("%w: function %d", ErrMismatch, pdu.FunctionCode)
	}

	if len(pdu.Data) < 1 {
		return nil, fmt.Errorf("%w: missing byte count", ErrFrame)
	}
	count := int(pdu.Data[0])
	if count != 2*int(req.Quantity) || len(pdu.Data)-1 != count {
		return nil, fmt.Errorf("%w: byte count %d for %d registers", ErrFrame, count, req.Quantity)
	}

	regs := make([]uint16, req.Quantity)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(pdu.Data[1+2*i:])
	}
	return regs, nil
}
