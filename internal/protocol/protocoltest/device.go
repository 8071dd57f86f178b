// internal/protocol/protocoltest/device.go

// Package protocoltest provides an in-memory register device for tests.
package protocoltest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
)

// ErrNoResponse is returned by Read when the device has nothing queued.
var ErrNoResponse = errors.New("protocoltest: no response")

// Device answers read holding registers requests from a register map.
// It implements transport.Stream and starts connected.
type Device struct {
	mu sync.Mutex

	addr      string
	registers map[uint16]uint16
	exception byte
	silent    bool

	connected bool
	timedOut  bool
	closed    bool
	out       bytes.Buffer

	requests [][]byte
}

func NewDevice(addr string) *Device {
	return &Device{
		addr:      addr,
		registers: make(map[uint16]uint16),
		connected: true,
	}
}

// Set stores consecutive registers starting at address.
func (d *Device) Set(address uint16, values ...uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.registers[address+uint16(i)] = v
	}
}

// FailWith makes every following request answer with an exception code.
// Zero restores normal answers.
func (d *Device) FailWith(code byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exception = code
}

// Silence makes the device swallow requests; reads then time out.
func (d *Device) Silence(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = on
}

// Requests returns copies of every request frame received.
func (d *Device) Requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.requests))
	for i, r := range d.requests {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// Disconnect simulates a dropped connection.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
}

// ---- transport.Stream ----

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return 0, errors.New("protocoltest: not connected")
	}
	d.requests = append(d.requests, append([]byte(nil), p...))
	if d.silent || len(p) < 12 {
		return len(p), nil
	}

	tid := p[0:2]
	unit := p[6]
	fc := p[7]
	addr := binary.BigEndian.Uint16(p[8:10])
	qty := binary.BigEndian.Uint16(p[10:12])

	var pdu []byte
	if d.exception != 0 {
		pdu = []byte{fc | 0x80, d.exception}
	} else {
		pdu = make([]byte, 2+2*int(qty))
		pdu[0] = fc
		pdu[1] = byte(2 * qty)
		for i := uint16(0); i < qty; i++ {
			binary.BigEndian.PutUint16(pdu[2+2*i:], d.registers[addr+i])
		}
	}

	header := make([]byte, 7)
	copy(header[0:2], tid)
	binary.BigEndian.PutUint16(header[4:6], uint16(1+len(pdu)))
	header[6] = unit

	d.out.Write(header)
	d.out.Write(pdu)
	return len(p), nil
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out.Len() == 0 {
		d.timedOut = true
		return 0, ErrNoResponse
	}
	return d.out.Read(p)
}

func (d *Device) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.timedOut = false
	return nil
}

func (d *Device) HasConnection() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) HasTimedOut() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timedOut
}

func (d *Device) Connecting() bool { return false }
func (d *Device) LastError() error { return nil }
func (d *Device) Address() string  { return d.addr }

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.connected = false
	return nil
}
