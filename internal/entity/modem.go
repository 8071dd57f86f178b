// internal/entity/modem.go
package entity

import (
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// DefaultUnitID is used when a record carries no unit id.
const DefaultUnitID uint8 = 1

// Modem is the in-memory state of one polled device.
//
// Identity and network fields come from the loader and are merged on every
// refresh. Telemetry fields accumulate between refreshes and are never reset
// by Update. The polling goroutine is the only writer; readers (status surface)
// may call any accessor concurrently.
type Modem struct {
	mu sync.RWMutex

	id     int64
	name   string
	host   string
	port   int
	unitID uint8

	stage    int
	maxStage int

	data    map[string]any
	sensors map[int]int64 // channel -> conversion id

	health     uint16
	lastErr    string
	errorSince time.Time
}

// NewModem creates a modem at stage 0 from a loader record.
func NewModem(rec ModemRecord) *Modem {
	m := &Modem{
		id:      rec.ID,
		data:    make(map[string]any),
		sensors: make(map[int]int64),
	}
	m.apply(rec)
	return m
}

// Update merges a fresh record into the modem in place.
// Stage and telemetry are kept.
func (m *Modem) Update(rec ModemRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(rec)
}

func (m *Modem) apply(rec ModemRecord) {
	m.name = rec.Name
	m.host = rec.Host
	m.port = rec.Port
	m.unitID = rec.UnitID
	if m.unitID == 0 {
		m.unitID = DefaultUnitID
	}

	sensors := make(map[int]int64, len(rec.Sensors))
	for _, s := range rec.Sensors {
		sensors[s.Channel] = s.ConversionID
	}
	m.sensors = sensors
}

func (m *Modem) ID() int64 { return m.id }

func (m *Modem) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *Modem) Host() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.host
}

func (m *Modem) Port() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port
}

func (m *Modem) UnitID() uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unitID
}

// Address returns the session key "host:port".
func (m *Modem) Address() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return net.JoinHostPort(m.host, strconv.Itoa(m.port))
}

// ---- stage cycle ----

func (m *Modem) Stage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stage
}

func (m *Modem) MaxStage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxStage
}

// SetMaxStage records the current listener count.
func (m *Modem) SetMaxStage(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxStage = n
}

// AdvanceStage moves to the next stage, wrapping at MaxStage.
// It returns the new stage.
func (m *Modem) AdvanceStage() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stage++
	if m.maxStage > 0 {
		m.stage %= m.maxStage
	}
	return m.stage
}

// ---- telemetry ----

// Data returns one telemetry field.
func (m *Modem) Data(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// SetData stores one telemetry field.
func (m *Modem) SetData(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
}

// Bool reports the truthiness of a telemetry field.
// Missing fields, zero numbers, empty strings and "0" are false.
func (m *Modem) Bool(key string) bool {
	v, ok := m.Data(key)
	if !ok {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint16:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0"
	default:
		return v != nil
	}
}

// Fields returns a copy of every telemetry field.
func (m *Modem) Fields() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]any, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// ---- sensors ----

// ConversionID returns the conversion bound to a channel.
func (m *Modem) ConversionID(channel int) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sensors[channel]
	return id, ok
}

// Channels returns the configured sensor channels in ascending order.
func (m *Modem) Channels() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]int, 0, len(m.sensors))
	for ch := range m.sensors {
		out = append(out, ch)
	}
	sort.Ints(out)
	return out
}

// ---- health ----

// SetHealth records the outcome of the latest poll.
// A nil cause clears the error state; the first non-nil cause starts the error clock.
func (m *Modem) SetHealth(code uint16, cause error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.health = code
	if cause == nil {
		m.lastErr = ""
		m.errorSince = time.Time{}
		return
	}

	m.lastErr = cause.Error()
	if m.errorSince.IsZero() {
		m.errorSince = now
	}
}

// Health returns the last recorded health code, error text and error start.
func (m *Modem) Health() (code uint16, lastErr string, errorSince time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health, m.lastErr, m.errorSince
}
