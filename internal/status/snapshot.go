// internal/status/snapshot.go
package status

import (
	"time"

	"github.com/tamzrod/modem-monitor/internal/entity"
)

// Snapshot represents exactly what a publisher is allowed to deliver.
// It is a copy; it holds no reference into the modem.
type Snapshot struct {
	ModemID  int64  `json:"modem_id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Stage    int    `json:"stage"`
	MaxStage int    `json:"max_stage"`

	Health         uint16 `json:"health"`
	HealthName     string `json:"health_name"`
	LastError      string `json:"last_error,omitempty"`
	SecondsInError uint16 `json:"seconds_in_error"`

	Data map[string]any `json:"data"`
	At   time.Time      `json:"at"`
}

// Capture copies the current state of m.
// SecondsInError counts from the first error of the current error run and
// MUST NOT wrap.
func Capture(m *entity.Modem, now time.Time) Snapshot {
	code, lastErr, since := m.Health()

	var secs uint16
	if !since.IsZero() {
		d := now.Sub(since) / time.Second
		switch {
		case d < 0:
			secs = 0
		case d > SecondsInErrorMax:
			secs = SecondsInErrorMax
		default:
			secs = uint16(d)
		}
	}

	return Snapshot{
		ModemID:        m.ID(),
		Name:           m.Name(),
		Address:        m.Address(),
		Stage:          m.Stage(),
		MaxStage:       m.MaxStage(),
		Health:         code,
		HealthName:     HealthName(code),
		LastError:      lastErr,
		SecondsInError: secs,
		Data:           m.Fields(),
		At:             now,
	}
}

// Disabled returns s marked as belonging to an inactive monitor.
func (s Snapshot) Disabled() Snapshot {
	s.Health = HealthDisabled
	s.HealthName = HealthName(HealthDisabled)
	return s
}
