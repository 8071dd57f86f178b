// internal/monitor/types.go
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/status"
	"github.com/tamzrod/modem-monitor/internal/transport"
)

var (
	ErrDuplicateListener = errors.New("monitor: duplicate listener code")
	ErrNoListeners       = errors.New("monitor: no listeners registered")
)

// ModemManager pulls fleet metadata. Pulls are idempotent.
type ModemManager interface {
	LoadModems(ctx context.Context, typ int) ([]entity.ModemRecord, error)
	LoadConversions(ctx context.Context) ([]entity.ConversionRecord, error)
}

// SessionProvider hands out ready streams per address.
type SessionProvider interface {
	Get(host string, port int) (transport.Stream, error)
	Release(host string, port int)
	Len() int
}

// Publisher receives a snapshot after every poll of a modem.
type Publisher interface {
	Write(ctx context.Context, s status.Snapshot) error
}

// Recorder observes the loop.
type Recorder interface {
	Tick(d time.Duration)
	SetModems(n int)
	SetSessions(n int)
	Refresh(err error)
	ListenerRun(code int, err error)
	Publish(err error)
}

// Config is the runtime config the monitor needs.
type Config struct {
	// Type selects which modems the loader returns.
	Type int

	// RefreshInterval is the minimum time between table refreshes.
	RefreshInterval time.Duration

	// Throttle is the pause before each exchange with a ready modem.
	Throttle time.Duration

	// Prune drops modems and conversions missing from a successful refresh.
	Prune bool
}

type nopRecorder struct{}

func (nopRecorder) Tick(time.Duration)     {}
func (nopRecorder) SetModems(int)          {}
func (nopRecorder) SetSessions(int)        {}
func (nopRecorder) Refresh(error)          {}
func (nopRecorder) ListenerRun(int, error) {}
func (nopRecorder) Publish(error)          {}
