// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/modem-monitor/internal/action"
	"github.com/tamzrod/modem-monitor/internal/connection"
	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/protocol"
	"github.com/tamzrod/modem-monitor/internal/status"
)

// Listener codes registered by NewModemMonitor.
const (
	CodeReadStatus   = 10
	CodeReadChannels = 20
	CodeReadSensors  = 30
)

// Monitor drives every known modem through its stage cycle.
//
// Monitore and Run belong to a single goroutine. The modem table is
// guarded so status readers may take snapshots concurrently.
type Monitor struct {
	cfg      Config
	loader   ModemManager
	sessions SessionProvider
	codec    *protocol.Codec
	log      *logging.Logger
	pub      Publisher
	rec      Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	active      atomic.Bool
	refreshNext atomic.Bool
	lastRefresh time.Time

	mu          sync.RWMutex
	listeners   []*StageListener
	modems      []*entity.Modem
	byID        map[int64]*entity.Modem
	conversions *entity.ConversionTable
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithPublisher(p Publisher) Option {
	return func(m *Monitor) {
		if p != nil {
			m.pub = p
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithClock replaces the wall clock and the throttle sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// New creates an active monitor without listeners.
func New(cfg Config, loader ModemManager, sessions SessionProvider, log *logging.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:         cfg,
		loader:      loader,
		sessions:    sessions,
		codec:       protocol.NewCodec(),
		log:         log,
		pub:         nopPublisher{},
		rec:         nopRecorder{},
		now:         time.Now,
		sleep:       sleepCtx,
		byID:        make(map[int64]*entity.Modem),
		conversions: entity.NewConversionTable(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.active.Store(true)
	return m
}

// NewModemMonitor creates a monitor with the modem stage cycle:
// read status, read channels, read sensors.
func NewModemMonitor(cfg Config, loader ModemManager, sessions SessionProvider, log *logging.Logger, opts ...Option) (*Monitor, error) {
	m := New(cfg, loader, sessions, log, opts...)

	stages := []struct {
		code int
		name string
		kind action.Kind
	}{
		{CodeReadStatus, "read status", action.KindSignal},
		{CodeReadChannels, "read channels", action.KindChannels},
		{CodeReadSensors, "read sensors", action.KindSensors},
	}

	for _, st := range stages {
		l, err := m.AddListener(st.code)
		if err != nil {
			return nil, err
		}
		l.Name = st.name
		l.Add(st.kind)
	}
	return m, nil
}

// AddListener registers a listener. Registration order defines the stage index.
func (m *Monitor) AddListener(code int) (*StageListener, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.listeners {
		if l.Code == code {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateListener, code)
		}
	}

	l := &StageListener{Code: code}
	m.listeners = append(m.listeners, l)
	return l, nil
}

// Codes returns listener codes in stage order.
func (m *Monitor) Codes() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]int, len(m.listeners))
	for i, l := range m.listeners {
		out[i] = l.Code
	}
	return out
}

// ListenerFor returns the listener serving a stage: index stage mod N.
func (m *Monitor) ListenerFor(stage int) (*StageListener, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pick(m.listeners, stage)
}

func pick(listeners []*StageListener, stage int) (*StageListener, error) {
	n := len(listeners)
	if n == 0 {
		return nil, ErrNoListeners
	}
	idx := stage % n
	if idx < 0 {
		idx += n
	}
	return listeners[idx], nil
}

// ---- activation ----

func (m *Monitor) Activate()    { m.active.Store(true) }
func (m *Monitor) Deactivate()  { m.active.Store(false) }
func (m *Monitor) Active() bool { return m.active.Load() }

// RequestRefresh forces a table refresh on the next tick.
func (m *Monitor) RequestRefresh() { m.refreshNext.Store(true) }

// ---- tick ----

// Monitore runs one tick. It returns only when ctx ends mid-tick.
func (m *Monitor) Monitore(ctx context.Context) error {
	if !m.Active() {
		return nil
	}

	start := m.now()
	log := m.log.With("tick", uuid.NewString())

	m.refresh(ctx, log)

	m.mu.RLock()
	listeners := append([]*StageListener(nil), m.listeners...)
	modems := append([]*entity.Modem(nil), m.modems...)
	m.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	for _, modem := range modems {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.poll(ctx, log, modem, listeners); err != nil {
			return err
		}
	}

	m.rec.SetSessions(m.sessions.Len())
	m.rec.Tick(m.now().Sub(start))
	return nil
}

// poll runs one stage of one modem. Only ctx errors are returned;
// everything else is recorded on the modem and logged.
func (m *Monitor) poll(ctx context.Context, log *logging.Logger, modem *entity.Modem, listeners []*StageListener) error {
	stream, err := m.sessions.Get(modem.Host(), modem.Port())
	if err != nil {
		health := status.HealthStale
		if errors.Is(err, connection.ErrConnectFailed) {
			health = status.HealthError
		}
		modem.SetHealth(health, err, m.now())
		m.publish(ctx, log.WithModem(modem), modem)
		return nil
	}

	if err := m.sleep(ctx, m.cfg.Throttle); err != nil {
		return err
	}

	mlog := log.WithModem(modem).WithConnection(stream)

	modem.SetMaxStage(len(listeners))
	l, err := pick(listeners, modem.Stage())
	if err != nil {
		return nil
	}

	err = l.Execute(action.Env{
		Modem:       modem,
		Session:     stream,
		Log:         mlog,
		Codec:       m.codec,
		Conversions: m.conversions,
	})
	m.rec.ListenerRun(l.Code, err)

	if err != nil {
		mlog.Exception(err)
		modem.SetHealth(status.HealthError, err, m.now())
	} else {
		modem.SetHealth(status.HealthOK, nil, m.now())
	}

	m.publish(ctx, mlog, modem)
	return nil
}

func (m *Monitor) publish(ctx context.Context, log *logging.Logger, modem *entity.Modem) {
	err := m.pub.Write(ctx, status.Capture(modem, m.now()))
	m.rec.Publish(err)
	if err != nil {
		log.Exception(err)
	}
}

// ---- refresh ----

func (m *Monitor) refresh(ctx context.Context, log *logging.Logger) {
	now := m.now()
	forced := m.refreshNext.Swap(false)
	if !forced && !m.lastRefresh.IsZero() && now.Sub(m.lastRefresh) < m.cfg.RefreshInterval {
		return
	}

	convs, err := m.loader.LoadConversions(ctx)
	if err != nil {
		m.refreshFailed(log, forced, err)
		return
	}
	loaded, updated := m.conversions.Merge(convs)
	log.Info("%d loaded and %d updated conversions", loaded, updated)
	if m.cfg.Prune {
		keep := make(map[int64]bool, len(convs))
		for _, c := range convs {
			keep[c.ID] = true
		}
		if n := m.conversions.Retain(keep); n > 0 {
			log.Info("%d removed conversions", n)
		}
	}

	recs, err := m.loader.LoadModems(ctx, m.cfg.Type)
	if err != nil {
		m.refreshFailed(log, forced, err)
		return
	}
	loaded, updated, removed := m.mergeModems(recs)
	log.Info("%d loaded and %d updated modems", loaded, updated)
	if removed > 0 {
		log.Info("%d removed modems", removed)
	}

	m.lastRefresh = now
	m.rec.Refresh(nil)
	m.rec.SetModems(m.Len())
}

func (m *Monitor) refreshFailed(log *logging.Logger, forced bool, err error) {
	log.Exception(err)
	m.rec.Refresh(err)
	if forced {
		m.refreshNext.Store(true)
	}
}

// mergeModems inserts new ids, updates known ids in place and, when
// pruning, drops ids missing from recs. Sessions no remaining modem uses
// are released.
func (m *Monitor) mergeModems(recs []entity.ModemRecord) (loaded, updated, removed int) {
	m.mu.Lock()

	var stale []string
	seen := make(map[int64]bool, len(recs))

	for _, rec := range recs {
		seen[rec.ID] = true

		if modem, ok := m.byID[rec.ID]; ok {
			before := modem.Address()
			modem.Update(rec)
			if modem.Address() != before {
				stale = append(stale, before)
			}
			updated++
			continue
		}

		modem := entity.NewModem(rec)
		m.byID[rec.ID] = modem
		m.modems = append(m.modems, modem)
		loaded++
	}

	var gone []*entity.Modem
	if m.cfg.Prune {
		kept := m.modems[:0]
		for _, modem := range m.modems {
			if seen[modem.ID()] {
				kept = append(kept, modem)
				continue
			}
			delete(m.byID, modem.ID())
			gone = append(gone, modem)
			stale = append(stale, modem.Address())
		}
		for i := len(kept); i < len(m.modems); i++ {
			m.modems[i] = nil
		}
		m.modems = kept
		removed = len(gone)
	}

	inUse := make(map[string]bool, len(m.modems))
	for _, modem := range m.modems {
		inUse[modem.Address()] = true
	}
	m.mu.Unlock()

	released := make(map[string]bool)
	for _, addr := range stale {
		if inUse[addr] || released[addr] {
			continue
		}
		released[addr] = true
		if host, port, ok := splitAddress(addr); ok {
			m.sessions.Release(host, port)
		}
	}

	if f, ok := m.pub.(interface{ Forget(int64) }); ok {
		for _, modem := range gone {
			f.Forget(modem.ID())
		}
	}
	return loaded, updated, removed
}

func splitAddress(addr string) (string, int, bool) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}

// ---- status surface ----

// Len returns the number of known modems.
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modems)
}

// Modem returns a known modem by id.
func (m *Monitor) Modem(id int64) (*entity.Modem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	modem, ok := m.byID[id]
	return modem, ok
}

// Snapshots captures every modem in discovery order.
func (m *Monitor) Snapshots() []status.Snapshot {
	m.mu.RLock()
	modems := append([]*entity.Modem(nil), m.modems...)
	m.mu.RUnlock()

	now := m.now()
	active := m.Active()

	out := make([]status.Snapshot, 0, len(modems))
	for _, modem := range modems {
		s := status.Capture(modem, now)
		if !active {
			s = s.Disabled()
		}
		out = append(out, s)
	}
	return out
}

// Snapshot captures one modem.
func (m *Monitor) Snapshot(id int64) (status.Snapshot, bool) {
	modem, ok := m.Modem(id)
	if !ok {
		return status.Snapshot{}, false
	}
	s := status.Capture(modem, m.now())
	if !m.Active() {
		s = s.Disabled()
	}
	return s, true
}

// Conversions returns every loaded conversion in discovery order.
func (m *Monitor) Conversions() []entity.Conversion {
	return m.conversions.All()
}

type nopPublisher struct{}

func (nopPublisher) Write(context.Context, status.Snapshot) error { return nil }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
