// internal/connection/manager.go
package connection

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/transport"
)

// Factory builds an unconnected stream for one address.
type Factory func(host string, port int) (transport.Stream, error)

// TCPFactory builds async read+write TCP streams.
func TCPFactory(connectTimeout, ioTimeout time.Duration) Factory {
	return func(host string, port int) (transport.Stream, error) {
		s, err := transport.NewClientStream(transport.Config{
			Host:           host,
			Port:           port,
			Mode:           transport.ModeAsync | transport.AccessAll,
			ConnectTimeout: connectTimeout,
			ReadTimeout:    ioTimeout,
			WriteTimeout:   ioTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// AttemptFunc observes every connect issued by the manager.
type AttemptFunc func(address string, err error)

type session struct {
	stream  transport.Stream
	pending bool
}

// Manager owns one session per "host:port".
//
// Sessions are created lazily by Get and live until Release or Close.
// The pending flag suppresses new attempts while one is in flight.
type Manager struct {
	factory Factory
	log     *logging.Logger
	attempt AttemptFunc

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Manager.
type Option func(*Manager)

// WithAttemptFunc registers an observer for connect attempts.
func WithAttemptFunc(fn AttemptFunc) Option {
	return func(m *Manager) { m.attempt = fn }
}

func New(factory Factory, log *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		log:      log,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a ready stream for host:port.
// A nil error means the stream holds a live connection; any other outcome
// is one of ErrConnectFailed, ErrNotReady or ErrPending and the caller
// skips the device this tick.
func (m *Manager) Get(host string, port int) (transport.Stream, error) {
	key := net.JoinHostPort(host, strconv.Itoa(port))

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		stream, err := m.factory(host, port)
		if err != nil {
			m.log.Exception(err)
			m.observe(key, err)
			return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, key, err)
		}

		err = stream.Connect()
		m.observe(key, err)
		if err != nil {
			m.log.WithConnection(stream).Exception(err)
			_ = stream.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, key, err)
		}

		sess = &session{stream: stream, pending: true}
		m.sessions[key] = sess
	}

	return m.ready(key, sess)
}

func (m *Manager) ready(key string, sess *session) (transport.Stream, error) {
	stream := sess.stream
	log := m.log.WithConnection(stream)

	if stream.HasConnection() {
		if sess.pending {
			sess.pending = false
			log.Connection("established")
		}
		return stream, nil
	}

	if sess.pending {
		if stream.Connecting() {
			return nil, fmt.Errorf("%w: %s", ErrPending, key)
		}
		// the attempt resolved without a connection
		log.Connection("connection failed: %v", stream.LastError())
		sess.pending = false
	}

	if stream.HasTimedOut() {
		log.Connection("communication timeout")
	}
	log.Notice("trying new connection")

	err := stream.Connect()
	m.observe(key, err)
	switch {
	case errors.Is(err, transport.ErrConnectInProgress):
		sess.pending = true
		return nil, fmt.Errorf("%w: %s", ErrPending, key)
	case err != nil:
		log.Exception(err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, key, err)
	}

	sess.pending = true
	return nil, fmt.Errorf("%w: %s", ErrNotReady, key)
}

func (m *Manager) observe(key string, err error) {
	if m.attempt != nil {
		m.attempt(key, err)
	}
}

// Len reports the number of sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Addresses lists session keys in ascending order.
func (m *Manager) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Release closes and forgets the session for host:port, if any.
func (m *Manager) Release(host string, port int) {
	key := net.JoinHostPort(host, strconv.Itoa(port))

	m.mu.Lock()
	sess, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.stream.Close(); err != nil {
		m.log.WithConnection(sess.stream).Exception(err)
	}
}

// Close closes every session. The manager stays usable.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
