// internal/transport/client.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Mode selects access rights and connect behavior.
type Mode uint8

const (
	AccessRead Mode = 1 << iota
	AccessWrite
	ModeAsync
)

// AccessAll grants read and write.
const AccessAll = AccessRead | AccessWrite

// Config describes one TCP client stream.
type Config struct {
	Host string
	Port int
	Mode Mode

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// ClientStream is a TCP Stream.
//
// Every Connect bumps a generation counter; a dial that resolves after a
// newer Connect or Close is discarded.
type ClientStream struct {
	cfg  Config
	addr string

	mu         sync.Mutex
	conn       net.Conn
	connecting bool
	timedOut   bool
	lastErr    error
	gen        uint64
	closed     bool
}

// NewClientStream validates cfg. It does not connect.
func NewClientStream(cfg Config) (*ClientStream, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.Mode&AccessAll == 0 {
		return nil, fmt.Errorf("%w: no access mode", ErrInvalidConfig)
	}

	return &ClientStream{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}, nil
}

func (s *ClientStream) Address() string { return s.addr }

// Connect starts a connection attempt.
// In async mode it returns immediately; otherwise it blocks for at most
// ConnectTimeout and returns the dial error.
func (s *ClientStream) Connect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	if s.connecting {
		s.mu.Unlock()
		return ErrConnectInProgress
	}

	s.gen++
	gen := s.gen
	s.connecting = true
	s.timedOut = false
	s.lastErr = nil
	async := s.cfg.Mode&ModeAsync != 0
	s.mu.Unlock()

	if async {
		go func() {
			_ = s.finish(gen, s.dial())
		}()
		return nil
	}

	return s.finish(gen, s.dial())
}

type dialResult struct {
	conn net.Conn
	err  error
}

func (s *ClientStream) dial() dialResult {
	d := net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := d.DialContext(context.Background(), "tcp", s.addr)
	return dialResult{conn: conn, err: err}
}

func (s *ClientStream) finish(gen uint64, res dialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		if res.conn != nil {
			_ = res.conn.Close()
		}
		return ErrClosed
	}

	s.connecting = false
	if res.err != nil {
		s.lastErr = res.err
		return res.err
	}

	s.conn = res.conn
	return nil
}

func (s *ClientStream) HasConnection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *ClientStream) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

func (s *ClientStream) HasTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedOut
}

func (s *ClientStream) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Read reads once from the connection, bounded by ReadTimeout.
func (s *ClientStream) Read(p []byte) (int, error) {
	if s.cfg.Mode&AccessRead == 0 {
		return 0, ErrAccess
	}
	conn, err := s.current()
	if err != nil {
		return 0, err
	}

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	n, err := conn.Read(p)
	if err != nil {
		s.drop(conn, err)
	}
	return n, err
}

// Write writes all of p, bounded by WriteTimeout.
func (s *ClientStream) Write(p []byte) (int, error) {
	if s.cfg.Mode&AccessWrite == 0 {
		return 0, ErrAccess
	}
	conn, err := s.current()
	if err != nil {
		return 0, err
	}

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}

	written := 0
	for written < len(p) {
		n, err := conn.Write(p[written:])
		written += n
		if err != nil {
			s.drop(conn, err)
			return written, err
		}
	}
	return written, nil
}

// Close closes the connection and cancels any attempt in flight.
// A closed stream cannot reconnect.
func (s *ClientStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.gen++
	s.connecting = false

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *ClientStream) current() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// drop releases conn after a failed operation.
// A partial frame may be left on the wire, so the connection is not reused.
func (s *ClientStream) drop(conn net.Conn, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ne net.Error
	if errors.As(cause, &ne) && ne.Timeout() {
		s.timedOut = true
	}
	s.lastErr = cause

	if s.conn == conn {
		_ = conn.Close()
		s.conn = nil
	}
}
