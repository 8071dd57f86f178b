// internal/api/server.go

// Package api serves the read-mostly HTTP status surface of a monitor.
//
//	srv, err := api.New(deps)
//	err = srv.Serve(ctx) // returns after ctx ends and in-flight requests drain
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/status"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Monitor is the subset of a monitor the API exposes.
type Monitor interface {
	Snapshots() []status.Snapshot
	Snapshot(id int64) (status.Snapshot, bool)
	Conversions() []entity.Conversion
	Len() int
	Active() bool
	Activate()
	Deactivate()
	RequestRefresh()
}

// Deps holds what the server needs.
type Deps struct {
	Listen  string
	Monitor Monitor
	Metrics http.Handler // optional; /metrics is not routed when nil
	Logger  *logging.Logger
	Version string
}

type Server struct {
	listen  string
	mon     Monitor
	metrics http.Handler
	log     *logging.Logger
	version string
	started time.Time
}

func New(deps Deps) (*Server, error) {
	if deps.Monitor == nil {
		return nil, errors.New("api: monitor is required")
	}
	if deps.Listen == "" {
		return nil, errors.New("api: listen address is required")
	}

	return &Server{
		listen:  deps.Listen,
		mon:     deps.Monitor,
		metrics: deps.Metrics,
		log:     deps.Logger,
		version: deps.Version,
		started: time.Now(),
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Serve listens until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.listen, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}
