// cmd/monitor/run.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/modem-monitor/internal/api"
	"github.com/tamzrod/modem-monitor/internal/config"
	"github.com/tamzrod/modem-monitor/internal/connection"
	"github.com/tamzrod/modem-monitor/internal/loader"
	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/metrics"
	"github.com/tamzrod/modem-monitor/internal/monitor"
	"github.com/tamzrod/modem-monitor/internal/publish"
)

const service = "modem-monitor"

// --------------------
// Load + validate config
// --------------------

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

// watcher is a loader that also pushes change notifications.
type watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

func buildLoader(cfg config.LoaderConfig) monitor.ModemManager {
	if cfg.Kind == config.LoaderFile {
		return loader.NewFile(cfg.Path)
	}
	return loader.NewHTTP(cfg)
}

// run wires every component and blocks until SIGINT/SIGTERM or a fatal error.
func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(cfg.Logging, service)
	if err != nil {
		return err
	}

	rec := metrics.New()

	// ---- sessions ----
	sessions := connection.New(
		connection.TCPFactory(cfg.Connection.ConnectTimeout(), cfg.Connection.IOTimeout()),
		log,
		connection.WithAttemptFunc(rec.ConnectAttempt),
	)
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Exception(err)
		}
	}()

	// ---- publisher ----
	pub, closePub, err := publish.Build(cfg.MQTT, log)
	if err != nil {
		return err
	}
	defer closePub()

	// ---- monitor ----
	fleet := buildLoader(cfg.Loader)
	mon, err := monitor.NewModemMonitor(
		monitor.Config{
			Type:            cfg.Monitor.Type,
			RefreshInterval: cfg.Monitor.RefreshInterval(),
			Throttle:        cfg.Monitor.Throttle(),
			Prune:           cfg.Monitor.PruneEnabled(),
		},
		fleet,
		sessions,
		log,
		monitor.WithPublisher(pub),
		monitor.WithRecorder(rec),
	)
	if err != nil {
		return err
	}

	log.Notice("starting %s %s (type=%d, loader=%s)", service, version, cfg.Monitor.Type, cfg.Loader.Kind)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mon.Run(gctx, cfg.Monitor.Interval())
	})

	if w, ok := fleet.(watcher); ok {
		g.Go(func() error {
			return w.Watch(gctx, func() {
				log.Info("fleet file changed")
				mon.RequestRefresh()
			})
		})
	}

	if cfg.HTTP.Enabled() {
		srv, err := api.New(api.Deps{
			Listen:  cfg.HTTP.Listen,
			Monitor: mon,
			Metrics: rec.Handler(),
			Logger:  log,
			Version: version,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	err = g.Wait()
	log.Notice("stopped")
	return err
}
