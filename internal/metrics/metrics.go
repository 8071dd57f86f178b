// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modem_monitor"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds every collector on a private registry.
// A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	modems       prometheus.Gauge
	sessions     prometheus.Gauge
	refreshes    *prometheus.CounterVec
	connects     *prometheus.CounterVec
	actions      *prometheus.CounterVec
	publishes    *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),

		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Monitor ticks run while active.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one monitor tick.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		modems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modems",
			Help:      "Modems currently known to the monitor.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions held by the connection manager.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Table refreshes from the loader.",
		}, []string{"result"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connect attempts issued by the connection manager.",
		}, []string{"result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_runs_total",
			Help:      "Stage listener executions.",
		}, []string{"listener", "result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Status snapshots handed to the publisher.",
		}, []string{"result"}),
	}

	r.reg.MustRegister(
		r.ticks,
		r.tickDuration,
		r.modems,
		r.sessions,
		r.refreshes,
		r.connects,
		r.actions,
		r.publishes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Registry exposes the registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) Tick(d time.Duration) {
	if r == nil {
		return
	}
	r.ticks.Inc()
	r.tickDuration.Observe(d.Seconds())
}

func (r *Recorder) SetModems(n int) {
	if r == nil {
		return
	}
	r.modems.Set(float64(n))
}

func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

func (r *Recorder) Refresh(err error) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(result(err)).Inc()
}

// ConnectAttempt matches connection.AttemptFunc.
func (r *Recorder) ConnectAttempt(_ string, err error) {
	if r == nil {
		return
	}
	r.connects.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) ListenerRun(code int, err error) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(strconv.Itoa(code), result(err)).Inc()
}

func (r *Recorder) Publish(err error) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
