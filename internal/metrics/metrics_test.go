// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.Tick(250 * time.Millisecond)
	r.Tick(time.Second)
	r.SetModems(3)
	r.SetSessions(2)
	r.Refresh(nil)
	r.Refresh(errors.New("backend down"))
	r.ConnectAttempt("10.0.0.5:502", nil)
	r.ListenerRun(10, nil)
	r.ListenerRun(20, errors.New("timeout"))
	r.ListenerRun(20, errors.New("timeout"))
	r.Publish(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.modems))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connects.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("10", ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.actions.WithLabelValues("20", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.publishes.WithLabelValues(ResultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.tickDuration))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Tick(time.Second)
		r.SetModems(1)
		r.SetSessions(1)
		r.Refresh(nil)
		r.ConnectAttempt("a", nil)
		r.ListenerRun(10, nil)
		r.Publish(nil)
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.SetModems(4)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "modem_monitor_modems 4"), body)
	assert.Contains(t, body, "go_goroutines")
}
