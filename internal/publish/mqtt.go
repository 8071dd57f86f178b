// internal/publish/mqtt.go
package publish

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/modem-monitor/internal/status"
)

// DefaultPublishTimeout bounds the wait for a broker acknowledgment.
const DefaultPublishTimeout = 5 * time.Second

// MQTTWriter publishes snapshots to "{prefix}/{modem_id}/state".
//
// A snapshot identical to the last one delivered for the same modem is
// skipped; the timestamp does not count. After a failed publish the next
// call for that modem always goes out.
type MQTTWriter struct {
	cli      Client
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration

	mu   sync.Mutex
	last map[int64][]byte
}

func NewMQTTWriter(cli Client, prefix string, qos byte, retained bool) *MQTTWriter {
	return &MQTTWriter{
		cli:      cli,
		prefix:   prefix,
		qos:      qos,
		retained: retained,
		timeout:  DefaultPublishTimeout,
		last:     make(map[int64][]byte),
	}
}

// Topic returns the state topic of one modem.
func (w *MQTTWriter) Topic(modemID int64) string {
	return w.prefix + "/" + strconv.FormatInt(modemID, 10) + "/state"
}

func (w *MQTTWriter) Write(ctx context.Context, s status.Snapshot) error {
	key := s
	key.At = time.Time{}
	fingerprint, err := status.Encode(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	w.mu.Lock()
	unchanged := bytes.Equal(w.last[s.ModemID], fingerprint)
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	if !w.cli.IsConnected() {
		w.forget(s.ModemID)
		return ErrNotConnected
	}

	payload, err := status.Encode(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	token := w.cli.Publish(w.Topic(s.ModemID), w.qos, w.retained, payload)

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		w.forget(s.ModemID)
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, w.timeout)
	case <-ctx.Done():
		w.forget(s.ModemID)
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		w.forget(s.ModemID)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	w.mu.Lock()
	w.last[s.ModemID] = fingerprint
	w.mu.Unlock()
	return nil
}

// Forget drops the delivery memory of one modem, e.g. after it was pruned.
func (w *MQTTWriter) Forget(modemID int64) {
	w.forget(modemID)
}

func (w *MQTTWriter) forget(modemID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.last, modemID)
}
