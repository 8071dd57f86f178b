// internal/publish/mqtt_test.go
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modem-monitor/internal/config"
	"github.com/tamzrod/modem-monitor/internal/status"
)

// ---- fake paho client ----

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	connected bool
	err       error
	hang      bool
	calls     []publishCall
}

func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Disconnect(uint)   {}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.calls = append(f.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if f.hang {
		return &fakeToken{done: make(chan struct{})}
	}
	return doneToken(f.err)
}

func snap(id int64, health uint16, at time.Time) status.Snapshot {
	return status.Snapshot{
		ModemID:    id,
		Address:    "10.0.0.5:502",
		Health:     health,
		HealthName: status.HealthName(health),
		Data:       map[string]any{"modem.signal": true},
		At:         at,
	}
}

// ---- tests ----

func TestMQTTWriter_PublishesToStateTopic(t *testing.T) {
	cli := &fakeClient{connected: true}
	w := NewMQTTWriter(cli, "site/a", 1, true)

	if err := w.Write(context.Background(), snap(42, status.HealthOK, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cli.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(cli.calls))
	}
	c := cli.calls[0]
	if c.topic != "site/a/42/state" || c.qos != 1 || !c.retained {
		t.Fatalf("publish call: %+v", c)
	}

	var got map[string]any
	if err := json.Unmarshal(c.payload, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got["modem_id"] != float64(42) {
		t.Fatalf("payload: %s", c.payload)
	}
}

func TestMQTTWriter_SkipsUnchangedSnapshot(t *testing.T) {
	cli := &fakeClient{connected: true}
	w := NewMQTTWriter(cli, "modems", 0, false)
	t0 := time.Now()

	_ = w.Write(context.Background(), snap(1, status.HealthOK, t0))
	_ = w.Write(context.Background(), snap(1, status.HealthOK, t0.Add(time.Second)))
	if len(cli.calls) != 1 {
		t.Fatalf("unchanged snapshot republished: %d calls", len(cli.calls))
	}

	_ = w.Write(context.Background(), snap(1, status.HealthError, t0.Add(2*time.Second)))
	_ = w.Write(context.Background(), snap(2, status.HealthOK, t0))
	if len(cli.calls) != 3 {
		t.Fatalf("changed snapshots not published: %d calls", len(cli.calls))
	}

	w.Forget(1)
	_ = w.Write(context.Background(), snap(1, status.HealthError, t0.Add(3*time.Second)))
	if len(cli.calls) != 4 {
		t.Fatalf("forgotten modem not republished: %d calls", len(cli.calls))
	}
}

func TestMQTTWriter_FailureForcesRepublish(t *testing.T) {
	cli := &fakeClient{connected: true, err: errors.New("broker said no")}
	w := NewMQTTWriter(cli, "modems", 1, false)
	s := snap(1, status.HealthOK, time.Now())

	err := w.Write(context.Background(), s)
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	cli.err = nil
	if err := w.Write(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cli.calls) != 2 {
		t.Fatalf("expected retry after failure, got %d calls", len(cli.calls))
	}
}

func TestMQTTWriter_NotConnected(t *testing.T) {
	cli := &fakeClient{}
	w := NewMQTTWriter(cli, "modems", 1, false)

	err := w.Write(context.Background(), snap(1, status.HealthOK, time.Now()))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(cli.calls) != 0 {
		t.Fatalf("published while disconnected")
	}
}

func TestMQTTWriter_Timeout(t *testing.T) {
	cli := &fakeClient{connected: true, hang: true}
	w := NewMQTTWriter(cli, "modems", 1, false)
	w.timeout = 20 * time.Millisecond

	err := w.Write(context.Background(), snap(1, status.HealthOK, time.Now()))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestMQTTWriter_ContextCancel(t *testing.T) {
	cli := &fakeClient{connected: true, hang: true}
	w := NewMQTTWriter(cli, "modems", 1, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Write(ctx, snap(1, status.HealthOK, time.Now()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuild_DisabledIsNop(t *testing.T) {
	w, closeFn, err := Build(config.MQTTConfig{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if _, ok := w.(Nop); !ok {
		t.Fatalf("expected Nop writer, got %T", w)
	}
	if err := w.Write(context.Background(), status.Snapshot{}); err != nil {
		t.Fatalf("nop write: %v", err)
	}
}
