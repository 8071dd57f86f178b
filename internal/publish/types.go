// internal/publish/types.go
package publish

import (
	"context"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modem-monitor/internal/status"
)

// Writer delivers device snapshots downstream.
type Writer interface {
	Write(ctx context.Context, s status.Snapshot) error
}

// Client is the exact subset of the paho client the writer uses.
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Nop discards every snapshot.
type Nop struct{}

func (Nop) Write(context.Context, status.Snapshot) error { return nil }
