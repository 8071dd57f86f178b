// internal/publish/builder.go
package publish

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modem-monitor/internal/config"
	"github.com/tamzrod/modem-monitor/internal/logging"
)

const (
	connectTimeout    = 10 * time.Second
	keepAlive         = 60 * time.Second
	maxReconnectDelay = 2 * time.Minute
	disconnectQuiesce = 250 // milliseconds
)

// Build returns the configured writer and its closer.
// A disabled broker yields Nop.
func Build(cfg config.MQTTConfig, log *logging.Logger) (Writer, func(), error) {
	if !cfg.Enabled {
		return Nop{}, func() {}, nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxReconnectDelay).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		log.Info("mqtt connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Exception(fmt.Errorf("mqtt connection lost: %w", err))
	})

	cli := pahomqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, cfg.Broker, err)
	}

	w := NewMQTTWriter(cli, cfg.TopicPrefix, byte(cfg.QoS), cfg.Retained)
	closeFn := func() { cli.Disconnect(disconnectQuiesce) }
	return w, closeFn, nil
}
