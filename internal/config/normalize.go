// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/google/uuid"
)

// Defaults applied by Normalize.
const (
	DefaultIntervalMs      = 1000
	DefaultRefreshS        = 300
	DefaultThrottleMs      = 1000
	DefaultConnectTimeoutS = 10
	DefaultIOTimeoutS      = 600
	DefaultLoaderTimeoutMs = 10000
	DefaultTopicPrefix     = "modems"
	DefaultListen          = ":9102"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Monitor
	if m.IntervalMs == 0 {
		m.IntervalMs = DefaultIntervalMs
	}
	if m.RefreshS == 0 {
		m.RefreshS = DefaultRefreshS
	}
	if m.ThrottleMs == 0 {
		m.ThrottleMs = DefaultThrottleMs
	}

	c := &cfg.Connection
	if c.ConnectTimeoutS == 0 {
		c.ConnectTimeoutS = DefaultConnectTimeoutS
	}
	if c.IOTimeoutS == 0 {
		c.IOTimeoutS = DefaultIOTimeoutS
	}

	l := &cfg.Loader
	l.Kind = strings.ToLower(l.Kind)
	if l.Kind == "" {
		l.Kind = LoaderHTTP
	}
	l.URL = strings.TrimRight(l.URL, "/")
	if l.TimeoutMs == 0 {
		l.TimeoutMs = DefaultLoaderTimeoutMs
	}

	g := &cfg.Logging
	g.Level = strings.ToLower(g.Level)
	switch g.Level {
	case "":
		g.Level = "info"
	case "warning":
		g.Level = "warn"
	}
	g.Format = strings.ToLower(g.Format)
	if g.Format == "" {
		g.Format = "json"
	}
	g.Output = strings.ToLower(g.Output)
	if g.Output == "" {
		g.Output = "stdout"
	}

	q := &cfg.MQTT
	if q.TopicPrefix == "" {
		q.TopicPrefix = DefaultTopicPrefix
	}
	q.TopicPrefix = strings.Trim(q.TopicPrefix, "/")
	if q.ClientID == "" {
		// Brokers drop the older session on a duplicate client id.
		q.ClientID = "modem-monitor-" + uuid.NewString()[:8]
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = DefaultListen
	}
}
