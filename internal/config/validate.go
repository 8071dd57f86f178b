// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are accepted where Normalize supplies a default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}

	// ------------------------------------------------------------
	// MONITOR
	// ------------------------------------------------------------

	m := cfg.Monitor
	if m.Type < 0 {
		return fmt.Errorf("monitor.type must be >= 0, got %d", m.Type)
	}
	if m.IntervalMs < 0 {
		return fmt.Errorf("monitor.interval_ms must be >= 0, got %d", m.IntervalMs)
	}
	if m.RefreshS < 0 {
		return fmt.Errorf("monitor.refresh_s must be >= 0, got %d", m.RefreshS)
	}
	if m.ThrottleMs < 0 {
		return fmt.Errorf("monitor.throttle_ms must be >= 0, got %d", m.ThrottleMs)
	}

	// ------------------------------------------------------------
	// CONNECTION
	// ------------------------------------------------------------

	if cfg.Connection.ConnectTimeoutS < 0 {
		return fmt.Errorf("connection.connect_timeout_s must be >= 0, got %d", cfg.Connection.ConnectTimeoutS)
	}
	if cfg.Connection.IOTimeoutS < 0 {
		return fmt.Errorf("connection.io_timeout_s must be >= 0, got %d", cfg.Connection.IOTimeoutS)
	}

	// ------------------------------------------------------------
	// LOADER
	// ------------------------------------------------------------

	l := cfg.Loader
	switch strings.ToLower(l.Kind) {
	case "", LoaderHTTP:
		if l.URL == "" {
			return fmt.Errorf("loader.url is required for the http loader")
		}
		u, err := url.Parse(l.URL)
		if err != nil {
			return fmt.Errorf("loader.url %q: %v", l.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("loader.url %q: scheme must be http or https", l.URL)
		}
	case LoaderFile:
		if l.Path == "" {
			return fmt.Errorf("loader.path is required for the file loader")
		}
	default:
		return fmt.Errorf("loader.kind %q is not supported (use http or file)", l.Kind)
	}
	if l.TimeoutMs < 0 {
		return fmt.Errorf("loader.timeout_ms must be >= 0, got %d", l.TimeoutMs)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if !oneOf(cfg.Logging.Level, "", "debug", "info", "warn", "warning", "error") {
		return fmt.Errorf("logging.level %q is not supported", cfg.Logging.Level)
	}
	if !oneOf(cfg.Logging.Format, "", "json", "console") {
		return fmt.Errorf("logging.format %q is not supported", cfg.Logging.Format)
	}
	if !oneOf(cfg.Logging.Output, "", "stdout", "stderr") {
		return fmt.Errorf("logging.output %q is not supported", cfg.Logging.Output)
	}

	// ------------------------------------------------------------
	// MQTT (opt-in)
	// ------------------------------------------------------------

	if q := cfg.MQTT; q.Enabled {
		if q.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if q.QoS < 0 || q.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", q.QoS)
		}
		if strings.ContainsAny(q.TopicPrefix, "+#") {
			return fmt.Errorf("mqtt.topic_prefix %q must not contain wildcards", q.TopicPrefix)
		}
	}

	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
