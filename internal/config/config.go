// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MODEM_MONITOR_LOADER_URL.
const EnvPrefix = "MODEM_MONITOR_"

type Config struct {
	Monitor    MonitorConfig    `yaml:"monitor" envPrefix:"MONITOR_"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"CONNECTION_"`
	Loader     LoaderConfig     `yaml:"loader" envPrefix:"LOADER_"`
	Logging    LoggingConfig    `yaml:"logging" envPrefix:"LOG_"`
	MQTT       MQTTConfig       `yaml:"mqtt" envPrefix:"MQTT_"`
	HTTP       HTTPConfig       `yaml:"http" envPrefix:"HTTP_"`
}

// ---- MONITOR ----

type MonitorConfig struct {
	Type       int `yaml:"type" env:"TYPE"`
	IntervalMs int `yaml:"interval_ms" env:"INTERVAL_MS"` // pause between ticks
	RefreshS   int `yaml:"refresh_s" env:"REFRESH_S"`     // loader refresh period
	ThrottleMs int `yaml:"throttle_ms" env:"THROTTLE_MS"` // pause between devices

	// KeepMissing retains devices that disappear from a refresh.
	KeepMissing bool `yaml:"keep_missing" env:"KEEP_MISSING"`
}

// ---- CONNECTION ----

type ConnectionConfig struct {
	ConnectTimeoutS int `yaml:"connect_timeout_s" env:"CONNECT_TIMEOUT_S"`
	IOTimeoutS      int `yaml:"io_timeout_s" env:"IO_TIMEOUT_S"`
}

// ---- LOADER ----

const (
	LoaderHTTP = "http"
	LoaderFile = "file"
)

type LoaderConfig struct {
	Kind      string `yaml:"kind" env:"KIND"`
	URL       string `yaml:"url" env:"URL"`
	Token     string `yaml:"token" env:"TOKEN"`
	Path      string `yaml:"path" env:"PATH"`
	TimeoutMs int    `yaml:"timeout_ms" env:"TIMEOUT_MS"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // json, console
	Output string `yaml:"output" env:"OUTPUT"` // stdout, stderr
}

// ---- MQTT ----

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Broker      string `yaml:"broker" env:"BROKER"`
	ClientID    string `yaml:"client_id" env:"CLIENT_ID"`
	Username    string `yaml:"username" env:"USERNAME"`
	Password    string `yaml:"password" env:"PASSWORD"`
	TopicPrefix string `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	QoS         int    `yaml:"qos" env:"QOS"`
	Retained    bool   `yaml:"retained" env:"RETAINED"`
}

// ---- HTTP ----

// HTTPConfig configures the status surface. It is served unless Disabled is set.
type HTTPConfig struct {
	Disabled bool   `yaml:"disabled" env:"DISABLED"`
	Listen   string `yaml:"listen" env:"LISTEN"`
}

// Enabled reports whether the status surface is served.
func (c HTTPConfig) Enabled() bool {
	return !c.Disabled
}

// Load reads a YAML file and applies environment overrides.
// It does not validate; call Validate then Normalize.
func Load(path string) (*Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

func load(path string, opts env.Options) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

// ---- durations ----

func (c MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c MonitorConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshS) * time.Second
}

func (c MonitorConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

// PruneEnabled reports whether devices missing from a refresh are dropped.
func (c MonitorConfig) PruneEnabled() bool {
	return !c.KeepMissing
}

func (c ConnectionConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutS) * time.Second
}

func (c ConnectionConfig) IOTimeout() time.Duration {
	return time.Duration(c.IOTimeoutS) * time.Second
}

func (c LoaderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
