// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caarlos0/env/v6"
)

// helper to build a minimal valid config quickly
func base() *Config {
	return &Config{
		Loader: LoaderConfig{
			Kind: LoaderHTTP,
			URL:  "http://backend.local/api",
		},
	}
}

// ---- tests ----

func TestValidate_MinimalHTTP(t *testing.T) {
	if err := Validate(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DefaultKindIsHTTP(t *testing.T) {
	cfg := base()
	cfg.Loader.Kind = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Loader.URL = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected missing url error, got nil")
	}
}

func TestValidate_FileLoaderRequiresPath(t *testing.T) {
	cfg := base()
	cfg.Loader = LoaderConfig{Kind: LoaderFile}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected missing path error, got nil")
	}

	cfg.Loader.Path = "fleet.yaml"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsUnknownLoader(t *testing.T) {
	cfg := base()
	cfg.Loader.Kind = "ftp"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected unsupported loader error, got nil")
	}
}

func TestValidate_RejectsNonHTTPScheme(t *testing.T) {
	cfg := base()
	cfg.Loader.URL = "ftp://backend.local"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected scheme error, got nil")
	}
}

func TestValidate_RejectsNegativeDurations(t *testing.T) {
	cases := map[string]func(c *Config){
		"interval":        func(c *Config) { c.Monitor.IntervalMs = -1 },
		"refresh":         func(c *Config) { c.Monitor.RefreshS = -1 },
		"throttle":        func(c *Config) { c.Monitor.ThrottleMs = -1 },
		"connect timeout": func(c *Config) { c.Connection.ConnectTimeoutS = -1 },
		"io timeout":      func(c *Config) { c.Connection.IOTimeoutS = -1 },
		"loader timeout":  func(c *Config) { c.Loader.TimeoutMs = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error for negative %s, got nil", name)
			}
		})
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := base()
	cfg.Logging = LoggingConfig{Level: "DEBUG", Format: "console", Output: "stderr"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected level error, got nil")
	}
}

func TestValidate_MQTTOnlyWhenEnabled(t *testing.T) {
	cfg := base()
	cfg.MQTT.QoS = 9 // ignored while disabled

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = "tcp://broker:1883"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected qos error, got nil")
	}

	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "modems/#"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected wildcard error, got nil")
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := base()
	before := *cfg

	_ = Validate(cfg)

	if *cfg != before {
		t.Fatalf("Validate mutated config: %+v -> %+v", before, *cfg)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := base()
	cfg.Loader.URL = "http://backend.local/api/"
	Normalize(cfg)

	if cfg.Monitor.Interval().Milliseconds() != DefaultIntervalMs {
		t.Fatalf("interval: got %v", cfg.Monitor.Interval())
	}
	if cfg.Monitor.RefreshInterval().Seconds() != DefaultRefreshS {
		t.Fatalf("refresh: got %v", cfg.Monitor.RefreshInterval())
	}
	if cfg.Monitor.Throttle().Milliseconds() != DefaultThrottleMs {
		t.Fatalf("throttle: got %v", cfg.Monitor.Throttle())
	}
	if !cfg.Monitor.PruneEnabled() {
		t.Fatalf("prune should default to enabled")
	}
	if cfg.Connection.ConnectTimeout().Seconds() != DefaultConnectTimeoutS {
		t.Fatalf("connect timeout: got %v", cfg.Connection.ConnectTimeout())
	}
	if cfg.Connection.IOTimeout().Seconds() != DefaultIOTimeoutS {
		t.Fatalf("io timeout: got %v", cfg.Connection.IOTimeout())
	}
	if cfg.Loader.URL != "http://backend.local/api" {
		t.Fatalf("url not trimmed: %q", cfg.Loader.URL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.MQTT.TopicPrefix != DefaultTopicPrefix {
		t.Fatalf("topic prefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if !strings.HasPrefix(cfg.MQTT.ClientID, "modem-monitor-") {
		t.Fatalf("client id: got %q", cfg.MQTT.ClientID)
	}
	if cfg.HTTP.Listen != DefaultListen {
		t.Fatalf("listen: got %q", cfg.HTTP.Listen)
	}
	if !cfg.HTTP.Enabled() {
		t.Fatalf("http surface should be served by default")
	}
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg := base()
	cfg.Monitor.RefreshS = 60
	cfg.MQTT.ClientID = "gw-1"
	cfg.MQTT.TopicPrefix = "/site/a/"
	Normalize(cfg)

	if cfg.Monitor.RefreshS != 60 {
		t.Fatalf("refresh overwritten: %d", cfg.Monitor.RefreshS)
	}
	if cfg.MQTT.ClientID != "gw-1" {
		t.Fatalf("client id overwritten: %q", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.TopicPrefix != "site/a" {
		t.Fatalf("topic prefix not trimmed: %q", cfg.MQTT.TopicPrefix)
	}
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
monitor:
  type: 2
  refresh_s: 120
loader:
  kind: http
  url: http://backend.local
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load(path, env.Options{
		Prefix: EnvPrefix,
		Environment: map[string]string{
			"MODEM_MONITOR_MONITOR_REFRESH_S":    "30",
			"MODEM_MONITOR_LOADER_TOKEN":         "secret",
			"MODEM_MONITOR_MONITOR_KEEP_MISSING": "true",
			"MODEM_MONITOR_MQTT_ENABLED":         "true",
			"MODEM_MONITOR_MQTT_BROKER":          "tcp://broker:1883",
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Monitor.Type != 2 {
		t.Fatalf("type from yaml: got %d", cfg.Monitor.Type)
	}
	if cfg.Monitor.RefreshS != 30 {
		t.Fatalf("refresh from env: got %d", cfg.Monitor.RefreshS)
	}
	if cfg.Loader.Token != "secret" {
		t.Fatalf("token from env: got %q", cfg.Loader.Token)
	}
	if cfg.Monitor.PruneEnabled() {
		t.Fatalf("keep_missing from env not applied")
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Fatalf("mqtt from env: %+v", cfg.MQTT)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level from yaml: got %q", cfg.Logging.Level)
	}
}

func TestLoad_HTTPServedUnlessDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
loader:
  url: http://backend.local
http:
  listen: ":9200"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load(path, env.Options{Prefix: EnvPrefix, Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.HTTP.Enabled() || cfg.HTTP.Listen != ":9200" {
		t.Fatalf("http from yaml: %+v", cfg.HTTP)
	}

	cfg, err = load(path, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{"MODEM_MONITOR_HTTP_DISABLED": "true"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Enabled() {
		t.Fatalf("http disabled from env not applied")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}
