package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tvremote/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("TEST_PUSHOVER_TOKEN", "secret-token")

	path := writeFile(t, "config.yaml", `
device: living-room
devices:
  - id: living-room
    name: Living Room TV
    brand: Samsung
    ip_address: 192.168.1.100
    port: 6466
  - id: kitchen
    ip_address: 192.168.1.102
session:
  ack_timeout: 2s
pushover:
  token: ${TEST_PUSHOVER_TOKEN}
  enabled: true
log:
  format: json
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device != "living-room" {
		t.Errorf("device: got %q", cfg.Device)
	}
	if cfg.Pushover.Token != "secret-token" {
		t.Errorf("token not expanded: %q", cfg.Pushover.Token)
	}
	if cfg.Session.AckTimeout != "2s" || cfg.Session.ConnectTimeout != "10s" {
		t.Errorf("session: %+v", cfg.Session)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("log: %+v", cfg.Log)
	}

	devices := cfg.DeviceList()
	if len(devices) != 2 {
		t.Fatalf("devices: got %d", len(devices))
	}
	if devices[0].IPAddress != "192.168.1.100" || devices[0].Port != 6466 {
		t.Errorf("first device: %+v", devices[0])
	}
	if devices[1].Name != "kitchen" || devices[1].Port != 8080 {
		t.Errorf("defaults not applied to second device: %+v", devices[1])
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
device = "bedroom"

[[devices]]
id = "bedroom"
name = "Bedroom TV"
ip_address = "10.0.0.7"
port = 9000

[simulator]
addr = ":9090"
history = "sqlite"
rate_limit = 10

[backend]
url = "http://localhost:9090"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device != "bedroom" || len(cfg.Devices) != 1 || cfg.Devices[0].Port != 9000 {
		t.Errorf("devices: %+v", cfg.Devices)
	}
	if cfg.Simulator.Addr != ":9090" || cfg.Simulator.History != "sqlite" || cfg.Simulator.RateLimit != 10 {
		t.Errorf("simulator: %+v", cfg.Simulator)
	}
	if cfg.Simulator.HistorySize != 100 || cfg.Simulator.RateWindow != "1m" {
		t.Errorf("simulator defaults: %+v", cfg.Simulator)
	}
	if cfg.Backend.URL != "http://localhost:9090" || cfg.Backend.SyncInterval != "5m" {
		t.Errorf("backend: %+v", cfg.Backend)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeFile(t, "bad.yaml", "devices: [unterminated")
	if _, err := config.Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Session.MaxReconnectAttempts != 5 || cfg.Store.ErrorTTL != "5s" {
		t.Errorf("defaults: %+v %+v", cfg.Session, cfg.Store)
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("log format: %q", cfg.Log.Format)
	}
}

func TestDuration(t *testing.T) {
	d, err := config.Duration("250ms", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("got %v, %v", d, err)
	}

	d, err = config.Duration("soon", time.Second)
	if err == nil || d != time.Second {
		t.Errorf("expected fallback with error, got %v, %v", d, err)
	}
}
