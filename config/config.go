package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tvremote/internal/domain"
)

type Config struct {
	// Device is the id or name of the TV commands go to by default.
	Device    string          `yaml:"device" toml:"device"`
	Devices   []DeviceConfig  `yaml:"devices" toml:"devices"`
	Session   SessionConfig   `yaml:"session" toml:"session"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Simulator SimulatorConfig `yaml:"simulator" toml:"simulator"`
	Backend   BackendConfig   `yaml:"backend" toml:"backend"`
	Pushover  PushoverConfig  `yaml:"pushover" toml:"pushover"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

type DeviceConfig struct {
	ID        string `yaml:"id" toml:"id"`
	Name      string `yaml:"name" toml:"name"`
	Brand     string `yaml:"brand" toml:"brand"`
	Model     string `yaml:"model" toml:"model"`
	IPAddress string `yaml:"ip_address" toml:"ip_address"`
	Port      int    `yaml:"port" toml:"port"`
}

type SessionConfig struct {
	ConnectTimeout string `yaml:"connect_timeout" toml:"connect_timeout"`
	AckTimeout     string `yaml:"ack_timeout" toml:"ack_timeout"`
	// MaxReconnectAttempts of -1 disables reconnecting.
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
	ReconnectDelay       string `yaml:"reconnect_delay" toml:"reconnect_delay"`
}

type StoreConfig struct {
	ErrorTTL string `yaml:"error_ttl" toml:"error_ttl"`
}

type SimulatorConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	DeviceID string `yaml:"device_id" toml:"device_id"`
	// History is "memory" or "sqlite".
	History     string  `yaml:"history" toml:"history"`
	HistoryPath string  `yaml:"history_path" toml:"history_path"`
	HistorySize int     `yaml:"history_size" toml:"history_size"`
	RateLimit   int     `yaml:"rate_limit" toml:"rate_limit"`
	RateWindow  string  `yaml:"rate_window" toml:"rate_window"`
	OfflineRate float64 `yaml:"offline_rate" toml:"offline_rate"`
	NoLatency   bool    `yaml:"no_latency" toml:"no_latency"`
}

type BackendConfig struct {
	URL          string `yaml:"url" toml:"url"`
	SyncInterval string `yaml:"sync_interval" toml:"sync_interval"`
}

type PushoverConfig struct {
	Token   string `yaml:"token" toml:"token"`
	UserKey string `yaml:"user_key" toml:"user_key"`
	Enabled bool   `yaml:"enabled" toml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// Format is "text", "json" or "auto" (text on a terminal, json otherwise).
	Format string `yaml:"format" toml:"format"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file" toml:"file"`
}

// Load reads a YAML file, or TOML when the path ends in .toml. Environment
// references like ${PUSHOVER_TOKEN} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(expanded, &cfg)
	} else {
		err = yaml.Unmarshal(expanded, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default is the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Session.ConnectTimeout == "" {
		c.Session.ConnectTimeout = "10s"
	}
	if c.Session.AckTimeout == "" {
		c.Session.AckTimeout = "5s"
	}
	if c.Session.MaxReconnectAttempts == 0 {
		c.Session.MaxReconnectAttempts = 5
	}
	if c.Session.ReconnectDelay == "" {
		c.Session.ReconnectDelay = "1s"
	}
	if c.Store.ErrorTTL == "" {
		c.Store.ErrorTTL = "5s"
	}
	if c.Simulator.Addr == "" {
		c.Simulator.Addr = ":8080"
	}
	if c.Simulator.DeviceID == "" {
		c.Simulator.DeviceID = "android-tv-living-room"
	}
	if c.Simulator.History == "" {
		c.Simulator.History = "memory"
	}
	if c.Simulator.HistoryPath == "" {
		c.Simulator.HistoryPath = "tvremote.db"
	}
	if c.Simulator.HistorySize == 0 {
		c.Simulator.HistorySize = 100
	}
	if c.Simulator.RateLimit == 0 {
		c.Simulator.RateLimit = 120
	}
	if c.Simulator.RateWindow == "" {
		c.Simulator.RateWindow = "1m"
	}
	if c.Backend.SyncInterval == "" {
		c.Backend.SyncInterval = "5m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
	for i := range c.Devices {
		if c.Devices[i].Port == 0 {
			c.Devices[i].Port = 8080
		}
		if c.Devices[i].Name == "" {
			c.Devices[i].Name = c.Devices[i].ID
		}
	}
}

func (c *Config) DeviceList() []domain.Device {
	devices := make([]domain.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		devices = append(devices, domain.Device{
			ID:        d.ID,
			Name:      d.Name,
			Brand:     d.Brand,
			Model:     d.Model,
			IPAddress: d.IPAddress,
			Port:      d.Port,
		})
	}
	return devices
}

// Duration parses value, returning fallback and the parse error when it is
// not a valid duration.
func Duration(value string, fallback time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}
