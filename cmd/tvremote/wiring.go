package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tvremote/config"
	"tvremote/internal/application"
	"tvremote/internal/backoff"
	"tvremote/internal/domain"
	"tvremote/internal/infra/httpcmd"
	"tvremote/internal/infra/pushover"
	"tvremote/internal/infra/registry"
	"tvremote/internal/infra/ws"
)

var errNoBackend = errors.New("no command backend configured (set backend.url)")

func (a *app) duration(name, value string, fallback time.Duration) time.Duration {
	d, err := config.Duration(value, fallback)
	if err != nil {
		a.logger.Warn("invalid duration, using default", "setting", name, "error", err, "default", fallback)
	}
	return d
}

func (a *app) sessionConfig() application.SessionConfig {
	defaults := application.DefaultSessionConfig()
	sc := a.cfg.Session

	attempts := sc.MaxReconnectAttempts
	if attempts < 0 {
		attempts = 0
	}

	return application.SessionConfig{
		ConnectTimeout:       a.duration("session.connect_timeout", sc.ConnectTimeout, defaults.ConnectTimeout),
		AckTimeout:           a.duration("session.ack_timeout", sc.AckTimeout, defaults.AckTimeout),
		MaxReconnectAttempts: attempts,
		Backoff:              backoff.Linear(a.duration("session.reconnect_delay", sc.ReconnectDelay, time.Second)),
	}
}

func (a *app) newSession() *application.Session {
	return application.NewSession(ws.NewDialer(a.logger), a.sessionConfig(), a.logger)
}

func (a *app) newStore(session *application.Session) *application.RemoteStore {
	ttl := a.duration("store.error_ttl", a.cfg.Store.ErrorTTL, 5*time.Second)
	return application.NewRemoteStore(session, application.StoreConfig{ErrorTTL: ttl}, a.logger)
}

func (a *app) newNotifier() application.Notifier {
	if a.cfg.Pushover.Enabled {
		return pushover.NewClient(a.cfg.Pushover.Token, a.cfg.Pushover.UserKey)
	}
	return &application.NoopNotifier{}
}

func (a *app) backend(deviceID string) (*httpcmd.Client, error) {
	if a.cfg.Backend.URL == "" {
		return nil, errNoBackend
	}
	return httpcmd.NewClient(strings.TrimRight(a.cfg.Backend.URL, "/"), deviceID), nil
}

// newRegistry lists configured devices first, then whatever the command
// backend discovers.
func (a *app) newRegistry() application.DeviceRegistry {
	sources := []application.DeviceSource{registry.Static(a.cfg.DeviceList())}
	if client, err := a.backend(""); err == nil {
		sources = append(sources, client)
	}
	return registry.NewRegistry(a.logger, sources...)
}

// devices returns the registry shared by the current command.
func (a *app) devices() application.DeviceRegistry {
	if a.registry == nil {
		a.registry = a.newRegistry()
	}
	return a.registry
}

func (a *app) syncInterval() time.Duration {
	const fallback = 5 * time.Minute
	d := a.duration("backend.sync_interval", a.cfg.Backend.SyncInterval, fallback)
	if d <= 0 {
		a.logger.Warn("sync interval must be positive, using default", "value", a.cfg.Backend.SyncInterval, "default", fallback)
		return fallback
	}
	return d
}

// watchDevices keeps the shared registry in step with the command backend
// until ctx ends. Without a backend the device list is static.
func (a *app) watchDevices(ctx context.Context) application.DeviceRegistry {
	reg := a.devices()
	if a.cfg.Backend.URL != "" {
		reg.StartPeriodicSync(ctx, a.syncInterval())
	}
	return reg
}

// resolveDevice finds the device named by query, or the configured default.
// With neither, a registry holding a single device resolves to it.
func (a *app) resolveDevice(ctx context.Context, reg application.DeviceRegistry, query string) (domain.Device, error) {
	if query == "" {
		query = a.cfg.Device
	}

	if err := reg.Sync(ctx); err != nil {
		return domain.Device{}, fmt.Errorf("loading devices: %w", err)
	}

	if query == "" {
		devices := reg.Devices()
		if len(devices) == 1 {
			return devices[0], nil
		}
		return domain.Device{}, errors.New("no device selected: use --device or set device in the config")
	}

	d, ok := reg.FindDevice(query)
	if !ok {
		return domain.Device{}, fmt.Errorf("device %q not found", query)
	}
	return *d, nil
}
