package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tvremote/internal/application"
	"tvremote/internal/domain"
)

// Static is a device source backed by a fixed list, typically from config.
type Static []domain.Device

func (s Static) Discover(_ context.Context) ([]domain.Device, error) {
	out := make([]domain.Device, len(s))
	copy(out, s)
	return out, nil
}

// Registry merges the devices reported by its sources. A device seen by
// more than one source keeps the entry of the first source listing it.
type Registry struct {
	sources []application.DeviceSource
	logger  *slog.Logger

	mu      sync.RWMutex
	devices []domain.Device
	index   map[string]*domain.Device
}

func NewRegistry(logger *slog.Logger, sources ...application.DeviceSource) *Registry {
	return &Registry{
		sources: sources,
		logger:  logger,
		index:   make(map[string]*domain.Device),
	}
}

func (r *Registry) Sync(ctx context.Context) error {
	r.logger.Info("syncing devices", "sources", len(r.sources))

	var (
		devices []domain.Device
		seen    = make(map[string]bool)
		errs    []error
	)
	for i, src := range r.sources {
		found, err := src.Discover(ctx)
		if err != nil {
			r.logger.Warn("device source failed", "source", i, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, d := range found {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			devices = append(devices, d)
		}
	}

	if len(r.sources) > 0 && len(errs) == len(r.sources) {
		return fmt.Errorf("fetching devices: %w", errors.Join(errs...))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = devices
	r.index = make(map[string]*domain.Device, 2*len(devices))
	for i := range r.devices {
		r.index[r.devices[i].ID] = &r.devices[i]
		r.index[strings.ToLower(r.devices[i].Name)] = &r.devices[i]
	}

	r.logger.Info("sync complete", "devices", len(r.devices))
	return nil
}

func (r *Registry) Devices() []domain.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Device, len(r.devices))
	copy(result, r.devices)
	return result
}

// FindDevice matches an exact id, then an exact name, then a name
// containing the query. Matching on names ignores case.
func (r *Registry) FindDevice(idOrName string) (*domain.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.index[strings.TrimSpace(idOrName)]; ok {
		found := *d
		return &found, true
	}

	key := strings.ToLower(strings.TrimSpace(idOrName))
	if key == "" {
		return nil, false
	}
	if d, ok := r.index[key]; ok {
		found := *d
		return &found, true
	}

	for _, d := range r.devices {
		if strings.Contains(strings.ToLower(d.Name), key) {
			return &d, true
		}
	}

	return nil, false
}

func (r *Registry) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("Available TVs:\n")
	for _, d := range r.devices {
		fmt.Fprintf(&sb, "- %s [%s] %s %s at %s:%d\n", d.Name, d.ID, d.Brand, d.Model, d.IPAddress, d.Port)
	}

	return sb.String()
}

func (r *Registry) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Sync(ctx); err != nil {
					r.logger.Error("periodic sync failed", "error", err)
				}
			}
		}
	}()
}
