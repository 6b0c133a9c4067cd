package simulator

import (
	"context"
	"sync"

	"tvremote/internal/domain"
)

const DefaultHistorySize = 100

// History keeps executed commands. Recent returns the newest entries first,
// optionally filtered by device, along with the total number of matching
// entries still retained.
type History interface {
	Record(ctx context.Context, rec domain.CommandRecord) error
	Recent(ctx context.Context, deviceID string, limit int) ([]domain.CommandRecord, int, error)
}

// MemoryHistory is a fixed size ring of the most recent records.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []domain.CommandRecord
	next    int
	full    bool
}

func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryHistory{entries: make([]domain.CommandRecord, size)}
}

func (h *MemoryHistory) Record(_ context.Context, rec domain.CommandRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = rec
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, deviceID string, limit int) ([]domain.CommandRecord, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.next
	if h.full {
		count = len(h.entries)
	}

	var out []domain.CommandRecord
	total := 0
	for i := 1; i <= count; i++ {
		rec := h.entries[(h.next-i+len(h.entries))%len(h.entries)]
		if deviceID != "" && rec.DeviceID != deviceID {
			continue
		}
		total++
		if limit <= 0 || len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, total, nil
}
