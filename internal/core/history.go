package core

import (
	"sync"
	"time"

	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/google/uuid"
)

// DefaultHistorySize is the number of loads a History keeps when no size
// is given.
const DefaultHistorySize = 100

// HistoryEntry is one finished load.
type HistoryEntry struct {
	File      string      `json:"file"`
	Finished  time.Time   `json:"finished"`
	IPAddress string      `json:"ip_address,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
	APIKey    string      `json:"api_key,omitempty"`
	Report    load.Report `json:"report"`
}

// History keeps the most recent loads in memory, newest last. It is safe
// for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	next    int
	full    bool
}

// NewHistory returns a history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{entries: make([]HistoryEntry, size)}
}

// Add records e, evicting the oldest entry when full.
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.next
	if h.full {
		count = len(h.entries)
	}
	if n <= 0 || n > count {
		n = count
	}
	out := make([]HistoryEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Find returns the newest entry of the given run.
func (h *History) Find(runID uuid.UUID) (HistoryEntry, bool) {
	for _, e := range h.Recent(0) {
		if e.Report.RunID == runID {
			return e, true
		}
	}
	return HistoryEntry{}, false
}
