package jobs

import (
	"sync"

	"clip-analyzer/internal/domain"
)

// DefaultHistoryLimit bounds Recent queries when the caller passes no limit.
const DefaultHistoryLimit = 50

// History is the append-only record of finished batches. The scheduler
// appends; query paths only read, so a read/write lock is enough.
type History struct {
	mu      sync.RWMutex
	results []domain.BatchResult
}

// NewHistory creates an empty history store.
func NewHistory() *History {
	return &History{}
}

// Archive appends one terminal batch result. No deduplication.
func (h *History) Archive(result domain.BatchResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
}

// Recent returns the most recent limit entries, oldest-first within that
// window. A non-positive limit falls back to DefaultHistoryLimit.
func (h *History) Recent(limit int) []domain.BatchResult {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if len(h.results) > limit {
		start = len(h.results) - limit
	}
	out := make([]domain.BatchResult, len(h.results)-start)
	copy(out, h.results[start:])
	return out
}

// Clear empties the history. Active jobs are unaffected.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = nil
}

// Len returns the number of archived batches.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// Totals holds the aggregate inputs statistics are derived from.
type Totals struct {
	Entries         int
	Completed       int
	Failed          int
	ExecutionTimeMs int64
	ClipsProcessed  int
}

// Totals recomputes aggregate counters over the full history.
func (h *History) Totals() Totals {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totals := Totals{Entries: len(h.results)}
	for _, result := range h.results {
		switch result.Status {
		case domain.BatchStatusCompleted:
			totals.Completed++
		case domain.BatchStatusFailed:
			totals.Failed++
		}
		totals.ExecutionTimeMs += result.ExecutionTimeMs
		totals.ClipsProcessed += result.TotalProcessed
	}
	return totals
}
