package pipeline

import (
	"sync"

	"github.com/stellarhealth/feedload/internal/etlerr"
)

// Accumulator collects coded detail entries across the per-chunk units of
// work. Safe for parallel use; detail order is arrival order.
type Accumulator struct {
	mu        sync.Mutex
	details   []string
	rowErrors int
}

// Detail records a non-fatal anomaly.
func (a *Accumulator) Detail(entry string) {
	a.mu.Lock()
	a.details = append(a.details, entry)
	a.mu.Unlock()
}

// RowError records a row-level drop. It reports false once the file's error
// count crosses the threshold, telling the caller to abandon the rest of
// the file.
func (a *Accumulator) RowError(entry string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rowErrors++
	if a.rowErrors > etlerr.MaxRowErrors() {
		return false
	}
	a.details = append(a.details, entry)
	return true
}

// RowErrors returns how many rows were dropped.
func (a *Accumulator) RowErrors() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rowErrors
}

// Details returns the accumulated entries in arrival order.
func (a *Accumulator) Details() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.details...)
}
