// Package history keeps the session-scoped log of completed analyses.
package history

import (
	"sync"

	"github.com/example/ai-detect/internal/classifier"
)

// Ledger is an ordered, most-recent-first log of every completed
// result. It lives in process memory only and never expires entries.
type Ledger struct {
	mu      sync.Mutex
	records []classifier.Result
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record prepends a completed result. Identical analyses of the same
// file produce distinct entries.
func (l *Ledger) Record(result classifier.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]classifier.Result{result}, l.records...)
}

// All returns a copy of the log, most recent first.
func (l *Ledger) All() []classifier.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]classifier.Result, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the number of recorded results.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Clear empties the log.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
