// Package batch drives admitted images one at a time through the
// remote classifier, tracking per-entry lifecycle state.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ai-detect/internal/admission"
	"github.com/example/ai-detect/internal/classifier"
	"github.com/example/ai-detect/internal/history"
	"github.com/example/ai-detect/internal/preview"
)

// Status is the lifecycle state of one queue entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// ErrRunInProgress is returned when a second sweep or a Clear is
// attempted while a run is active.
var ErrRunInProgress = errors.New("batch run already in progress")

// Entry wraps one admitted item with its mutable lifecycle fields.
// Entries are addressed by their generated ID, never by position.
type Entry struct {
	ID         string
	Item       admission.Item
	Status     Status
	Preview    string
	Result     *classifier.Result
	ErrMessage string
}

// Progress summarizes the queue state for display.
type Progress struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Queue is the batch controller. All mutation happens under its lock so
// readers never observe a half-updated entry.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
	running bool

	policy   admission.Policy
	client   classifier.Client
	ledger   *history.Ledger
	previews *preview.Loader
	delay    time.Duration
	logger   *zap.Logger
}

// NewQueue constructs an empty batch queue. delay is the idle wait
// imposed between successive submissions.
func NewQueue(policy admission.Policy, client classifier.Client, ledger *history.Ledger, previews *preview.Loader, delay time.Duration, logger *zap.Logger) *Queue {
	return &Queue{
		policy:   policy,
		client:   client,
		ledger:   ledger,
		previews: previews,
		delay:    delay,
		logger:   logger.Named("batch"),
	}
}

// Admit validates each candidate independently, appends an entry per
// admitted file in selection order, and schedules preview loading
// without blocking. It fails only when the entire selection was
// rejected.
func (q *Queue) Admit(candidates []admission.Item) (int, error) {
	admitted, rejected := q.policy.FilterAll(candidates)
	for _, r := range rejected {
		q.logger.Warn("file rejected at admission", zap.String("file", r.FileName), zap.String("reason", r.Reason))
	}
	if len(admitted) == 0 && len(candidates) > 0 {
		return 0, admission.Aggregate(rejected)
	}

	created := make([]*Entry, 0, len(admitted))
	q.mu.Lock()
	for _, item := range admitted {
		entry := &Entry{
			ID:     uuid.NewString(),
			Item:   item,
			Status: StatusPending,
		}
		q.entries = append(q.entries, entry)
		created = append(created, entry)
	}
	q.mu.Unlock()

	for _, entry := range created {
		q.previews.Schedule(entry.ID, entry.Item, q.attachPreview)
	}

	q.logger.Info("files admitted", zap.Int("admitted", len(admitted)), zap.Int("rejected", len(rejected)))
	return len(admitted), nil
}

// attachPreview merges a resolved preview back by id lookup.
func (q *Queue) attachPreview(id, dataURI string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.ID == id {
			entry.Preview = dataURI
			return
		}
	}
}

// Remove deletes a pending entry, preserving the relative order of the
// remaining entries. Entries past pending cannot be removed.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.ID != id {
			continue
		}
		if entry.Status != StatusPending {
			return fmt.Errorf("entry %s is %s, only pending entries can be removed", id, entry.Status)
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return nil
	}
	return fmt.Errorf("entry %s not found", id)
}

// Clear discards all entries. Forbidden while a run is in progress.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrRunInProgress
	}
	q.entries = nil
	return nil
}

// Run sweeps the queue in insertion order exactly once, submitting each
// still-pending entry sequentially with the configured pacing delay
// between submissions. Entries already terminal are skipped, so calling
// Run again after completion only picks up fresh admissions. At most
// one sweep may be active at a time.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrRunInProgress
	}
	q.running = true
	sweep := make([]*Entry, len(q.entries))
	copy(sweep, q.entries)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	submitted := 0
	for _, entry := range sweep {
		q.mu.Lock()
		if entry.Status != StatusPending {
			q.mu.Unlock()
			continue
		}
		q.mu.Unlock()

		// Pacing applies between submissions, never before the first or
		// after the last.
		if submitted > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.delay):
			}
		}

		q.mu.Lock()
		// The entry may have been removed while pacing.
		if !q.contains(entry.ID) || entry.Status != StatusPending {
			q.mu.Unlock()
			continue
		}
		entry.Status = StatusProcessing
		entry.Result = nil
		entry.ErrMessage = ""
		item := entry.Item
		q.mu.Unlock()

		q.logger.Info("submitting entry", zap.String("entry_id", entry.ID), zap.String("file", item.Name))
		result, err := q.client.Detect(ctx, item)
		submitted++

		q.mu.Lock()
		if err != nil {
			entry.Status = StatusError
			entry.ErrMessage = err.Error()
			q.mu.Unlock()
			q.logger.Warn("entry failed", zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		result.Preview = entry.Preview
		entry.Status = StatusCompleted
		entry.Result = result
		q.mu.Unlock()

		q.ledger.Record(*result)
		q.logger.Info("entry completed", zap.String("entry_id", entry.ID),
			zap.Bool("is_real", result.IsReal), zap.Float64("confidence", result.Confidence))
	}
	return nil
}

// contains reports membership of an entry id. Caller holds the lock.
func (q *Queue) contains(id string) bool {
	for _, entry := range q.entries {
		if entry.ID == id {
			return true
		}
	}
	return false
}

// Snapshot returns value copies of every entry in insertion order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	for i, entry := range q.entries {
		out[i] = *entry
	}
	return out
}

// Progress summarizes the current queue state.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := Progress{Total: len(q.entries)}
	for _, entry := range q.entries {
		switch entry.Status {
		case StatusPending:
			p.Pending++
		case StatusProcessing:
			p.Processing++
		case StatusCompleted:
			p.Completed++
		case StatusError:
			p.Failed++
		}
	}
	return p
}

// Len reports the number of entries in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
