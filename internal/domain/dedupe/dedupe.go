// Package dedupe tracks duplicate submissions within a batch.
//
// Policy (deterministic and documented, see DESIGN.md): the first form for a
// (group, respondent) pair in lexicographic path order is retained for
// aggregation; every later form for the same pair is excluded entirely and
// reported as a warning naming both files. Callers feed submissions in
// sorted path order, so the retained form never depends on discovery or
// scheduling order.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records seen (group, respondent) submissions so duplicates can be
// excluded deterministically.
type Tracker interface {
	// SeenAndRecord atomically checks whether the pair was already seen and
	// records path as its submission if not. It returns the retained path
	// and true when the pair was already seen, or path and false when this
	// submission is the first.
	SeenAndRecord(ctx context.Context, group, respondent, path string) (retained string, dup bool)

	// Size returns the number of distinct (group, respondent) pairs seen.
	Size() int64
}

type submissionKey struct {
	group      string
	respondent string
}

// inMemoryTracker implements Tracker with a mutex-guarded map. A batch is
// bounded by the number of discovered forms, so no eviction is needed.
type inMemoryTracker struct {
	mu   sync.Mutex
	seen map[submissionKey]string // pair -> retained form path
	size atomic.Int64
}

// Option applies a configuration option to the tracker.
type Option func(*inMemoryTracker)

// WithCapacityHint pre-sizes the tracker for an expected number of forms.
func WithCapacityHint(n int) Option {
	return func(t *inMemoryTracker) {
		if n > 0 {
			t.seen = make(map[submissionKey]string, n)
		}
	}
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		seen: make(map[submissionKey]string),
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SeenAndRecord atomically checks and records a submission.
func (t *inMemoryTracker) SeenAndRecord(_ context.Context, group, respondent, path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := submissionKey{group: group, respondent: respondent}
	if retained, ok := t.seen[k]; ok {
		return retained, true
	}
	t.seen[k] = path
	t.size.Add(1)
	return path, false
}

// Size returns the number of distinct pairs recorded.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
