package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/groupwork/peerval/internal/domain/model"
)

// BatchStore implements Store with mutex-guarded append-only slices. A batch
// is written once by the worker pool and read once by the controller, so
// sorting happens at snapshot time rather than on insert.
type BatchStore struct {
	mu       sync.Mutex
	records  []model.ResponseRecord
	rejected []model.ResponseRecord
	feedback []model.GroupFeedback
}

// NewBatchStore creates an empty batch store with configuration options.
func NewBatchStore(_ context.Context, opts ...Option) *BatchStore {
	s := &BatchStore{}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddRecords appends admitted records.
func (s *BatchStore) AddRecords(_ context.Context, recs ...model.ResponseRecord) {
	if len(recs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recs...)
}

// AddRejected appends out-of-range records kept for inspection.
func (s *BatchStore) AddRejected(_ context.Context, recs ...model.ResponseRecord) {
	if len(recs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, recs...)
}

// AddFeedback appends per-form overarching comments.
func (s *BatchStore) AddFeedback(_ context.Context, fb ...model.GroupFeedback) {
	if len(fb) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb...)
}

// Records returns a sorted copy of the admitted records.
func (s *BatchStore) Records(_ context.Context) []model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.records)
}

// Collated returns a sorted copy of admitted plus rejected records.
func (s *BatchStore) Collated(_ context.Context) []model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.ResponseRecord, 0, len(s.records)+len(s.rejected))
	all = append(all, s.records...)
	all = append(all, s.rejected...)
	return sortedRecords(all)
}

// Feedback returns a sorted copy of the per-form comments.
func (s *BatchStore) Feedback(_ context.Context) []model.GroupFeedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GroupFeedback, len(s.feedback))
	copy(out, s.feedback)
	sort.Slice(out, func(a, b int) bool {
		if out[a].Group != out[b].Group {
			return out[a].Group < out[b].Group
		}
		if out[a].Respondent != out[b].Respondent {
			return out[a].Respondent < out[b].Respondent
		}
		return out[a].SourcePath < out[b].SourcePath
	})
	return out
}

// Counts returns the number of admitted and rejected records.
func (s *BatchStore) Counts(_ context.Context) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), len(s.rejected)
}

// sortedRecords copies and sorts records by the output key.
func sortedRecords(recs []model.ResponseRecord) []model.ResponseRecord {
	out := make([]model.ResponseRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(a, b int) bool {
		if out[a].Group != out[b].Group {
			return out[a].Group < out[b].Group
		}
		if out[a].Respondent != out[b].Respondent {
			return out[a].Respondent < out[b].Respondent
		}
		if out[a].Member != out[b].Member {
			return out[a].Member < out[b].Member
		}
		return out[a].SourcePath < out[b].SourcePath
	})
	return out
}
