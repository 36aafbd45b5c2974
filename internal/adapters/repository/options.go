package repository

import (
	"github.com/groupwork/peerval/internal/domain/model"
)

// Option applies a configuration option to the BatchStore.
type Option func(*BatchStore)

// WithCapacityHint pre-sizes the record slices for an expected batch size.
func WithCapacityHint(n int) Option {
	return func(s *BatchStore) {
		if n > 0 {
			s.records = make([]model.ResponseRecord, 0, n)
			s.feedback = make([]model.GroupFeedback, 0, n)
		}
	}
}
