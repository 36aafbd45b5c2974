// Package repository defines the batch store interface and errors.
//
// The store is the single collection point for everything parse workers
// produce. It is append-only during a run; snapshots sort by the output key
// (group, respondent, member) so results never depend on completion order.
package repository

import (
	"context"

	"github.com/groupwork/peerval/internal/domain/model"
)

// Store collects parsed batch data across workers.
type Store interface {
	// AddRecords appends records admitted to aggregation.
	AddRecords(ctx context.Context, recs ...model.ResponseRecord)

	// AddRejected appends complete records excluded from aggregation
	// (out-of-range scores); they still appear in the collated output.
	AddRejected(ctx context.Context, recs ...model.ResponseRecord)

	// AddFeedback appends one overarching comment per parsed form.
	AddFeedback(ctx context.Context, fb ...model.GroupFeedback)

	// Records returns a sorted copy of the admitted records.
	Records(ctx context.Context) []model.ResponseRecord

	// Collated returns a sorted copy of admitted plus rejected records,
	// the raw table surfaced for inspection.
	Collated(ctx context.Context) []model.ResponseRecord

	// Feedback returns a sorted copy of the per-form comments.
	Feedback(ctx context.Context) []model.GroupFeedback

	// Counts returns how many records were admitted and rejected.
	Counts(ctx context.Context) (admitted, rejected int)
}
