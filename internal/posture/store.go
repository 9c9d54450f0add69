package posture

import "context"

// Store describes persistence operations required by the posture pipeline.
// Implementations must apply UpdateAggregateStats atomically; updates are
// commutative increments, so concurrent application order does not matter.
type Store interface {
	// PutBaseline appends a baseline. History is retained; the current
	// baseline is the most recently captured one.
	PutBaseline(ctx context.Context, b *Baseline) error
	// GetBaseline returns the current baseline, ErrMissingBaseline when
	// the account never captured one.
	GetBaseline(ctx context.Context, accountID string) (*Baseline, error)

	AppendViolationEvent(ctx context.Context, e *ViolationEvent) error
	ListViolationEvents(ctx context.Context, accountID, period string) ([]ViolationEvent, error)

	GetAggregateStats(ctx context.Context, accountID, period string) (AggregateStats, error)
	UpdateAggregateStats(ctx context.Context, accountID, period string, delta StatsDelta) error
	ReplaceAggregateStats(ctx context.Context, stats AggregateStats) error
}
