package posture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posturewatch.org/internal/ids"
)

// Recorder persists violation events and keeps the per-account aggregate
// projection current.
type Recorder struct {
	store Store
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends a violation event and applies its commutative stats
// increment. The event write is durable before the stats update is
// applied; each violating sample yields exactly one event.
func (r *Recorder) Record(ctx context.Context, accountID, sessionID string, result DeviationResult, at time.Time) (*ViolationEvent, error) {
	if !result.IsViolation {
		return nil, errors.New("posture: result is not a violation")
	}
	event := &ViolationEvent{
		ID:         ids.New(),
		AccountID:  accountID,
		SessionID:  sessionID,
		DetectedAt: at.UTC(),
		Score:      result.Score,
		Landmarks:  result.Landmarks,
	}
	if err := r.store.AppendViolationEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("append violation for account %s: %w", accountID, err)
	}
	if err := r.store.UpdateAggregateStats(ctx, accountID, PeriodOf(event.DetectedAt), DeltaFor(event.Score)); err != nil {
		return nil, fmt.Errorf("update stats for account %s: %w", accountID, err)
	}
	return event, nil
}

// RebuildStats recomputes the aggregate projection for an account and
// period by replaying its violation events, stores the result, and
// returns it. The replayed value matches the incrementally maintained one
// within floating-point tolerance for any interleaving of arrivals,
// because the increments are raw sums.
func (r *Recorder) RebuildStats(ctx context.Context, accountID, period string) (AggregateStats, error) {
	events, err := r.store.ListViolationEvents(ctx, accountID, period)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("replay events for account %s: %w", accountID, err)
	}
	stats := AggregateStats{AccountID: accountID, Period: period}
	for _, e := range events {
		stats.ViolationCount++
		stats.ScoreSum += e.Score
		stats.ScoreSumSq += e.Score * e.Score
	}
	if err := r.store.ReplaceAggregateStats(ctx, stats); err != nil {
		return AggregateStats{}, fmt.Errorf("replace stats for account %s: %w", accountID, err)
	}
	return stats, nil
}
