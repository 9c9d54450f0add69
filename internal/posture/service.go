package posture

import (
	"context"
	"fmt"
	"time"

	"posturewatch.org/internal/ids"
	"posturewatch.org/internal/obs"
)

// Service ties baseline capture, deviation detection, and violation
// recording together. One call per live sample: fetch the current
// baseline, evaluate, and record when the threshold is crossed.
type Service struct {
	store    Store
	detector *Detector
	recorder *Recorder
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the posture pipeline.
func NewService(store Store, detector *Detector, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		detector: detector,
		recorder: NewRecorder(store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureBaseline stores a new reference posture for the account. Prior
// baselines are retained; this one becomes current.
func (s *Service) CaptureBaseline(ctx context.Context, accountID string, landmarks []Landmark) (*Baseline, error) {
	if len(landmarks) == 0 {
		return nil, ErrEmptyLandmarks
	}
	baseline := &Baseline{
		ID:         ids.New(),
		AccountID:  accountID,
		Landmarks:  landmarks,
		CapturedAt: s.now().UTC(),
	}
	if err := s.store.PutBaseline(ctx, baseline); err != nil {
		return nil, fmt.Errorf("put baseline for account %s: %w", accountID, err)
	}
	return baseline, nil
}

// EvaluateSample scores a live sample against the account's current
// baseline and records a violation event when the threshold is crossed.
func (s *Service) EvaluateSample(ctx context.Context, accountID, sessionID string, landmarks []Landmark, at time.Time) (DeviationResult, error) {
	baseline, err := s.store.GetBaseline(ctx, accountID)
	if err != nil {
		return DeviationResult{}, err
	}
	result, err := s.detector.Evaluate(baseline, landmarks)
	if err != nil {
		return DeviationResult{}, err
	}

	obs.CountSample(result.IsViolation)
	if result.IsViolation {
		if at.IsZero() {
			at = s.now()
		}
		if _, err := s.recorder.Record(ctx, accountID, sessionID, result, at); err != nil {
			return DeviationResult{}, err
		}
	}
	return result, nil
}

// Stats returns the aggregate projection for an account and period.
func (s *Service) Stats(ctx context.Context, accountID, period string) (AggregateStats, error) {
	if period == "" {
		period = PeriodOf(s.now())
	}
	stats, err := s.store.GetAggregateStats(ctx, accountID, period)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("get stats for account %s: %w", accountID, err)
	}
	return stats, nil
}

// RebuildStats replays violation events into a fresh projection.
func (s *Service) RebuildStats(ctx context.Context, accountID, period string) (AggregateStats, error) {
	if period == "" {
		period = PeriodOf(s.now())
	}
	return s.recorder.RebuildStats(ctx, accountID, period)
}
