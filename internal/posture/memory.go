package posture

import (
	"context"
	"sync"
	"time"

	"posturewatch.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and single-node development runs.
type InMemory struct {
	mu        sync.RWMutex
	baselines map[string][]Baseline // account id -> history, oldest first
	events    []ViolationEvent
	stats     map[string]AggregateStats // account id + "\x00" + period
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		baselines: make(map[string][]Baseline),
		stats:     make(map[string]AggregateStats),
	}
}

func statsKey(accountID, period string) string {
	return accountID + "\x00" + period
}

func (s *InMemory) PutBaseline(ctx context.Context, b *Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = ids.New()
	}
	if b.CapturedAt.IsZero() {
		b.CapturedAt = time.Now().UTC()
	}
	cp := *b
	cp.Landmarks = append([]Landmark(nil), b.Landmarks...)
	s.baselines[b.AccountID] = append(s.baselines[b.AccountID], cp)
	return nil
}

func (s *InMemory) GetBaseline(ctx context.Context, accountID string) (*Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.baselines[accountID]
	if len(history) == 0 {
		return nil, ErrMissingBaseline
	}
	cp := history[len(history)-1]
	cp.Landmarks = append([]Landmark(nil), cp.Landmarks...)
	return &cp, nil
}

func (s *InMemory) AppendViolationEvent(ctx context.Context, e *ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	cp := *e
	cp.Landmarks = append([]Landmark(nil), e.Landmarks...)
	s.events = append(s.events, cp)
	return nil
}

func (s *InMemory) ListViolationEvents(ctx context.Context, accountID, period string) ([]ViolationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ViolationEvent
	for _, e := range s.events {
		if e.AccountID != accountID {
			continue
		}
		if period != "" && PeriodOf(e.DetectedAt) != period {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *InMemory) GetAggregateStats(ctx context.Context, accountID, period string) (AggregateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[statsKey(accountID, period)]
	if !ok {
		return AggregateStats{AccountID: accountID, Period: period}, nil
	}
	return stats, nil
}

func (s *InMemory) UpdateAggregateStats(ctx context.Context, accountID, period string, delta StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statsKey(accountID, period)
	stats, ok := s.stats[key]
	if !ok {
		stats = AggregateStats{AccountID: accountID, Period: period}
	}
	stats.ViolationCount += delta.Count
	stats.ScoreSum += delta.Sum
	stats.ScoreSumSq += delta.SumSq
	s.stats[key] = stats
	return nil
}

func (s *InMemory) ReplaceAggregateStats(ctx context.Context, stats AggregateStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[statsKey(stats.AccountID, stats.Period)] = stats
	return nil
}
