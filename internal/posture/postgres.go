package posture

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"posturewatch.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Landmark sets are stored as
// JSON columns; aggregate stats rows are upserted with additive updates so
// concurrent writers commute.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) PutBaseline(ctx context.Context, b *Baseline) error {
	if b.ID == "" {
		b.ID = ids.New()
	}
	landmarks, err := json.Marshal(b.Landmarks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into baselines(id, account_id, landmarks, captured_at) values($1,$2,$3,$4)`,
		b.ID, b.AccountID, landmarks, b.CapturedAt,
	)
	return err
}

func (s *PGStore) GetBaseline(ctx context.Context, accountID string) (*Baseline, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, account_id, landmarks, captured_at from baselines
		 where account_id=$1 order by captured_at desc limit 1`, accountID)
	var (
		b   Baseline
		raw []byte
	)
	err := row.Scan(&b.ID, &b.AccountID, &raw, &b.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMissingBaseline
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &b.Landmarks); err != nil {
		return nil, fmt.Errorf("decode baseline %s: %w", b.ID, err)
	}
	return &b, nil
}

func (s *PGStore) AppendViolationEvent(ctx context.Context, e *ViolationEvent) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	landmarks, err := json.Marshal(e.Landmarks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into violation_events(id, account_id, session_id, detected_at, score, landmarks)
		 values($1,$2,$3,$4,$5,$6)`,
		e.ID, e.AccountID, e.SessionID, e.DetectedAt, e.Score, landmarks,
	)
	return err
}

func (s *PGStore) ListViolationEvents(ctx context.Context, accountID, period string) ([]ViolationEvent, error) {
	query := `select id, account_id, session_id, detected_at, score, landmarks
		 from violation_events where account_id=$1 order by detected_at asc`
	args := []any{accountID}
	if period != "" {
		query = `select id, account_id, session_id, detected_at, score, landmarks
		 from violation_events where account_id=$1 and to_char(detected_at at time zone 'UTC', 'YYYY-MM-DD')=$2
		 order by detected_at asc`
		args = append(args, period)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ViolationEvent
	for rows.Next() {
		var (
			e   ViolationEvent
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.SessionID, &e.DetectedAt, &e.Score, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Landmarks); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PGStore) GetAggregateStats(ctx context.Context, accountID, period string) (AggregateStats, error) {
	row := s.db.QueryRowContext(ctx,
		`select account_id, period, violation_count, score_sum, score_sum_sq
		 from aggregate_stats where account_id=$1 and period=$2`, accountID, period)
	var stats AggregateStats
	err := row.Scan(&stats.AccountID, &stats.Period, &stats.ViolationCount, &stats.ScoreSum, &stats.ScoreSumSq)
	if errors.Is(err, sql.ErrNoRows) {
		return AggregateStats{AccountID: accountID, Period: period}, nil
	}
	if err != nil {
		return AggregateStats{}, err
	}
	return stats, nil
}

func (s *PGStore) UpdateAggregateStats(ctx context.Context, accountID, period string, delta StatsDelta) error {
	_, err := s.db.ExecContext(ctx, `
		insert into aggregate_stats(account_id, period, violation_count, score_sum, score_sum_sq)
		values ($1,$2,$3,$4,$5)
		on conflict (account_id, period) do update
		set violation_count = aggregate_stats.violation_count + excluded.violation_count,
		    score_sum = aggregate_stats.score_sum + excluded.score_sum,
		    score_sum_sq = aggregate_stats.score_sum_sq + excluded.score_sum_sq
	`, accountID, period, delta.Count, delta.Sum, delta.SumSq)
	return err
}

func (s *PGStore) ReplaceAggregateStats(ctx context.Context, stats AggregateStats) error {
	_, err := s.db.ExecContext(ctx, `
		insert into aggregate_stats(account_id, period, violation_count, score_sum, score_sum_sq)
		values ($1,$2,$3,$4,$5)
		on conflict (account_id, period) do update
		set violation_count = excluded.violation_count,
		    score_sum = excluded.score_sum,
		    score_sum_sq = excluded.score_sum_sq
	`, stats.AccountID, stats.Period, stats.ViolationCount, stats.ScoreSum, stats.ScoreSumSq)
	return err
}
