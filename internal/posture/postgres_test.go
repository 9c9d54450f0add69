package posture

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGUpdateAggregateStatsIsAdditive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into aggregate_stats.*on conflict \\(account_id, period\\) do update").
		WithArgs("acc-1", "2026-03-01", int64(1), 1.5, 2.25).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	if err := store.UpdateAggregateStats(context.Background(), "acc-1", "2026-03-01", DeltaFor(1.5)); err != nil {
		t.Fatalf("UpdateAggregateStats: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGGetBaselinePicksMostRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	captured := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "account_id", "landmarks", "captured_at"}).
		AddRow("bl-2", "acc-1", []byte(`[{"x":1,"y":2,"z":0}]`), captured)
	mock.ExpectQuery("select id, account_id, landmarks, captured_at from baselines.*order by captured_at desc limit 1").
		WithArgs("acc-1").
		WillReturnRows(rows)

	store := NewPGStore(db)
	baseline, err := store.GetBaseline(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("GetBaseline: %v", err)
	}
	if baseline.ID != "bl-2" || len(baseline.Landmarks) != 1 || baseline.Landmarks[0].Y != 2 {
		t.Fatalf("unexpected baseline: %+v", baseline)
	}
}

func TestPGAppendViolationEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into violation_events").
		WithArgs(sqlmock.AnyArg(), "acc-1", "sess-1", sqlmock.AnyArg(), 2.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	err = store.AppendViolationEvent(context.Background(), &ViolationEvent{
		AccountID:  "acc-1",
		SessionID:  "sess-1",
		DetectedAt: time.Now().UTC(),
		Score:      2.0,
		Landmarks:  []Landmark{{X: 2, Y: 0}},
	})
	if err != nil {
		t.Fatalf("AppendViolationEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
