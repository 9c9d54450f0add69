package posture

import (
	"math"
	"time"
)

// Landmark is a single posture keypoint in the capture's unit space.
// Two-dimensional captures leave Z at zero.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance to another landmark.
func (l Landmark) DistanceTo(o Landmark) float64 {
	dx := l.X - o.X
	dy := l.Y - o.Y
	dz := l.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Baseline is the reference landmark set a user designates as correct
// posture. Baselines are append-only; the current one is the most recent.
type Baseline struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	Landmarks  []Landmark `json:"landmarks"`
	CapturedAt time.Time  `json:"captured_at"`
}

// DeviationResult classifies a live sample against a baseline.
type DeviationResult struct {
	Score       float64    `json:"score"`
	IsViolation bool       `json:"is_violation"`
	Landmarks   []Landmark `json:"-"`
}

// ViolationEvent is an append-only record of a sample that crossed the
// deviation threshold. Never mutated after creation.
type ViolationEvent struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	SessionID  string     `json:"session_id,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
	Score      float64    `json:"deviation_score"`
	Landmarks  []Landmark `json:"landmark_snapshot"`
}

// AggregateStats is a read-side projection over violation events. It
// stores raw sufficient statistics so concurrent incremental updates
// commute; the mean is derived on read. Always rebuildable by replaying
// the events for the account and period.
type AggregateStats struct {
	AccountID      string  `json:"account_id"`
	Period         string  `json:"period"`
	ViolationCount int64   `json:"violation_count"`
	ScoreSum       float64 `json:"-"`
	ScoreSumSq     float64 `json:"-"`
}

// MeanScore derives the mean deviation score.
func (s AggregateStats) MeanScore() float64 {
	if s.ViolationCount == 0 {
		return 0
	}
	return s.ScoreSum / float64(s.ViolationCount)
}

// StatsDelta is a commutative increment applied to AggregateStats.
type StatsDelta struct {
	Count int64
	Sum   float64
	SumSq float64
}

// DeltaFor builds the stats increment for a single recorded score.
func DeltaFor(score float64) StatsDelta {
	return StatsDelta{Count: 1, Sum: score, SumSq: score * score}
}

// PeriodOf buckets a timestamp into the daily stats period key.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
