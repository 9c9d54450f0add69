package posture

import (
	"errors"
	"math"
	"testing"
)

func TestEvaluateReferencePoints(t *testing.T) {
	detector := NewDetector(1.0, nil)
	baseline := &Baseline{AccountID: "acc-1", Landmarks: []Landmark{{X: 0, Y: 0}}}

	result, err := detector.Evaluate(baseline, []Landmark{{X: 2, Y: 0}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 2.0 || !result.IsViolation {
		t.Fatalf("expected score=2.0 violation, got score=%v violation=%v", result.Score, result.IsViolation)
	}

	result, err = detector.Evaluate(baseline, []Landmark{{X: 0.5, Y: 0}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 0.5 || result.IsViolation {
		t.Fatalf("expected score=0.5 no violation, got score=%v violation=%v", result.Score, result.IsViolation)
	}
}

func TestEvaluateMeanDistance(t *testing.T) {
	detector := NewDetector(10, nil)
	baseline := &Baseline{AccountID: "acc-1", Landmarks: []Landmark{
		{X: 0, Y: 0},
		{X: 1, Y: 1},
	}}
	sample := []Landmark{
		{X: 3, Y: 4},  // distance 5
		{X: 1, Y: 4},  // distance 3
	}
	result, err := detector.Evaluate(baseline, sample)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(result.Score-4.0) > 1e-12 {
		t.Fatalf("expected mean score 4.0, got %v", result.Score)
	}
}

func TestEvaluateUsesThreeDimensions(t *testing.T) {
	detector := NewDetector(1.0, nil)
	baseline := &Baseline{AccountID: "acc-1", Landmarks: []Landmark{{X: 0, Y: 0, Z: 0}}}
	result, err := detector.Evaluate(baseline, []Landmark{{X: 0, Y: 0, Z: 2}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 2.0 || !result.IsViolation {
		t.Fatalf("expected score 2.0 violation, got %v", result.Score)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	detector := NewDetector(0.12, nil)
	baseline := &Baseline{AccountID: "acc-1", Landmarks: []Landmark{
		{X: 0.31, Y: 0.42, Z: 0.05}, {X: 0.68, Y: 0.44, Z: 0.07}, {X: 0.5, Y: 0.9, Z: 0.01},
	}}
	sample := []Landmark{
		{X: 0.33, Y: 0.47, Z: 0.06}, {X: 0.61, Y: 0.49, Z: 0.04}, {X: 0.52, Y: 0.97, Z: 0.02},
	}
	first, err := detector.Evaluate(baseline, sample)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := detector.Evaluate(baseline, sample)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if again.Score != first.Score || again.IsViolation != first.IsViolation {
			t.Fatalf("nondeterministic evaluation: %v != %v", again.Score, first.Score)
		}
	}
}

func TestEvaluateShapeMismatch(t *testing.T) {
	detector := NewDetector(1.0, nil)
	baseline := &Baseline{AccountID: "acc-1", Landmarks: []Landmark{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	_, err := detector.Evaluate(baseline, []Landmark{{X: 0, Y: 0}})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestEvaluateMissingBaseline(t *testing.T) {
	detector := NewDetector(1.0, nil)
	_, err := detector.Evaluate(nil, []Landmark{{X: 0, Y: 0}})
	if !errors.Is(err, ErrMissingBaseline) {
		t.Fatalf("expected ErrMissingBaseline, got %v", err)
	}
}

func TestThresholdOverrides(t *testing.T) {
	detector := NewDetector(1.0, map[string]float64{"strict": 0.1})
	baseline := func(account string) *Baseline {
		return &Baseline{AccountID: account, Landmarks: []Landmark{{X: 0, Y: 0}}}
	}
	sample := []Landmark{{X: 0.5, Y: 0}}

	result, err := detector.Evaluate(baseline("default"), sample)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.IsViolation {
		t.Fatal("default threshold should not flag 0.5")
	}

	result, err = detector.Evaluate(baseline("strict"), sample)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.IsViolation {
		t.Fatal("strict threshold should flag 0.5")
	}
}
