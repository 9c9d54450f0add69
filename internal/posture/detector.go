package posture

import "fmt"

// Detector compares a live landmark sample against a stored baseline and
// classifies it as conforming or violating. Pure function of its inputs
// and the threshold configuration, so evaluation replays deterministically.
type Detector struct {
	threshold float64
	overrides map[string]float64
}

// NewDetector constructs a Detector with the global threshold and optional
// per-account overrides.
func NewDetector(threshold float64, overrides map[string]float64) *Detector {
	return &Detector{threshold: threshold, overrides: overrides}
}

// ThresholdFor resolves the deviation threshold for an account, falling
// back to the global default.
func (d *Detector) ThresholdFor(accountID string) float64 {
	if t, ok := d.overrides[accountID]; ok {
		return t
	}
	return d.threshold
}

// Evaluate scores a live sample against the baseline. The score is the
// mean Euclidean distance between corresponding landmarks, in the unit
// space of the capture. Arity mismatches fail with ErrShapeMismatch.
func (d *Detector) Evaluate(baseline *Baseline, sample []Landmark) (DeviationResult, error) {
	if baseline == nil || len(baseline.Landmarks) == 0 {
		return DeviationResult{}, ErrMissingBaseline
	}
	if len(sample) == 0 {
		return DeviationResult{}, ErrEmptyLandmarks
	}
	if len(sample) != len(baseline.Landmarks) {
		return DeviationResult{}, fmt.Errorf("%w: baseline has %d landmarks, sample has %d",
			ErrShapeMismatch, len(baseline.Landmarks), len(sample))
	}

	var total float64
	for i, ref := range baseline.Landmarks {
		total += ref.DistanceTo(sample[i])
	}
	score := total / float64(len(sample))

	return DeviationResult{
		Score:       score,
		IsViolation: score > d.ThresholdFor(baseline.AccountID),
		Landmarks:   sample,
	}, nil
}
