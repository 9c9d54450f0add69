package posture

import "errors"

var (
	// ErrShapeMismatch indicates a live sample whose landmark arity does
	// not match the stored baseline. Samples are never silently truncated.
	ErrShapeMismatch = errors.New("posture: landmark shape mismatch")
	// ErrMissingBaseline indicates a sample arrived for an account with no
	// captured baseline. Expected condition, not a failure.
	ErrMissingBaseline = errors.New("posture: no baseline captured")
	// ErrEmptyLandmarks indicates an empty landmark set.
	ErrEmptyLandmarks = errors.New("posture: landmarks are required")

	ErrNotFound = errors.New("posture: not found")
)
