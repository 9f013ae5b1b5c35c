package pose

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrArity is returned when a source produces a landmark set with the wrong number of joints.
var ErrArity = errors.New("landmark arity mismatch")

// Source defines the interface for body landmark extraction.
type Source interface {
	// Detect analyzes an RGB frame and returns the landmarks of the detected person.
	// Returns nil when nobody is detected.
	Detect(frame *gocv.Mat) (*LandmarkSet, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// Script is the path to the pose service script. Empty means search the default locations.
	Script string

	// Python is the interpreter used to run the script. Empty means search for a venv, then python3.
	Python string

	// ModelComplexity selects the pose model variant (0, 1 or 2).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
