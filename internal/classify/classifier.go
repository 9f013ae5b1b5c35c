package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/window"
)

// DefaultThreshold is the probability above which a window is labelled punch.
const DefaultThreshold = 0.5

// DefaultDrainTimeout bounds how long shutdown waits for in-flight classifications.
const DefaultDrainTimeout = 3 * time.Second

// Config holds classifier settings.
type Config struct {
	WindowSize   int
	Threshold    float64
	Ordered      bool
	DrainTimeout time.Duration
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		WindowSize:   window.DefaultSize,
		Threshold:    DefaultThreshold,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Classifier turns a window into a label using a Model.
type Classifier struct {
	model     Model
	threshold float64
	steps     int
}

// NewClassifier creates a Classifier. Zero values in cfg fall back to the defaults; a
// threshold must be positive, so a zero or negative one means unset.
func NewClassifier(model Model, cfg Config) *Classifier {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = window.DefaultSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Classifier{
		model:     model,
		threshold: cfg.Threshold,
		steps:     cfg.WindowSize,
	}
}

// LabelFor applies the threshold. A probability equal to the threshold is neutral.
func LabelFor(p, threshold float64) gesture.Label {
	if p > threshold {
		return gesture.Punch
	}
	return gesture.Neutral
}

// Classify runs inference on one window and returns the label and raw probability.
func (c *Classifier) Classify(ctx context.Context, w window.Window) (gesture.Label, float64, error) {
	batch, err := NewBatch(w, c.steps)
	if err != nil {
		return gesture.Neutral, 0, err
	}

	p, err := c.model.Infer(ctx, batch)
	if err != nil {
		return gesture.Neutral, 0, fmt.Errorf("infer: %w", err)
	}

	return LabelFor(p, c.threshold), p, nil
}

// Threshold returns the decision threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}
