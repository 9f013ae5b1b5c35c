// Package classify runs the window classifier and publishes verdicts.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/window"
)

// ErrMalformedWindow is returned when a window has the wrong length or ragged vectors.
var ErrMalformedWindow = errors.New("malformed window")

// Batch is a batch-of-one sequence tensor with shape [1, Steps, Features],
// stored row-major in Data.
type Batch struct {
	Steps    int
	Features int
	Data     []float32
}

// Shape returns the tensor dimensions.
func (b Batch) Shape() []int {
	return []int{1, b.Steps, b.Features}
}

// At returns the value at (step, feature).
func (b Batch) At(step, feature int) float32 {
	return b.Data[step*b.Features+feature]
}

// Sequence returns the batch as one feature vector per step. The vectors share Data.
func (b Batch) Sequence() gesture.Sequence {
	seq := make(gesture.Sequence, b.Steps)
	for s := range seq {
		seq[s] = b.Data[s*b.Features : (s+1)*b.Features]
	}
	return seq
}

// NewBatch reshapes a window into a batch-of-one tensor. The window must hold exactly
// steps vectors, all of the same non-zero length.
func NewBatch(w window.Window, steps int) (Batch, error) {
	if len(w) != steps {
		return Batch{}, fmt.Errorf("%w: %d vectors, want %d", ErrMalformedWindow, len(w), steps)
	}

	features := len(w[0])
	if features == 0 {
		return Batch{}, fmt.Errorf("%w: empty vector", ErrMalformedWindow)
	}

	data := make([]float32, 0, steps*features)
	for i, v := range w {
		if len(v) != features {
			return Batch{}, fmt.Errorf("%w: vector %d has %d values, want %d", ErrMalformedWindow, i, len(v), features)
		}
		data = append(data, v...)
	}

	return Batch{Steps: steps, Features: features, Data: data}, nil
}

// Model is the pre-trained sequence classifier.
type Model interface {
	// Infer runs a forward pass and returns the single sigmoid output.
	Infer(ctx context.Context, batch Batch) (float64, error)

	// Close releases the model.
	Close() error
}

// FuncModel adapts a function to the Model interface.
type FuncModel func(ctx context.Context, batch Batch) (float64, error)

// Infer calls f.
func (f FuncModel) Infer(ctx context.Context, batch Batch) (float64, error) {
	return f(ctx, batch)
}

// Close is a no-op.
func (f FuncModel) Close() error {
	return nil
}

// ConstantModel returns a Model that always outputs p.
func ConstantModel(p float64) Model {
	return FuncModel(func(context.Context, Batch) (float64, error) {
		return p, nil
	})
}
