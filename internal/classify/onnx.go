package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrModelClosed is returned by Infer after Close.
var ErrModelClosed = errors.New("model closed")

// ONNXModel runs an exported sequence classifier through the OpenCV DNN module.
// The network takes a [1, steps, features] float tensor and emits one sigmoid value.
type ONNXModel struct {
	mu     sync.Mutex
	net    gocv.Net
	closed bool
	log    *logrus.Entry
}

// NewONNXModel loads the network at path.
func NewONNXModel(path string) (*ONNXModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", path)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	log := logrus.WithField("component", "classify")
	log.WithField("path", path).Info("classifier network loaded")

	return &ONNXModel{net: net, log: log}, nil
}

// Infer runs one forward pass. Calls are serialized; the context is only checked
// before the pass starts.
func (m *ONNXModel) Infer(ctx context.Context, batch Batch) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	input := gocv.NewMatWithSizes(batch.Shape(), gocv.MatTypeCV32F)
	defer input.Close()
	for s := 0; s < batch.Steps; s++ {
		for f := 0; f < batch.Features; f++ {
			input.SetFloatAt3(0, s, f, batch.At(s, f))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrModelClosed
	}

	m.net.SetInput(input, "")
	output := m.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() < 1 {
		return 0, fmt.Errorf("network produced no output")
	}

	return float64(output.GetFloatAt(0, 0)), nil
}

// Close releases the network.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}
