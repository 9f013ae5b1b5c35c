package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceModel_MissingScript(t *testing.T) {
	_, err := NewServiceModel(ServiceConfig{})
	assert.Error(t, err)

	_, err = NewServiceModel(ServiceConfig{Script: filepath.Join(t.TempDir(), "missing.py")})
	assert.Error(t, err)
}

func TestServiceModel_CancelledInferDoesNotStartService(t *testing.T) {
	script := filepath.Join(t.TempDir(), "classifier_service.py")
	require.NoError(t, os.WriteFile(script, []byte("raise SystemExit(1)\n"), 0644))

	m, err := NewServiceModel(ServiceConfig{Python: "python-that-does-not-exist", Script: script})
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Infer(ctx, Batch{Steps: 1, Features: 1, Data: []float32{0}})
	assert.ErrorIs(t, err, context.Canceled)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.False(t, m.started)
	assert.Nil(t, m.cmd)
}

func TestServiceModel_InferAfterClose(t *testing.T) {
	script := filepath.Join(t.TempDir(), "classifier_service.py")
	require.NoError(t, os.WriteFile(script, []byte(""), 0644))

	m, err := NewServiceModel(ServiceConfig{Script: script})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = m.Infer(context.Background(), Batch{Steps: 1, Features: 1, Data: []float32{0}})
	assert.ErrorIs(t, err, ErrModelClosed)
}
