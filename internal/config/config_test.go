package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "custom.yaml", `
camera:
  file: clips/sparring.mp4
window:
  warmup: 10
classifier:
  backend: service
  threshold: 0.7
  ordered_verdicts: true
  drain_timeout: 500ms
idle:
  timeout: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "clips/sparring.mp4", cfg.Camera.File)
	assert.Equal(t, 640, cfg.Camera.Width, "unset keys keep defaults")
	assert.Equal(t, 20, cfg.Window.Size)
	assert.Equal(t, 10, cfg.Window.Warmup)
	assert.Equal(t, "service", cfg.Classifier.Backend)
	assert.InDelta(t, 0.7, cfg.Classifier.Threshold, 1e-9)
	assert.True(t, cfg.Classifier.OrderedVerdicts)
	assert.Equal(t, 500*time.Millisecond, cfg.Classifier.DrainTimeout)
	assert.Equal(t, time.Minute, cfg.Idle.Timeout)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, FileName+".yaml", "server:\n  addr: \":9090\"\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "custom.yaml", "camera:\n  device: 1\n")

	t.Setenv("PUNCHALERT_CAMERA_DEVICE", "2")
	t.Setenv("PUNCHALERT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "PUNCHALERT_ALERT_SOUND=sounds/bell.wav\n")
	t.Cleanup(func() { os.Unsetenv("PUNCHALERT_ALERT_SOUND") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sounds/bell.wav", cfg.Alert.Sound)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "bad.yaml", "window:\n  size: 0\nclassifier:\n  threshold: 2\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window.size")
	assert.Contains(t, err.Error(), "classifier.threshold")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"onnx backend", func(c *Config) { c.Classifier.Backend = "onnx" }, true},
		{"template backend", func(c *Config) { c.Classifier.Backend = "template" }, true},
		{"unknown backend", func(c *Config) { c.Classifier.Backend = "tflite" }, false},
		{"zero threshold", func(c *Config) { c.Classifier.Threshold = 0 }, false},
		{"negative threshold", func(c *Config) { c.Classifier.Threshold = -0.1 }, false},
		{"threshold one", func(c *Config) { c.Classifier.Threshold = 1 }, true},
		{"threshold above one", func(c *Config) { c.Classifier.Threshold = 1.5 }, false},
		{"negative warmup", func(c *Config) { c.Window.Warmup = -1 }, false},
		{"empty quit key", func(c *Config) { c.Display.QuitKey = "" }, false},
		{"long quit key", func(c *Config) { c.Display.QuitKey = "qq" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "nested", FileName+".yaml")

	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file is kept")
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 'q', cfg.QuitRune())
}
