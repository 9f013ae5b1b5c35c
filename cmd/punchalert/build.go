package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/alert"
	"github.com/ayusman/punchalert/internal/app"
	"github.com/ayusman/punchalert/internal/capture"
	"github.com/ayusman/punchalert/internal/classify"
	"github.com/ayusman/punchalert/internal/config"
	"github.com/ayusman/punchalert/internal/hook"
	"github.com/ayusman/punchalert/internal/overlay"
	"github.com/ayusman/punchalert/internal/pose"
	"github.com/ayusman/punchalert/internal/store"
)

const classifierScript = "classifier_service.py"

// appConfig maps file settings onto the controller config.
func appConfig(cfg config.Config) app.Config {
	return app.Config{
		Capture: capture.Config{
			DeviceID: cfg.Camera.Device,
			File:     cfg.Camera.File,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		},
		WindowSize: cfg.Window.Size,
		Warmup:     cfg.Window.Warmup,
		Classifier: classify.Config{
			WindowSize:   cfg.Window.Size,
			Threshold:    cfg.Classifier.Threshold,
			Ordered:      cfg.Classifier.OrderedVerdicts,
			DrainTimeout: cfg.Classifier.DrainTimeout,
		},
		IdleTimeout:     cfg.Idle.Timeout,
		MotionThreshold: cfg.Idle.MotionThreshold,
	}
}

// deviceOpener returns the alert device factory: the sound output plus any
// alert hooks found in the hooks directory.
func deviceOpener(cfg config.Config) func() (alert.Device, error) {
	var hooks *hook.Manager
	if cfg.Alert.HooksDir != "" {
		hooks = hook.NewManager(cfg.Alert.HooksDir)
		if err := hooks.Discover(); err != nil {
			logrus.WithError(err).Warn("failed to discover alert hooks")
		}
		logrus.WithField("hooks", len(hooks.List())).Info("alert hooks loaded")
	}

	return func() (alert.Device, error) {
		sound, err := alert.NewSoundDevice(cfg.Alert.Sound, cfg.Alert.SampleRate)
		if err != nil {
			return nil, err
		}
		if hooks == nil || len(hooks.List()) == 0 {
			return sound, nil
		}
		return alert.Multi{sound, hook.NewDevice(hooks, hook.NewExecutor(cfg.Alert.HookTimeout))}, nil
	}
}

func openModel(cfg config.Config) (classify.Model, error) {
	script := cfg.Classifier.Script
	if script == "" {
		script = pose.FindScript(classifierScript)
	}
	python := cfg.Pose.Python
	if python == "" {
		python = pose.FindPython()
	}

	return classify.Open(classify.ModelConfig{
		Backend: cfg.Classifier.Backend,
		Path:    cfg.Classifier.Model,
		Python:  python,
		Script:  script,
	})
}

func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(cfg.Store.Path)
}

// newController loads the model and pose source and opens the alert device.
// Any failure here aborts startup before a frame is read.
func newController(cfg config.Config, st *store.Store, display func() overlay.Display) (*app.Controller, error) {
	model, err := openModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	source, err := pose.NewMediaPipeSource(pose.Config{
		Script:          cfg.Pose.Script,
		Python:          cfg.Pose.Python,
		ModelComplexity: cfg.Pose.ModelComplexity,
		MinConfidence:   cfg.Pose.MinConfidence,
		MinTrackingConf: cfg.Pose.MinTracking,
	})
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("pose source: %w", err)
	}

	c, err := app.New(appConfig(cfg), app.Deps{
		OpenDevice: deviceOpener(cfg),
		Model:      model,
		Source:     source,
		NewDisplay: display,
		Store:      st,
	})
	if err != nil {
		source.Close()
		model.Close()
		return nil, err
	}
	return c, nil
}

// findWebDir searches for the dashboard directory in common locations.
func findWebDir(configured string) string {
	if configured != "" {
		return configured
	}

	candidates := []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
