// Package app wires the frame loop, classifier and alert into a controllable detector.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/alert"
	"github.com/ayusman/punchalert/internal/capture"
	"github.com/ayusman/punchalert/internal/classify"
	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/overlay"
	"github.com/ayusman/punchalert/internal/pose"
	"github.com/ayusman/punchalert/internal/store"
	"github.com/ayusman/punchalert/internal/window"
)

// ErrAlreadyRunning is returned by Start and Run while a detection run is active.
var ErrAlreadyRunning = errors.New("detection already running")

// RunState is the controller lifecycle state.
type RunState string

const (
	// StateIdle means detection has never been started.
	StateIdle RunState = "idle"
	// StateRunning means the frame loop is active.
	StateRunning RunState = "running"
	// StateStopped means the last run has ended and all devices are released.
	StateStopped RunState = "stopped"
)

// Config holds the detection settings.
type Config struct {
	Capture         capture.Config
	WindowSize      int
	Warmup          int
	Classifier      classify.Config
	IdleTimeout     time.Duration
	MotionThreshold float64
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		Capture:         capture.DefaultConfig(),
		WindowSize:      window.DefaultSize,
		Warmup:          DefaultWarmup,
		Classifier:      classify.DefaultConfig(),
		IdleTimeout:     capture.DefaultIdleTimeout,
		MotionThreshold: capture.DefaultMotionThreshold,
	}
}

// Deps are the external resources the controller drives.
type Deps struct {
	// OpenDevice opens the alert output. Required; it is called once by New.
	OpenDevice func() (alert.Device, error)
	// Model is the loaded classifier. Required.
	Model classify.Model
	// Source extracts landmarks. Required.
	Source pose.Source
	// NewCamera builds the frame source. Defaults to capture.NewCamera.
	NewCamera func(capture.Config) capture.Camera
	// NewDisplay builds the presentation surface. Defaults to a headless display.
	NewDisplay func() overlay.Display
	// Store records sessions and verdicts when set.
	Store *store.Store
}

// Status is a snapshot of the controller.
type Status struct {
	State     RunState         `json:"state"`
	SceneIdle bool             `json:"scene_idle"`
	Alert     alert.State      `json:"alert"`
	Gesture   gesture.Snapshot `json:"gesture"`
	Stats     Stats            `json:"stats"`
	InFlight  int              `json:"in_flight"`
	Failures  uint64           `json:"failures"`
	SessionID string           `json:"session_id,omitempty"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
}

type run struct {
	loop       *Loop
	machine    *alert.Machine
	dispatcher *classify.Dispatcher
	camera     capture.Camera
	display    overlay.Display
	idle       *capture.IdleTracker
	sessionID  string
	startedAt  time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	err        error
}

// Controller owns detection runs. A run opens the camera, alert device and session,
// and releases all of them in order when it ends.
type Controller struct {
	cfg    Config
	deps   Deps
	state  *gesture.State
	events *Hub[Event]
	frames *FrameHub

	mu       sync.Mutex
	runState RunState
	device   alert.Device
	current  *run
	last     Status

	log *logrus.Entry
}

// New validates deps and opens the alert device. A device failure is returned before
// any camera is opened or frame processed.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.OpenDevice == nil || deps.Model == nil || deps.Source == nil {
		return nil, errors.New("app: OpenDevice, Model and Source are required")
	}
	if deps.NewCamera == nil {
		deps.NewCamera = capture.NewCamera
	}
	if deps.NewDisplay == nil {
		deps.NewDisplay = func() overlay.Display { return overlay.NewHeadlessDisplay() }
	}

	device, err := deps.OpenDevice()
	if err != nil {
		return nil, fmt.Errorf("open alert device: %w", err)
	}

	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		state:    gesture.NewState(cfg.Classifier.Ordered),
		events:   NewHub[Event](),
		frames:   NewFrameHub(),
		runState: StateIdle,
		device:   device,
		log:      logrus.WithField("component", "app"),
	}
	c.last = Status{State: StateIdle, Alert: alert.Stopped}

	return c, nil
}

// Start begins a detection run in the background.
func (c *Controller) Start() error {
	r, err := c.begin(context.Background())
	if err != nil {
		return err
	}
	go c.execute(r)
	return nil
}

// Run performs a detection run on the calling goroutine and returns when it ends.
// Use it when the display must be driven from the main thread.
func (c *Controller) Run(ctx context.Context) error {
	r, err := c.begin(ctx)
	if err != nil {
		return err
	}
	c.execute(r)
	return r.err
}

// Stop ends the current run and waits for its teardown.
func (c *Controller) Stop() error {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return nil
	}

	r.cancel()
	<-r.done
	return nil
}

func (c *Controller) begin(parent context.Context) (*run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, ErrAlreadyRunning
	}

	device := c.device
	c.device = nil
	if device == nil {
		var err error
		if device, err = c.deps.OpenDevice(); err != nil {
			return nil, fmt.Errorf("open alert device: %w", err)
		}
	}

	camera := c.deps.NewCamera(c.cfg.Capture)
	if err := camera.Open(); err != nil {
		device.Close()
		return nil, fmt.Errorf("open camera: %w", err)
	}

	c.state.Reset()
	relay := eventRelay{hub: c.events}
	machine := alert.NewMachine(alert.Multi{device, relay})
	sinks := []classify.Sink{relay}

	var sessionID string
	if c.deps.Store != nil {
		sess := &store.Session{Source: c.cfg.Capture.Source()}
		if err := c.deps.Store.Sessions().Create(sess); err != nil {
			c.log.WithError(err).Warn("failed to create session, history disabled for this run")
		} else {
			sessionID = sess.ID
			sinks = append(sinks, c.deps.Store.NewRecorder(sessionID))
		}
	}

	dispatcher := classify.NewDispatcher(
		classify.NewClassifier(c.deps.Model, c.cfg.Classifier),
		c.state, machine, sinks...,
	)
	display := c.deps.NewDisplay()
	idle := capture.NewIdleTracker(capture.NewMotionDetector(c.cfg.MotionThreshold), c.cfg.IdleTimeout)

	loop := NewLoop(LoopConfig{
		Camera:     camera,
		Source:     c.deps.Source,
		Dispatcher: dispatcher,
		State:      c.state,
		Display:    display,
		WindowSize: c.cfg.WindowSize,
		Warmup:     c.cfg.Warmup,
		Frames:     c.frames,
		Idle:       idle,
	})

	ctx, cancel := context.WithCancel(parent)
	r := &run{
		loop:       loop,
		machine:    machine,
		dispatcher: dispatcher,
		camera:     camera,
		display:    display,
		idle:       idle,
		sessionID:  sessionID,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	c.current = r
	c.runState = StateRunning
	c.events.Publish(Event{Type: EventStatus, Time: r.startedAt, State: string(StateRunning)})
	c.log.WithFields(logrus.Fields{
		"source":  c.cfg.Capture.Source(),
		"session": sessionID,
	}).Info("detection started")

	return r, nil
}

func (c *Controller) execute(r *run) {
	defer close(r.done)

	r.err = r.loop.Run(r.ctx)
	if r.err != nil {
		c.log.WithError(r.err).Error("frame loop stopped")
	}
	r.cancel()

	c.teardown(r)
}

// teardown releases a run's resources: in-flight classifications are drained before the
// alert device is shut down, then the camera, pose source and display are closed.
func (c *Controller) teardown(r *run) {
	drainTimeout := c.cfg.Classifier.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = classify.DefaultDrainTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := r.dispatcher.Drain(ctx); err != nil {
		c.log.WithError(err).Warn("classifications still running at shutdown were abandoned")
	}

	if err := r.machine.Shutdown(); err != nil {
		c.log.WithError(err).Warn("failed to close alert device")
	}
	if err := r.camera.Close(); err != nil {
		c.log.WithError(err).Warn("failed to close camera")
	}
	if err := c.deps.Source.Close(); err != nil {
		c.log.WithError(err).Warn("failed to close pose source")
	}
	if err := r.display.Close(); err != nil {
		c.log.WithError(err).Warn("failed to close display")
	}
	r.idle.Close()

	stats := r.loop.Stats()
	if r.sessionID != "" {
		if err := c.deps.Store.Sessions().End(r.sessionID, store.SessionStats{
			Frames:     int64(stats.Frames),
			Detections: int64(stats.Detections),
			Windows:    int64(stats.Windows),
		}); err != nil {
			c.log.WithError(err).Warn("failed to close session")
		}
	}

	c.mu.Lock()
	c.last = c.statusOf(r)
	c.last.State = StateStopped
	c.last.InFlight = 0
	c.current = nil
	c.runState = StateStopped
	c.mu.Unlock()

	c.events.Publish(Event{Type: EventStatus, Time: time.Now(), State: string(StateStopped)})
	c.log.WithFields(logrus.Fields{
		"frames":  stats.Frames,
		"windows": stats.Windows,
	}).Info("detection stopped")
}

func (c *Controller) statusOf(r *run) Status {
	started := r.startedAt
	return Status{
		State:     c.runState,
		SceneIdle: r.loop.SceneIdle(),
		Alert:     r.machine.State(),
		Gesture:   c.state.Snapshot(),
		Stats:     r.loop.Stats(),
		InFlight:  r.dispatcher.InFlight(),
		Failures:  r.dispatcher.Failures(),
		SessionID: r.sessionID,
		StartedAt: &started,
	}
}

// Status returns the current state, or the final state of the last run.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.statusOf(c.current)
	}
	return c.last
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Events returns the live event hub.
func (c *Controller) Events() *Hub[Event] {
	return c.events
}

// Frames returns the rendered frame hub.
func (c *Controller) Frames() *FrameHub {
	return c.frames
}

// Close stops any run and releases the model, the pose source and an unused alert device.
func (c *Controller) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}

	c.mu.Lock()
	device := c.device
	c.device = nil
	c.mu.Unlock()

	var errs []error
	if device != nil {
		errs = append(errs, device.Close())
	}
	errs = append(errs, c.deps.Source.Close(), c.deps.Model.Close())
	return errors.Join(errs...)
}
