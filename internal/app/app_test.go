package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/punchalert/internal/alert"
	"github.com/ayusman/punchalert/internal/capture"
	"github.com/ayusman/punchalert/internal/classify"
	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/overlay"
	"github.com/ayusman/punchalert/internal/pose"
	"github.com/ayusman/punchalert/internal/store"
	"github.com/ayusman/punchalert/testdata"
)

// makeFrames returns n small still BGR frames released at test cleanup.
func makeFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := testdata.StillFrames(n, 64, 48)
	t.Cleanup(func() { testdata.Close(frames) })
	return frames
}

type harness struct {
	camera  *capture.MockCamera
	source  *pose.MockSource
	device  *alert.NopDevice
	display *overlay.HeadlessDisplay
	opened  int
	mu      sync.Mutex
}

func newHarness(t *testing.T, frames int, loop bool) *harness {
	h := &harness{
		camera:  capture.NewMockCamera(makeFrames(t, frames), loop),
		source:  pose.NewMockSource(),
		display: overlay.NewHeadlessDisplay(),
	}
	h.source.SetLandmarks(pose.GuardLandmarks())
	return h
}

func (h *harness) deps(model classify.Model) Deps {
	return Deps{
		OpenDevice: func() (alert.Device, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.opened++
			h.device = &alert.NopDevice{}
			return h.device, nil
		},
		Model:      model,
		Source:     h.source,
		NewCamera:  func(capture.Config) capture.Camera { return h.camera },
		NewDisplay: func() overlay.Display { return h.display },
	}
}

func (h *harness) lastDevice() *alert.NopDevice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.device
}

func TestController_WarmupSkipsDownstream(t *testing.T) {
	h := newHarness(t, DefaultWarmup+5, false)

	c, err := New(DefaultConfig(), h.deps(classify.ConstantModel(0.9)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))

	st := c.Status()
	assert.Equal(t, uint64(DefaultWarmup+5), st.Stats.Frames)
	assert.Equal(t, uint64(5), st.Stats.Detections, "only post warm-up detections are buffered")
	assert.Equal(t, uint64(0), st.Stats.Windows)
	assert.Equal(t, 5, h.display.Shown(), "warm-up frames are never displayed")
}

func TestController_PunchWindowStartsAlert(t *testing.T) {
	h := newHarness(t, DefaultWarmup+20, false)

	c, err := New(DefaultConfig(), h.deps(classify.ConstantModel(0.9)))
	require.NoError(t, err)
	defer c.Close()

	events, unsubscribe := c.Events().Subscribe(16)
	defer unsubscribe()

	require.NoError(t, c.Run(context.Background()))

	st := c.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, uint64(1), st.Stats.Windows)
	assert.Equal(t, gesture.Punch, st.Gesture.Label)

	// The run is drained before the device is shut down, so the alert started and was
	// then silenced by shutdown.
	plays, stops := h.lastDevice().Counts()
	assert.Equal(t, 1, plays)
	assert.Equal(t, 1, stops)
	assert.True(t, h.lastDevice().Closed())

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Contains(t, types, EventVerdict)
	assert.Contains(t, types, EventAlert)
}

func TestController_NeutralWindowKeepsSilent(t *testing.T) {
	h := newHarness(t, DefaultWarmup+40, false)

	c, err := New(DefaultConfig(), h.deps(classify.ConstantModel(0.3)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, uint64(2), c.Status().Stats.Windows)
	assert.Equal(t, gesture.Neutral, c.Status().Gesture.Label)

	plays, _ := h.lastDevice().Counts()
	assert.Equal(t, 0, plays)
}

func TestController_DetectionMissIsNotBuffered(t *testing.T) {
	h := newHarness(t, DefaultWarmup+10, false)

	script := make([]*pose.LandmarkSet, DefaultWarmup+10)
	for i := range script {
		if i%2 == 0 {
			script[i] = pose.GuardLandmarks()
		}
	}
	h.source.SetScript(script)

	c, err := New(DefaultConfig(), h.deps(classify.ConstantModel(0.9)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))

	st := c.Status()
	assert.Equal(t, uint64(5), st.Stats.Detections)
	assert.Equal(t, uint64(5), st.Stats.Misses)
	assert.Equal(t, 10, h.display.Shown(), "misses are still displayed")
}

func TestController_DeviceFailureAbortsStartup(t *testing.T) {
	h := newHarness(t, 10, true)
	cameraBuilt := false

	deps := h.deps(classify.ConstantModel(0.9))
	deps.OpenDevice = func() (alert.Device, error) {
		return nil, alert.ErrDeviceUnavailable
	}
	deps.NewCamera = func(capture.Config) capture.Camera {
		cameraBuilt = true
		return h.camera
	}

	c, err := New(DefaultConfig(), deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, alert.ErrDeviceUnavailable)
	assert.Nil(t, c)

	assert.False(t, cameraBuilt)
	assert.Equal(t, 0, h.camera.Reads())
	assert.Equal(t, 0, h.source.Calls())
}

func TestController_CameraFailureReleasesDevice(t *testing.T) {
	h := newHarness(t, 10, true)
	h.camera.SetOpenError(errors.New("no camera"))

	c, err := New(DefaultConfig(), h.deps(classify.ConstantModel(0.9)))
	require.NoError(t, err)
	defer c.Close()

	err = c.Start()
	require.Error(t, err)
	assert.True(t, h.lastDevice().Closed())
	assert.False(t, c.Running())
	assert.Equal(t, StateIdle, c.Status().State)
}

func TestController_StartStop(t *testing.T) {
	h := newHarness(t, 4, true)

	cfg := DefaultConfig()
	cfg.Warmup = 0
	c, err := New(cfg, h.deps(classify.ConstantModel(0.9)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		return c.Status().Stats.Windows > 0
	}, 5*time.Second, 5*time.Millisecond)

	st := c.Status()
	assert.Equal(t, StateRunning, st.State)
	assert.NotNil(t, st.StartedAt)

	require.NoError(t, c.Stop())
	assert.False(t, c.Running())
	assert.Equal(t, StateStopped, c.Status().State)
	assert.Equal(t, alert.Stopped, c.Status().Alert)
	assert.True(t, h.lastDevice().Closed())
	assert.True(t, h.source.Closed())

	// A second run opens a fresh device.
	first := h.lastDevice()
	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	assert.NotSame(t, first, h.lastDevice())
	assert.Equal(t, 2, h.opened)
}

func TestController_RecordsSession(t *testing.T) {
	h := newHarness(t, DefaultWarmup+40, false)

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	deps := h.deps(classify.ConstantModel(0.9))
	deps.Store = s

	c, err := New(DefaultConfig(), deps)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))

	sessionID := c.Status().SessionID
	require.NotEmpty(t, sessionID)

	sess, err := s.Sessions().GetByID(sessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.EndedAt)
	assert.Equal(t, int64(DefaultWarmup+40), sess.Frames)
	assert.Equal(t, int64(2), sess.Windows)
	assert.Equal(t, int64(2), sess.Punches)

	verdicts, err := s.Verdicts().ListBySession(sessionID)
	require.NoError(t, err)
	assert.Len(t, verdicts, 2)
}

func TestController_QuitKey(t *testing.T) {
	h := newHarness(t, 4, true)
	h.display.Quit()

	cfg := DefaultConfig()
	cfg.Warmup = 0
	c, err := New(cfg, h.deps(classify.ConstantModel(0.1)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, uint64(1), c.Status().Stats.Frames, "quit is honoured after the first displayed frame")
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)
}

func TestController_StillSceneGoesIdle(t *testing.T) {
	h := newHarness(t, 3, false)

	cfg := DefaultConfig()
	cfg.Warmup = 0
	cfg.IdleTimeout = time.Nanosecond
	c, err := New(cfg, h.deps(classify.ConstantModel(0.1)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))
	assert.True(t, c.Status().SceneIdle)
}
