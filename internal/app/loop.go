package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/punchalert/internal/capture"
	"github.com/ayusman/punchalert/internal/classify"
	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/overlay"
	"github.com/ayusman/punchalert/internal/pose"
	"github.com/ayusman/punchalert/internal/window"
)

// DefaultWarmup is the number of initial frames ignored while the pose tracker settles.
const DefaultWarmup = 60

// Stats are the frame loop counters.
type Stats struct {
	Frames     uint64 `json:"frames"`
	Detections uint64 `json:"detections"`
	Misses     uint64 `json:"misses"`
	Windows    uint64 `json:"windows"`
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Camera     capture.Camera
	Source     pose.Source
	Dispatcher *classify.Dispatcher
	State      *gesture.State
	Display    overlay.Display
	WindowSize int
	Warmup     int
	// Frames and Idle are optional.
	Frames *FrameHub
	Idle   *capture.IdleTracker
}

// Loop is the per-frame pipeline: read, detect, window, dispatch, render, show.
// Run must be called from a single goroutine.
type Loop struct {
	cfg    LoopConfig
	buffer *window.Buffer

	frames     atomic.Uint64
	detections atomic.Uint64
	misses     atomic.Uint64
	windows    atomic.Uint64
	sceneIdle  atomic.Bool

	log *logrus.Entry
}

// NewLoop creates a Loop.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Warmup < 0 {
		cfg.Warmup = 0
	}
	if cfg.Display == nil {
		cfg.Display = overlay.NewHeadlessDisplay()
	}
	return &Loop{
		cfg:    cfg,
		buffer: window.NewBuffer(cfg.WindowSize),
		log:    logrus.WithField("component", "app"),
	}
}

// Run processes frames until the source is exhausted, the user quits or ctx is done.
// All three are normal shutdowns and return nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := l.cfg.Camera.ReadFrame()
		if errors.Is(err, capture.ErrSourceExhausted) {
			l.log.Info("frame source exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		quit := l.processFrame(frame)
		frame.Close()

		if quit {
			l.log.Info("quit requested")
			return nil
		}
	}
}

// processFrame handles one BGR frame and reports whether quit was requested.
func (l *Loop) processFrame(frame *gocv.Mat) bool {
	if l.cfg.Idle != nil {
		l.sceneIdle.Store(l.cfg.Idle.Observe(frame))
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(*frame, &rgb, gocv.ColorBGRToRGB)

	set, err := l.cfg.Source.Detect(&rgb)
	if err != nil {
		l.log.WithError(err).Warn("pose detection failed")
		set = nil
	}

	n := l.frames.Add(1)
	if n <= uint64(l.cfg.Warmup) {
		return false
	}

	if set != nil {
		l.detections.Add(1)
		if w, ok := l.buffer.Append(set.Flatten()); ok {
			l.windows.Add(1)
			l.cfg.Dispatcher.Dispatch(w)
		}
	} else {
		l.misses.Add(1)
	}

	overlay.Render(frame, set, l.cfg.State.Label())
	l.cfg.Display.Show(frame)
	if l.cfg.Frames != nil {
		l.cfg.Frames.Publish(frame)
	}

	return l.cfg.Display.PollQuit()
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:     l.frames.Load(),
		Detections: l.detections.Load(),
		Misses:     l.misses.Load(),
		Windows:    l.windows.Load(),
	}
}

// SceneIdle reports whether no motion has been seen for the idle timeout.
func (l *Loop) SceneIdle() bool {
	return l.sceneIdle.Load()
}
