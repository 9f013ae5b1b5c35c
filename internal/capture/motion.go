package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21
	// pixelDelta is the grey-level change that counts a pixel as moved.
	pixelDelta = 25
	// DefaultIdleTimeout is how long without motion before the scene is idle.
	DefaultIdleTimeout = 10 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
)

// MotionDetector measures how much of the frame changed since the previous one.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of pixels
// that must change for a frame to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether it moved and the
// changed-pixel percentage. The first frame only primes the detector.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Close releases the previous-frame buffer.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}

// IdleTracker reports the scene idle once no motion has been seen for a timeout.
type IdleTracker struct {
	detector   *MotionDetector
	timeout    time.Duration
	lastMotion time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewIdleTracker creates an IdleTracker. A zero timeout uses DefaultIdleTimeout.
func NewIdleTracker(detector *MotionDetector, timeout time.Duration) *IdleTracker {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	t := &IdleTracker{
		detector: detector,
		timeout:  timeout,
		now:      time.Now,
	}
	t.lastMotion = t.now()
	return t
}

// Observe feeds a frame and returns whether the scene is idle.
func (t *IdleTracker) Observe(frame *gocv.Mat) bool {
	moved, _ := t.detector.Detect(frame)
	return t.Mark(moved)
}

// Mark records whether motion was seen now and returns whether the scene is idle.
func (t *IdleTracker) Mark(moved bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if moved {
		t.lastMotion = now
	}
	return now.Sub(t.lastMotion) >= t.timeout
}

// Idle reports whether the scene is idle without feeding a frame.
func (t *IdleTracker) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.lastMotion) >= t.timeout
}

// Close releases the detector.
func (t *IdleTracker) Close() {
	t.detector.Close()
}
