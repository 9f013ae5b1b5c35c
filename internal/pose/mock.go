package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource is a test implementation of the Source interface.
// It replays a scripted sequence of detections; a nil entry is a detection miss.
type MockSource struct {
	mu       sync.Mutex
	script   []*LandmarkSet
	fallback *LandmarkSet
	err      error
	calls    int
	closed   bool
}

// NewMockSource creates a new MockSource that detects nothing.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetLandmarks sets the landmarks returned on every call once the script is used up.
func (m *MockSource) SetLandmarks(set *LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = set
}

// SetScript sets per-call results, consumed in order.
func (m *MockSource) SetScript(script []*LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
}

// SetError sets the error that will be returned by Detect.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted result.
func (m *MockSource) Detect(frame *gocv.Mat) (*LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next, nil
	}
	return m.fallback, nil
}

// Calls returns how many times Detect has been called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GuardLandmarks returns a preset LandmarkSet of a person standing with fists raised.
func GuardLandmarks() *LandmarkSet {
	set := &LandmarkSet{}

	// Head
	set.Joints[Nose] = Landmark{X: 0.50, Y: 0.20, Z: -0.30, Visibility: 0.99}
	set.Joints[LeftEyeInner] = Landmark{X: 0.51, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[LeftEye] = Landmark{X: 0.52, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[LeftEyeOuter] = Landmark{X: 0.53, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[RightEyeInner] = Landmark{X: 0.49, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[RightEye] = Landmark{X: 0.48, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[RightEyeOuter] = Landmark{X: 0.47, Y: 0.18, Z: -0.29, Visibility: 0.99}
	set.Joints[LeftEar] = Landmark{X: 0.55, Y: 0.19, Z: -0.15, Visibility: 0.95}
	set.Joints[RightEar] = Landmark{X: 0.45, Y: 0.19, Z: -0.15, Visibility: 0.95}
	set.Joints[MouthLeft] = Landmark{X: 0.51, Y: 0.23, Z: -0.27, Visibility: 0.99}
	set.Joints[MouthRight] = Landmark{X: 0.49, Y: 0.23, Z: -0.27, Visibility: 0.99}

	// Arms bent, fists in front of the chin
	set.Joints[LeftShoulder] = Landmark{X: 0.60, Y: 0.32, Z: -0.05, Visibility: 0.99}
	set.Joints[RightShoulder] = Landmark{X: 0.40, Y: 0.32, Z: -0.05, Visibility: 0.99}
	set.Joints[LeftElbow] = Landmark{X: 0.63, Y: 0.45, Z: -0.10, Visibility: 0.97}
	set.Joints[RightElbow] = Landmark{X: 0.37, Y: 0.45, Z: -0.10, Visibility: 0.97}
	set.Joints[LeftWrist] = Landmark{X: 0.56, Y: 0.27, Z: -0.35, Visibility: 0.95}
	set.Joints[RightWrist] = Landmark{X: 0.44, Y: 0.27, Z: -0.35, Visibility: 0.95}
	set.Joints[LeftPinky] = Landmark{X: 0.57, Y: 0.26, Z: -0.37, Visibility: 0.90}
	set.Joints[RightPinky] = Landmark{X: 0.43, Y: 0.26, Z: -0.37, Visibility: 0.90}
	set.Joints[LeftIndex] = Landmark{X: 0.55, Y: 0.25, Z: -0.38, Visibility: 0.90}
	set.Joints[RightIndex] = Landmark{X: 0.45, Y: 0.25, Z: -0.38, Visibility: 0.90}
	set.Joints[LeftThumb] = Landmark{X: 0.55, Y: 0.26, Z: -0.36, Visibility: 0.90}
	set.Joints[RightThumb] = Landmark{X: 0.45, Y: 0.26, Z: -0.36, Visibility: 0.90}

	// Lower body
	set.Joints[LeftHip] = Landmark{X: 0.57, Y: 0.60, Z: 0.00, Visibility: 0.98}
	set.Joints[RightHip] = Landmark{X: 0.43, Y: 0.60, Z: 0.00, Visibility: 0.98}
	set.Joints[LeftKnee] = Landmark{X: 0.58, Y: 0.75, Z: 0.02, Visibility: 0.90}
	set.Joints[RightKnee] = Landmark{X: 0.42, Y: 0.75, Z: 0.02, Visibility: 0.90}
	set.Joints[LeftAnkle] = Landmark{X: 0.58, Y: 0.90, Z: 0.05, Visibility: 0.85}
	set.Joints[RightAnkle] = Landmark{X: 0.42, Y: 0.90, Z: 0.05, Visibility: 0.85}
	set.Joints[LeftHeel] = Landmark{X: 0.59, Y: 0.92, Z: 0.06, Visibility: 0.80}
	set.Joints[RightHeel] = Landmark{X: 0.41, Y: 0.92, Z: 0.06, Visibility: 0.80}
	set.Joints[LeftFootIndex] = Landmark{X: 0.57, Y: 0.95, Z: 0.00, Visibility: 0.80}
	set.Joints[RightFootIndex] = Landmark{X: 0.43, Y: 0.95, Z: 0.00, Visibility: 0.80}

	return set
}

// JabLandmarks returns GuardLandmarks with the left arm fully extended towards the camera.
func JabLandmarks() *LandmarkSet {
	set := GuardLandmarks()

	set.Joints[LeftElbow] = Landmark{X: 0.62, Y: 0.30, Z: -0.45, Visibility: 0.95}
	set.Joints[LeftWrist] = Landmark{X: 0.64, Y: 0.28, Z: -0.80, Visibility: 0.92}
	set.Joints[LeftPinky] = Landmark{X: 0.65, Y: 0.27, Z: -0.83, Visibility: 0.85}
	set.Joints[LeftIndex] = Landmark{X: 0.63, Y: 0.26, Z: -0.84, Visibility: 0.85}
	set.Joints[LeftThumb] = Landmark{X: 0.63, Y: 0.27, Z: -0.82, Visibility: 0.85}

	return set
}
