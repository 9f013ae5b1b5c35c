// Package capture reads frames from a camera or a video file using GoCV.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrSourceExhausted is returned when the source has no more frames: the camera
	// stopped delivering or the video file ended.
	ErrSourceExhausted = errors.New("frame source exhausted")
)

// Config selects the frame source.
type Config struct {
	// DeviceID is the camera index used when File is empty.
	DeviceID int
	// File is a video file to replay instead of a camera.
	File string
	// Width and Height request a capture resolution. Zero keeps the device default.
	Width  int
	Height int
	// FPS requests a capture rate. Zero keeps the device default.
	FPS int
}

// DefaultConfig returns the settings for the default webcam.
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
}

// Source describes where frames come from, for logs.
func (c Config) Source() string {
	if c.File != "" {
		return c.File
	}
	return fmt.Sprintf("camera %d", c.DeviceID)
}

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame; the caller closes it.
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

type videoCamera struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera for cfg. Nothing is opened until Open.
func NewCamera(cfg Config) Camera {
	return &videoCamera{cfg: cfg}
}

// Open opens the device or file.
func (c *videoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if c.cfg.File != "" {
		capture, err = gocv.VideoCaptureFile(c.cfg.File)
	} else {
		capture, err = gocv.OpenVideoCapture(c.cfg.DeviceID)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", c.cfg.Source(), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %s: device did not open", c.cfg.Source())
	}

	if c.cfg.File == "" {
		if c.cfg.Width > 0 && c.cfg.Height > 0 {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
			capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
		}
		if c.cfg.FPS > 0 {
			capture.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))
		}
	}

	c.capture = capture
	c.running = true
	logrus.WithField("component", "capture").WithField("source", c.cfg.Source()).Info("frame source opened")

	return nil
}

// Close releases the device.
func (c *videoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads the next frame. A failed or empty read means the source is exhausted.
func (c *videoCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrSourceExhausted
	}

	return &mat, nil
}

// IsOpen reports whether the source is open.
func (c *videoCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
