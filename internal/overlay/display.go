package overlay

import (
	"sync"

	"gocv.io/x/gocv"
)

// DefaultTitle is the window title of the presentation surface.
const DefaultTitle = "Pose Detection"

// Display shows rendered frames and reports when the user asks to quit.
type Display interface {
	Show(frame *gocv.Mat)
	// PollQuit services the UI event queue and reports whether the quit key was pressed.
	PollQuit() bool
	Close() error
}

// WindowDisplay shows frames in an OpenCV window. It must be used from the main thread.
type WindowDisplay struct {
	window  *gocv.Window
	quitKey int
}

// NewWindowDisplay opens a window. quitKey is the key that ends the session, 'q' if zero.
func NewWindowDisplay(title string, quitKey rune) *WindowDisplay {
	if title == "" {
		title = DefaultTitle
	}
	if quitKey == 0 {
		quitKey = 'q'
	}
	return &WindowDisplay{
		window:  gocv.NewWindow(title),
		quitKey: int(quitKey),
	}
}

// Show displays frame.
func (d *WindowDisplay) Show(frame *gocv.Mat) {
	d.window.IMShow(*frame)
}

// PollQuit waits 1ms for a key press.
func (d *WindowDisplay) PollQuit() bool {
	return d.window.WaitKey(1) == d.quitKey
}

// Close destroys the window.
func (d *WindowDisplay) Close() error {
	return d.window.Close()
}

// HeadlessDisplay discards frames. Quit can be requested programmatically.
type HeadlessDisplay struct {
	mu     sync.Mutex
	shown  int
	quit   bool
	closed bool
}

// NewHeadlessDisplay creates a HeadlessDisplay.
func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{}
}

// Show counts the frame.
func (d *HeadlessDisplay) Show(*gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
}

// PollQuit reports whether Quit was called.
func (d *HeadlessDisplay) PollQuit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

// Quit makes the next PollQuit return true.
func (d *HeadlessDisplay) Quit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit = true
}

// Shown returns the number of frames shown.
func (d *HeadlessDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// Close marks the display closed.
func (d *HeadlessDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *HeadlessDisplay) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
