// Package tray provides a system tray shell for the punch alert detector.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/app"
	"github.com/ayusman/punchalert/internal/gesture"
)

// Controller is the detector surface the tray drives. *app.Controller implements it.
type Controller interface {
	Start() error
	Stop() error
	Status() app.Status
	Events() *app.Hub[app.Event]
}

// Tray is the system tray application.
type Tray struct {
	ctrl       Controller
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex
	lastErr    error
	lastLabel  gesture.Label
	log        *logrus.Entry

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a Tray for ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{
		ctrl: ctrl,
		log:  logrus.WithField("component", "tray"),
	}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("PunchAlert")
	systray.SetTooltip("PunchAlert gesture detector")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(false), "Start or stop detection")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusLine(t.ctrl.Status(), nil), "Detector status")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem(lastLine(""), "Last classified gesture")
	t.menuLast.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit PunchAlert")

	events, unsubscribe := t.ctrl.Events().Subscribe(16)

	go func() {
		defer unsubscribe()
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				t.observe(e)
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	if err := t.ctrl.Stop(); err != nil {
		t.log.WithError(err).Warn("failed to stop detection on exit")
	}
}

// handleToggle starts detection when stopped and stops it when running.
func (t *Tray) handleToggle() {
	var err error
	if t.ctrl.Status().State == app.StateRunning {
		err = t.ctrl.Stop()
	} else {
		err = t.ctrl.Start()
	}
	if err != nil {
		t.log.WithError(err).Error("toggle detection failed")
	}

	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	t.refresh()
}

// observe folds a live event into the menu.
func (t *Tray) observe(e app.Event) {
	if e.Type == app.EventVerdict {
		t.mu.Lock()
		t.lastLabel = gesture.Label(e.Label)
		t.mu.Unlock()
	}
	t.refresh()
}

func (t *Tray) refresh() {
	st := t.ctrl.Status()

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle == nil {
		return
	}
	t.menuToggle.SetTitle(toggleTitle(st.State == app.StateRunning))
	t.menuStatus.SetTitle(statusLine(st, t.lastErr))
	t.menuLast.SetTitle(lastLine(t.lastLabel))
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// LastLabel returns the most recent verdict label seen by the tray.
func (t *Tray) LastLabel() gesture.Label {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLabel
}

func toggleTitle(running bool) string {
	if running {
		return "■ Stop detection"
	}
	return "▶ Start detection"
}

func statusLine(st app.Status, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}

	switch st.State {
	case app.StateRunning:
		line := fmt.Sprintf("Running: %d frames, %d windows", st.Stats.Frames, st.Stats.Windows)
		if st.SceneIdle {
			line += " (idle)"
		}
		return line
	case app.StateStopped:
		return "Stopped"
	default:
		return "Idle"
	}
}

func lastLine(l gesture.Label) string {
	if l == "" {
		return "Last: none"
	}
	return "Last: " + l.String()
}
