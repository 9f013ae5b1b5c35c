package alert

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/gesture"
)

// State is the alert machine state.
type State string

const (
	// Stopped means the alert is silent.
	Stopped State = "stopped"
	// Playing means the alert is looping.
	Playing State = "playing"
)

// Machine turns verdict labels into device transitions.
//
// Stopped + punch starts the device, Playing + neutral stops it, anything else is a no-op.
// The state and the device call are updated under one mutex so concurrent verdicts
// cannot leave them out of step.
type Machine struct {
	mu       sync.Mutex
	state    State
	device   Device
	shutdown bool
	starts   int
	stops    int
	log      *logrus.Entry
}

// NewMachine creates a Machine in the Stopped state.
func NewMachine(device Device) *Machine {
	return &Machine{
		state:  Stopped,
		device: device,
		log:    logrus.WithField("component", "alert"),
	}
}

// OnVerdict applies one verdict label.
func (m *Machine) OnVerdict(label gesture.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return
	}

	switch {
	case label.IsPunch() && m.state == Stopped:
		if err := m.device.PlayLoop(); err != nil {
			m.log.WithError(err).Error("failed to start alert")
			return
		}
		m.state = Playing
		m.starts++
		m.log.Info("alert started")

	case !label.IsPunch() && m.state == Playing:
		if err := m.device.Stop(); err != nil {
			m.log.WithError(err).Error("failed to stop alert")
			return
		}
		m.state = Stopped
		m.stops++
		m.log.Info("alert stopped")
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transitions returns how many times the alert was started and stopped.
func (m *Machine) Transitions() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

// Shutdown silences the alert and closes the device. Later verdicts are ignored.
func (m *Machine) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}
	m.shutdown = true

	if m.state == Playing {
		if err := m.device.Stop(); err != nil {
			m.log.WithError(err).Warn("failed to stop alert on shutdown")
		}
		m.state = Stopped
	}
	return m.device.Close()
}
