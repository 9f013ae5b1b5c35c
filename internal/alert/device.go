// Package alert drives the alert device from classifier verdicts.
package alert

import (
	"errors"
	"sync"
)

// ErrDeviceUnavailable is returned when the audio output cannot be opened or used.
var ErrDeviceUnavailable = errors.New("alert device unavailable")

// Device produces the alert. Implementations must tolerate Stop when not playing
// and PlayLoop when already playing.
type Device interface {
	// PlayLoop starts the alert, repeating until Stop.
	PlayLoop() error
	// Stop silences the alert.
	Stop() error
	// Close releases the device.
	Close() error
}

// NopDevice is a Device that does nothing. It counts calls for tests and headless runs.
type NopDevice struct {
	mu     sync.Mutex
	plays  int
	stops  int
	closed bool
}

// PlayLoop records a play.
func (d *NopDevice) PlayLoop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	return nil
}

// Stop records a stop.
func (d *NopDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

// Close marks the device closed.
func (d *NopDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Counts returns the number of PlayLoop and Stop calls.
func (d *NopDevice) Counts() (plays, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays, d.stops
}

// Closed reports whether Close was called.
func (d *NopDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Multi fans every call out to several devices. The first device is the primary one:
// PlayLoop and Stop reach the others only once the primary has succeeded, so a failed
// transition leaves every device as it was. Errors from the others are joined.
type Multi []Device

// PlayLoop starts the primary, then the other devices.
func (m Multi) PlayLoop() error {
	return m.chain(Device.PlayLoop)
}

// Stop stops the primary, then the other devices.
func (m Multi) Stop() error {
	return m.chain(Device.Stop)
}

// Close closes every device.
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		errs = append(errs, d.Close())
	}
	return errors.Join(errs...)
}

func (m Multi) chain(fn func(Device) error) error {
	if len(m) == 0 {
		return nil
	}
	if err := fn(m[0]); err != nil {
		return err
	}

	var errs []error
	for _, d := range m[1:] {
		errs = append(errs, fn(d))
	}
	return errors.Join(errs...)
}
