package hook

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Device runs the subscribed hooks when the alert starts and stops.
// It satisfies alert.Device; hooks run in the background so the alert machine never waits on them.
type Device struct {
	manager  *Manager
	executor *Executor
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	log      *logrus.Entry
}

// NewDevice creates a Device firing hooks from manager through executor.
func NewDevice(manager *Manager, executor *Executor) *Device {
	ctx, cancel := context.WithCancel(context.Background())
	return &Device{
		manager:  manager,
		executor: executor,
		ctx:      ctx,
		cancel:   cancel,
		log:      logrus.WithField("component", "hook"),
	}
}

// PlayLoop fires alert_start.
func (d *Device) PlayLoop() error {
	d.fire(EventAlertStart, "punch")
	return nil
}

// Stop fires alert_stop.
func (d *Device) Stop() error {
	d.fire(EventAlertStop, "neutral")
	return nil
}

// Close waits for running hooks. Hooks still running when their timeout expires are killed.
func (d *Device) Close() error {
	d.wg.Wait()
	d.cancel()
	return nil
}

func (d *Device) fire(event, label string) {
	at := time.Now()
	for _, h := range d.manager.For(event) {
		d.wg.Add(1)
		go func(h *Hook) {
			defer d.wg.Done()

			entry := d.log.WithFields(logrus.Fields{"hook": h.Manifest.Name, "event": event})
			resp, err := d.executor.Execute(d.ctx, h, &Request{
				Event:  event,
				Label:  label,
				At:     at,
				Config: h.Manifest.Config,
			})
			if err != nil {
				entry.WithError(err).Warn("hook failed")
				return
			}
			if !resp.Success {
				entry.WithField("error", resp.Error).Warn("hook reported failure")
				return
			}
			entry.Debug("hook ran")
		}(h)
	}
}
