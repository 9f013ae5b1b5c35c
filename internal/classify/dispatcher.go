package classify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/window"
)

// Alerter receives every committed label. alert.Machine implements it.
type Alerter interface {
	OnVerdict(label gesture.Label)
}

// Sink observes every verdict, committed or not.
type Sink interface {
	Record(v gesture.Verdict)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(v gesture.Verdict)

// Record calls f.
func (f SinkFunc) Record(v gesture.Verdict) {
	f(v)
}

// Dispatcher spawns one classification goroutine per completed window.
//
// Tasks are never queued or coalesced, so windows may finish out of order. Each task
// commits its verdict to the shared State and forwards the label to the Alerter as one
// serialized step.
// Tasks are tracked so Drain can wait for them before the alert device is torn down.
type Dispatcher struct {
	classifier *Classifier
	state      *gesture.State
	alerter    Alerter
	sinks      []Sink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// gate is read-held while a task publishes its side effects and write-held by Drain
	// when it closes the dispatcher, so nothing publishes after Drain returns.
	gate   sync.RWMutex
	closed bool

	// commitMu orders the label commit and the alert call as one step, so the alert
	// always reflects the most recently committed label.
	commitMu sync.Mutex

	seq      atomic.Uint64
	inFlight atomic.Int64
	failures atomic.Uint64
	log      *logrus.Entry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(c *Classifier, state *gesture.State, alerter Alerter, sinks ...Sink) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		classifier: c,
		state:      state,
		alerter:    alerter,
		sinks:      sinks,
		ctx:        ctx,
		cancel:     cancel,
		log:        logrus.WithField("component", "classify"),
	}
}

// Dispatch starts classification of w in a new goroutine and returns its sequence
// number without waiting. Windows dispatched after Drain are dropped and return 0.
func (d *Dispatcher) Dispatch(w window.Window) uint64 {
	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return 0
	}

	seq := d.seq.Add(1)
	d.wg.Add(1)
	d.inFlight.Add(1)
	go d.run(seq, w)

	return seq
}

func (d *Dispatcher) run(seq uint64, w window.Window) {
	defer d.wg.Done()
	defer d.inFlight.Add(-1)

	start := time.Now()
	label, p, err := d.classifier.Classify(d.ctx, w)
	v := gesture.Verdict{
		Seq:         seq,
		Label:       label,
		Probability: p,
		Latency:     time.Since(start),
		Err:         err,
		At:          time.Now(),
	}

	if err != nil {
		// A failed window counts as neutral so a playing alert is stopped, not stuck.
		d.failures.Add(1)
		v.Label = gesture.Neutral
		d.log.WithError(err).WithField("seq", seq).Warn("inference failed, treating window as neutral")
	}

	d.publish(v)
}

func (d *Dispatcher) publish(v gesture.Verdict) {
	d.gate.RLock()
	defer d.gate.RUnlock()

	if d.closed {
		d.log.WithField("seq", v.Seq).Debug("discarding verdict after shutdown")
		return
	}

	d.commitMu.Lock()
	if d.state.Commit(v) {
		d.alerter.OnVerdict(v.Label)
	} else {
		d.log.WithField("seq", v.Seq).Debug("stale verdict not committed")
	}
	d.commitMu.Unlock()

	for _, s := range d.sinks {
		s.Record(v)
	}

	d.log.WithFields(logrus.Fields{
		"seq":         v.Seq,
		"label":       v.Label,
		"probability": v.Probability,
		"latency":     v.Latency,
	}).Debug("window classified")
}

// Drain waits for in-flight tasks until ctx is done, then closes the dispatcher.
// Tasks still running after that have their context cancelled and their verdicts
// discarded. Drain returns ctx.Err() if it had to give up waiting.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		d.log.WithField("in_flight", d.InFlight()).Warn("drain timed out, cancelling classifications")
	}

	d.gate.Lock()
	d.closed = true
	d.gate.Unlock()
	d.cancel()

	return err
}

// InFlight returns the number of running classification tasks.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Dispatched returns the number of windows dispatched so far.
func (d *Dispatcher) Dispatched() uint64 {
	return d.seq.Load()
}

// Failures returns the number of windows whose inference failed.
func (d *Dispatcher) Failures() uint64 {
	return d.failures.Load()
}
