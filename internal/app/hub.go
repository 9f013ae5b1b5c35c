package app

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/punchalert/internal/gesture"
)

// Hub fans values out to subscribers. Slow subscribers lose their oldest value
// rather than blocking the publisher.
type Hub[T any] struct {
	mu   sync.RWMutex
	subs map[chan T]struct{}
}

// NewHub creates an empty Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[chan T]struct{})}
}

// Subscribe registers a subscriber with the given buffer size. The returned function
// unsubscribes and closes the channel.
func (h *Hub[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Full: drop the oldest value and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribers returns the number of subscribers.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Event types.
const (
	EventVerdict = "verdict"
	EventAlert   = "alert"
	EventStatus  = "status"
)

// Event is pushed to live clients.
type Event struct {
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	Seq         uint64    `json:"seq,omitempty"`
	Label       string    `json:"label,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	Error       string    `json:"error,omitempty"`
	Alert       string    `json:"alert,omitempty"`
	State       string    `json:"state,omitempty"`
}

// eventRelay turns verdicts and alert transitions into events. It is both a
// classify.Sink and an alert.Device.
type eventRelay struct {
	hub *Hub[Event]
}

func (r eventRelay) Record(v gesture.Verdict) {
	e := Event{
		Type:        EventVerdict,
		Time:        v.At,
		Seq:         v.Seq,
		Label:       v.Label.String(),
		Probability: v.Probability,
	}
	if v.Err != nil {
		e.Error = v.Err.Error()
	}
	r.hub.Publish(e)
}

func (r eventRelay) PlayLoop() error {
	r.hub.Publish(Event{Type: EventAlert, Time: time.Now(), Alert: "playing"})
	return nil
}

func (r eventRelay) Stop() error {
	r.hub.Publish(Event{Type: EventAlert, Time: time.Now(), Alert: "stopped"})
	return nil
}

func (r eventRelay) Close() error {
	return nil
}

// FrameHub distributes rendered frames as JPEG to stream clients.
type FrameHub struct {
	hub *Hub[[]byte]
}

// NewFrameHub creates a FrameHub.
func NewFrameHub() *FrameHub {
	return &FrameHub{hub: NewHub[[]byte]()}
}

// Subscribe registers a stream client.
func (f *FrameHub) Subscribe() (<-chan []byte, func()) {
	return f.hub.Subscribe(1)
}

// Publish encodes frame and hands it to subscribers. Nothing is encoded without subscribers.
func (f *FrameHub) Publish(frame *gocv.Mat) {
	if f.hub.Subscribers() == 0 {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		logrus.WithField("component", "app").WithError(err).Debug("failed to encode frame")
		return
	}
	defer buf.Close()

	f.hub.Publish(append([]byte(nil), buf.GetBytes()...))
}

// Subscribers returns the number of stream clients.
func (f *FrameHub) Subscribers() int {
	return f.hub.Subscribers()
}
