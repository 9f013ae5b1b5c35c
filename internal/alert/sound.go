package alert

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

const framesPerBuffer = 512

// Clip is a decoded sound held in memory as interleaved float32 samples in [-1, 1].
type Clip struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// LoadClip decodes a PCM WAV file.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode sound: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s has no audio", path)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	return &Clip{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// Resample returns the clip converted to rate by linear interpolation.
// The clip itself is returned when rate is zero or already matches.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.SampleRate || c.SampleRate <= 0 || c.Channels <= 0 {
		return c
	}

	in := len(c.Samples) / c.Channels
	out := int(int64(in) * int64(rate) / int64(c.SampleRate))
	if out < 1 {
		out = 1
	}
	step := float64(c.SampleRate) / float64(rate)

	samples := make([]float32, out*c.Channels)
	for i := 0; i < out; i++ {
		src := float64(i) * step
		j := int(src)
		frac := float32(src - float64(j))
		next := j + 1
		if next >= in {
			next = in - 1
		}
		for ch := 0; ch < c.Channels; ch++ {
			a := c.Samples[j*c.Channels+ch]
			b := c.Samples[next*c.Channels+ch]
			samples[i*c.Channels+ch] = a + (b-a)*frac
		}
	}

	return &Clip{Samples: samples, Channels: c.Channels, SampleRate: rate}
}

// SoundDevice loops a clip on the default audio output.
type SoundDevice struct {
	mu      sync.Mutex
	clip    *Clip
	stream  *portaudio.Stream
	pos     atomic.Int64
	playing bool
	closed  bool
	log     *logrus.Entry
}

// NewSoundDevice loads the clip at path and opens the default output stream at
// sampleRate, or at the clip's own rate when sampleRate is zero.
// Errors wrap ErrDeviceUnavailable.
func NewSoundDevice(path string, sampleRate int) (*SoundDevice, error) {
	clip, err := LoadClip(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return NewClipDevice(clip.Resample(sampleRate))
}

// NewClipDevice opens the default output stream for an already decoded clip.
func NewClipDevice(clip *Clip) (*SoundDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	d := &SoundDevice{
		clip: clip,
		log:  logrus.WithField("component", "alert"),
	}

	stream, err := portaudio.OpenDefaultStream(0, clip.Channels, float64(clip.SampleRate), framesPerBuffer, d.fill)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.stream = stream

	d.log.WithFields(logrus.Fields{
		"channels":    clip.Channels,
		"sample_rate": clip.SampleRate,
	}).Info("audio output opened")

	return d, nil
}

// fill runs on the audio thread and copies the clip into out, wrapping at the end.
func (d *SoundDevice) fill(out []float32) {
	samples := d.clip.Samples
	pos := int(d.pos.Load())
	for i := range out {
		out[i] = samples[pos]
		pos++
		if pos == len(samples) {
			pos = 0
		}
	}
	d.pos.Store(int64(pos))
}

// PlayLoop restarts the clip from the beginning and loops it until Stop.
func (d *SoundDevice) PlayLoop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceUnavailable
	}
	if d.playing {
		return nil
	}

	d.pos.Store(0)
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.playing = true
	return nil
}

// Stop pauses playback.
func (d *SoundDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || !d.playing {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	d.playing = false
	return nil
}

// Close stops playback and releases the audio output.
func (d *SoundDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.playing {
		_ = d.stream.Stop()
		d.playing = false
	}
	err := d.stream.Close()
	_ = portaudio.Terminate()
	return err
}
