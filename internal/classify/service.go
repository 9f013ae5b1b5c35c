package classify

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrServiceNotReady is returned when the classifier service does not complete its handshake.
var ErrServiceNotReady = errors.New("classifier service not ready")

// maxMessage bounds a single framed response from the service.
const maxMessage = 1 << 20

// ServiceConfig configures the Python classifier service.
type ServiceConfig struct {
	Python string
	Script string
	Model  string
}

// ServiceModel runs a Keras model in a Python subprocess.
//
// Both directions use a 4-byte big-endian length prefix followed by a msgpack body.
// The service sends one message with ready set once the model is loaded.
type ServiceModel struct {
	cfg     ServiceConfig
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	closed  bool
	log     *logrus.Entry
}

type inferRequest struct {
	Steps    int       `msgpack:"steps"`
	Features int       `msgpack:"features"`
	Data     []float32 `msgpack:"data"`
}

type inferResponse struct {
	Ready       bool    `msgpack:"ready,omitempty"`
	Probability float64 `msgpack:"probability"`
	Error       string  `msgpack:"error,omitempty"`
}

// NewServiceModel creates a ServiceModel. The process starts on first inference.
func NewServiceModel(cfg ServiceConfig) (*ServiceModel, error) {
	if cfg.Script == "" {
		return nil, fmt.Errorf("classifier service script not set")
	}
	if _, err := os.Stat(cfg.Script); err != nil {
		return nil, fmt.Errorf("classifier service script: %w", err)
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}

	return &ServiceModel{
		cfg: cfg,
		log: logrus.WithField("component", "classify"),
	}, nil
}

// Infer sends the batch to the service and waits for the probability.
// If ctx is cancelled mid-call the process is killed and restarted on the next call.
func (m *ServiceModel) Infer(ctx context.Context, batch Batch) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrModelClosed
	}
	// Tasks abandoned while queued on the lock must not touch the process.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := m.ensureStarted(); err != nil {
		return 0, err
	}

	type result struct {
		p   float64
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := m.exchange(batch)
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			m.reset()
		}
		return r.p, r.err
	case <-ctx.Done():
		if m.cmd != nil && m.cmd.Process != nil {
			m.cmd.Process.Kill()
		}
		<-done
		m.reset()
		return 0, ctx.Err()
	}
}

func (m *ServiceModel) exchange(batch Batch) (float64, error) {
	if err := writeFrame(m.stdin, inferRequest{
		Steps:    batch.Steps,
		Features: batch.Features,
		Data:     batch.Data,
	}); err != nil {
		return 0, err
	}

	var resp inferResponse
	if err := readFrame(m.stdout, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("classifier service: %s", resp.Error)
	}
	return resp.Probability, nil
}

func (m *ServiceModel) ensureStarted() error {
	if m.started {
		return nil
	}

	args := []string{m.cfg.Script}
	if m.cfg.Model != "" {
		args = append(args, "--model", m.cfg.Model)
	}
	m.cmd = exec.Command(m.cfg.Python, args...)

	stdin, err := m.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	m.cmd.Stderr = os.Stderr

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start classifier service: %w", err)
	}

	m.stdin = stdin
	m.stdout = bufio.NewReader(stdout)
	m.started = true

	var hello inferResponse
	if err := readFrame(m.stdout, &hello); err != nil {
		m.reset()
		return fmt.Errorf("%w: %v", ErrServiceNotReady, err)
	}
	if !hello.Ready {
		m.reset()
		return fmt.Errorf("%w: %s", ErrServiceNotReady, hello.Error)
	}

	m.log.WithField("script", m.cfg.Script).Info("classifier service started")
	return nil
}

func (m *ServiceModel) reset() {
	if err := m.shutdown(); err != nil {
		m.log.WithError(err).Warn("classifier service exited")
	}
}

func (m *ServiceModel) shutdown() error {
	if !m.started {
		return nil
	}

	if m.stdin != nil {
		m.stdin.Close()
	}
	err := m.cmd.Wait()

	m.started = false
	m.cmd = nil
	m.stdin = nil
	m.stdout = nil
	return err
}

// Close stops the service.
func (m *ServiceModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return m.shutdown()
}

func writeFrame(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v any) error {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return fmt.Errorf("read length: %w", err)
	}

	n := binary.BigEndian.Uint32(length)
	if n > maxMessage {
		return fmt.Errorf("response too large: %d bytes", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
