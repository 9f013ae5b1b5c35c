package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

const serviceScript = "pose_service.py"

// MediaPipeSource implements Source using a Python MediaPipe Pose subprocess.
//
// Frames are written to the service stdin as a 4-byte big-endian length followed by a
// msgpack request carrying the raw RGB pixels. The service answers with one JSON line.
type MediaPipeSource struct {
	config  Config
	script  string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	mu      sync.Mutex
	started bool
	log     *logrus.Entry
}

// NewMediaPipeSource creates a new MediaPipe pose source.
// The Python process is started lazily on first detection.
func NewMediaPipeSource(config Config) (*MediaPipeSource, error) {
	script := config.Script
	if script == "" {
		script = FindScript(serviceScript)
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("pose service script: %w", err)
	}

	return &MediaPipeSource{
		config: config,
		script: script,
		log:    logrus.WithField("component", "pose"),
	}, nil
}

type frameRequest struct {
	Width    int    `msgpack:"width"`
	Height   int    `msgpack:"height"`
	Channels int    `msgpack:"channels"`
	Pixels   []byte `msgpack:"pixels"`
}

type frameResponse struct {
	Landmarks []Landmark `json:"landmarks"`
	Error     string     `json:"error,omitempty"`
}

// Detect analyzes an RGB frame and returns the detected landmarks, or nil.
func (d *MediaPipeSource) Detect(frame *gocv.Mat) (*LandmarkSet, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	payload, err := msgpack.Marshal(frameRequest{
		Width:    frame.Cols(),
		Height:   frame.Rows(),
		Channels: frame.Channels(),
		Pixels:   frame.ToBytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := d.stdin.Write(length); err != nil {
		d.reset()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(payload); err != nil {
		d.reset()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.reset()
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response frameResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("pose service: %s", response.Error)
	}

	return toLandmarkSet(response.Landmarks)
}

// toLandmarkSet validates arity at the source boundary.
func toLandmarkSet(joints []Landmark) (*LandmarkSet, error) {
	if len(joints) == 0 {
		return nil, nil
	}
	if len(joints) != NumJoints {
		return nil, fmt.Errorf("%w: got %d joints, want %d", ErrArity, len(joints), NumJoints)
	}

	set := &LandmarkSet{}
	copy(set.Joints[:], joints)
	return set, nil
}

// Close shuts down the Python process.
func (d *MediaPipeSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeSource) ensureStarted() error {
	if d.started {
		return nil
	}

	python := d.config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script,
		"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.log.WithField("script", d.script).Info("pose service started")

	return nil
}

// reset tears the process down after a broken pipe so the next Detect restarts it.
func (d *MediaPipeSource) reset() {
	if err := d.shutdown(); err != nil {
		d.log.WithError(err).Warn("pose service exited")
	}
}

func (d *MediaPipeSource) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	return findFile(
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(".punchalert", "venv", "bin", "python"),
	)
}

// findFile returns the absolute path of the first candidate that exists. Each candidate
// is tried relative to the working directory, the executable directory and $HOME.
func findFile(candidates ...string) string {
	var roots []string
	roots = append(roots, ".")
	if execPath, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}

	for _, root := range roots {
		for _, c := range candidates {
			path := filepath.Join(root, c)
			if _, err := os.Stat(path); err == nil {
				if abs, err := filepath.Abs(path); err == nil {
					return abs
				}
				return path
			}
		}
	}
	return ""
}

// FindScript locates a service script under scripts/ or ~/.punchalert/scripts.
func FindScript(name string) string {
	return findFile(
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(".punchalert", "scripts", name),
	)
}

// FindPython returns the venv interpreter if one exists, else python3.
func FindPython() string {
	if p := findVenvPython(); p != "" {
		return p
	}
	return "python3"
}
