package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// idleShutdown is how long the landmarker may sit unused before it is stopped.
	// The next Detect call starts it again.
	idleShutdown = 30 * time.Second

	serviceScript = "mediapipe_service.py"
)

// ErrServiceNotFound is returned when the landmarker script cannot be located.
var ErrServiceNotFound = errors.New("detector: " + serviceScript + " not found")

// MediaPipeDetector implements Detector with a MediaPipe hand landmarker
// running as a Python subprocess.
type MediaPipeDetector struct {
	config Config
	script string
	python string

	mu        sync.Mutex
	proc      *landmarkProcess
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the landmarker script and interpreter. The
// subprocess itself starts on the first Detect call.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := locate(scriptCandidates())
	if script == "" {
		return nil, ErrServiceNotFound
	}
	python := locate(pythonCandidates())
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{config: config.withDefaults(), script: script, python: python}, nil
}

// Detect sends frame to the landmarker and returns the hands it found, most
// confident first. A failed exchange stops the subprocess so the next call
// starts a fresh one.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("detector: empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		proc, err := startLandmarkProcess(d.python, d.script, d.config)
		if err != nil {
			return nil, err
		}
		d.proc = proc
		slog.Info("mediapipe service started", "python", d.python, "script", d.script, "max_hands", d.config.MaxHands)
	}

	hands, err := d.proc.roundTrip(buf.GetBytes())
	if err != nil {
		if stopErr := d.stopLocked(); stopErr != nil {
			slog.Debug("mediapipe service exited", "err", stopErr)
		}
		return nil, err
	}
	d.armIdleTimerLocked()

	return selectHands(hands, d.config), nil
}

// Close stops the subprocess if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.proc == nil {
		return nil
	}
	err := d.proc.stop()
	d.proc = nil
	return err
}

func (d *MediaPipeDetector) armIdleTimerLocked() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		slog.Debug("mediapipe service idle, stopping")
		if err := d.stopLocked(); err != nil {
			slog.Debug("mediapipe service exited", "err", err)
		}
	})
}

// landmarkProcess is one running landmarker. Each request is a 4-byte
// big-endian length followed by JPEG bytes; each reply is one JSON line.
type landmarkProcess struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

func startLandmarkProcess(python, script string, cfg Config) (*landmarkProcess, error) {
	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("landmarker stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("landmarker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmarker: %w", err)
	}

	return &landmarkProcess{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (p *landmarkProcess) roundTrip(jpeg []byte) ([]HandLandmarks, error) {
	if err := writeFrame(p.in, jpeg); err != nil {
		return nil, err
	}
	return readHands(p.out)
}

func (p *landmarkProcess) stop() error {
	p.in.Close()
	return p.cmd.Wait()
}

// writeFrame writes one length-prefixed frame.
func writeFrame(w io.Writer, data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// landmarkReply is the landmarker's answer to one frame.
type landmarkReply struct {
	Hands []struct {
		Points     []Point3D `json:"points"`
		Handedness string    `json:"handedness"`
		Score      float64   `json:"score"`
	} `json:"hands"`
	Error string `json:"error,omitempty"`
}

// readHands reads one reply line.
func readHands(r *bufio.Reader) ([]HandLandmarks, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}

	var reply landmarkReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse landmarks: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("landmarker: %s", reply.Error)
	}

	hands := make([]HandLandmarks, len(reply.Hands))
	for i, h := range reply.Hands {
		hands[i] = FromPoints(h.Points)
		hands[i].Handedness = h.Handedness
		hands[i].Score = h.Score
	}
	return hands, nil
}

// selectHands drops hands scored below the detection threshold and keeps at
// most MaxHands, highest score first.
func selectHands(hands []HandLandmarks, cfg Config) []HandLandmarks {
	kept := make([]HandLandmarks, 0, len(hands))
	for _, h := range hands {
		if h.Score >= cfg.MinConfidence {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if cfg.MaxHands > 0 && len(kept) > cfg.MaxHands {
		kept = kept[:cfg.MaxHands]
	}
	return kept
}

func scriptCandidates() []string {
	paths := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "scripts", serviceScript))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mudra", "scripts", serviceScript))
	}
	return paths
}

func pythonCandidates() []string {
	paths := []string{
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "venv", "bin", "python"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mudra", "venv", "bin", "python"))
	}
	return paths
}

// locate returns the absolute path of the first candidate that exists.
func locate(candidates []string) string {
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
