// Package capture reads webcam frames for the fingerspelling tick loop.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. DefaultFPS matches the default tick rate so that
// every tick sees a fresh frame.
const (
	DefaultFPS    = 20
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device delivers no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a source of video frames. ReadFrame is called once per tick;
// the caller closes the returned Mat.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Option configures a device camera.
type Option func(*device)

// WithResolution requests a capture resolution. Devices may ignore it.
func WithResolution(width, height int) Option {
	return func(d *device) {
		if width > 0 && height > 0 {
			d.width, d.height = width, height
		}
	}
}

// WithFPS sets the initial capture rate.
func WithFPS(fps int) Option {
	return func(d *device) {
		if fps > 0 {
			d.fps = fps
		}
	}
}

// WithMirror flips every frame around the vertical axis.
func WithMirror(mirror bool) Option {
	return func(d *device) {
		d.mirror = mirror
	}
}

// device captures from a local video device with GoCV.
type device struct {
	id     int
	width  int
	height int
	mirror bool

	mu  sync.Mutex
	vc  *gocv.VideoCapture
	fps int
}

// NewCamera returns a Camera for video device id. It is not opened.
func NewCamera(id int, opts ...Option) Camera {
	d := &device{
		id:     id,
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open opens the device. Opening an open camera is a no-op.
func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", d.id)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.fps))
	d.vc = vc
	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

// ReadFrame grabs the next frame, mirrored if configured.
func (d *device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	if ok := d.vc.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return nil, ErrNoFrame
	}
	if d.mirror {
		gocv.Flip(frame, &frame, 1)
	}
	return &frame, nil
}

// SetFPS changes the requested capture rate. Non-positive values are ignored.
func (d *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.fps = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (d *device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fps
}

func (d *device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}
