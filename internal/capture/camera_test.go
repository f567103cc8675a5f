package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	for _, id := range []int{0, 1, 2} {
		cam := NewCamera(id)
		if got := cam.FPS(); got != DefaultFPS {
			t.Errorf("camera %d: FPS() = %d, want %d", id, got, DefaultFPS)
		}
		if cam.IsOpen() {
			t.Errorf("camera %d: open before Open()", id)
		}
	}
}

func TestNewCamera_Options(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantFPS    int
		wantWidth  int
		wantHeight int
		wantMirror bool
	}{
		{"defaults", nil, DefaultFPS, DefaultWidth, DefaultHeight, false},
		{"custom", []Option{WithFPS(30), WithResolution(320, 240), WithMirror(true)}, 30, 320, 240, true},
		{"invalid values ignored", []Option{WithFPS(0), WithResolution(-1, 240)}, DefaultFPS, DefaultWidth, DefaultHeight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewCamera(0, tt.opts...).(*device)
			if d.fps != tt.wantFPS {
				t.Errorf("fps = %d, want %d", d.fps, tt.wantFPS)
			}
			if d.width != tt.wantWidth || d.height != tt.wantHeight {
				t.Errorf("resolution = %dx%d, want %dx%d", d.width, d.height, tt.wantWidth, tt.wantHeight)
			}
			if d.mirror != tt.wantMirror {
				t.Errorf("mirror = %v, want %v", d.mirror, tt.wantMirror)
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	// Non-positive values keep the previous rate.
	for _, step := range []struct{ set, want int }{{10, 10}, {1, 1}, {0, 1}, {-5, 1}, {30, 30}} {
		cam.SetFPS(step.set)
		if got := cam.FPS(); got != step.want {
			t.Errorf("after SetFPS(%d): FPS() = %d, want %d", step.set, got, step.want)
		}
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a closed camera = %v, want nil", err)
	}
}

func TestCamera_Device(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping device test in short mode")
	}

	cam := NewCamera(0, WithMirror(true))
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	defer cam.Close()

	if !cam.IsOpen() {
		t.Error("IsOpen() = false after Open()")
	}
	if err := cam.Open(); err != nil {
		t.Errorf("second Open() error = %v", err)
	}

	frame, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if frame.Empty() {
		t.Error("ReadFrame() returned an empty frame")
	}
	t.Logf("frame %dx%d", frame.Cols(), frame.Rows())
	frame.Close()

	if err := cam.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() = true after Close()")
	}
}
