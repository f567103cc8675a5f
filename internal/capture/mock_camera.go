package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays a fixed list of frames. A nil entry reads as a dropped
// frame (ErrNoFrame). It is safe for concurrent use.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	loop   bool
	pos    int
	open   bool
	fps    int
	reads  int
}

// NewMockCamera returns a closed camera over frames. With loop set, playback
// wraps around instead of running dry.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds playback to the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	c.open, c.pos = true, 0
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	return nil
}

// ReadFrame returns a copy of the next frame; the caller closes it.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	c.reads++

	if c.pos == len(c.frames) && c.loop {
		c.pos = 0
	}
	if c.pos >= len(c.frames) {
		return nil, ErrNoFrame
	}
	src := c.frames[c.pos]
	c.pos++

	if src == nil {
		return nil, ErrNoFrame
	}
	frame := src.Clone()
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	if fps > 0 {
		c.fps = fps
	}
	c.mu.Unlock()
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads counts ReadFrame calls made while open, including dropped frames.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
