package export

import (
	"sync"
	"time"

	"video-trimmer/domain/media"
)

// DefaultFrameRate is the nominal capture cadence
const DefaultFrameRate = 30

// CaptureStream exposes a surface as a live video stream. Frames are
// sampled at a fixed nominal rate while draws happen whenever the caller
// paints, so the sampled frame is always the latest complete paint.
type CaptureStream struct {
	surface   media.Surface
	frameRate int

	mu      sync.Mutex
	painted bool

	frames   chan []byte
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCaptureStream creates a capture over surface at frameRate frames per second
func NewCaptureStream(surface media.Surface, frameRate int) *CaptureStream {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &CaptureStream{
		surface:   surface,
		frameRate: frameRate,
		frames:    make(chan []byte, frameRate),
		stop:      make(chan struct{}),
	}
}

// Paint runs draw with exclusive access to the surface
func (c *CaptureStream) Paint(draw func(s media.Surface)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw(c.surface)
	c.painted = true
}

// Start begins sampling and returns the live stream. Nothing is emitted
// until the first paint.
func (c *CaptureStream) Start() *media.LiveStream {
	b := c.surface.Bounds()
	go c.run()
	return media.NewLiveStream(b.Dx(), b.Dy(), c.frameRate, c.frames, c.Stop)
}

// Stop ends sampling; the video channel is closed afterwards
func (c *CaptureStream) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *CaptureStream) run() {
	defer close(c.frames)

	ticker := time.NewTicker(time.Second / time.Duration(c.frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		frame := c.sample()
		if frame == nil {
			continue
		}

		select {
		case c.frames <- frame:
		case <-c.stop:
			return
		}
	}
}

func (c *CaptureStream) sample() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.painted {
		return nil
	}
	return c.surface.Snapshot()
}
