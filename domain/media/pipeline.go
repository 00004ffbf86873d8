package media

import (
	"context"
	"image"
	"io"
)

// Surface is a fixed-size drawing target observed by the capture stream
type Surface interface {
	Bounds() image.Rectangle
	// DrawFrame draws src scaled to the whole surface
	DrawFrame(src image.Image)
	// DrawWatermark draws label anchored bottom-right
	DrawWatermark(label string)
	// Snapshot copies the current surface pixels as tightly packed RGBA
	Snapshot() []byte
	Close() error
}

// SurfaceFactory builds surfaces of a given size
type SurfaceFactory interface {
	NewSurface(width, height int) (Surface, error)
}

// AudioGraph routes a source's audio to a capture destination while the
// monitor output keeps receiving it.
type AudioGraph interface {
	// Capture is the capturable destination, nil when the source has no audio
	Capture() io.Reader
	Format() AudioFormat
	Close() error
}

// AudioRouter builds an audio graph for a handle
type AudioRouter interface {
	Route(h Handle) (AudioGraph, error)
}

// LiveStream is a combined video+audio stream fed to an encoder.
// Video carries tightly packed RGBA frames of Width x Height.
type LiveStream struct {
	Width       int
	Height      int
	FrameRate   int
	Video       <-chan []byte
	Audio       io.Reader
	AudioFormat AudioFormat

	stop func()
}

// NewLiveStream creates a stream whose Stop calls stop once
func NewLiveStream(width, height, frameRate int, video <-chan []byte, stop func()) *LiveStream {
	return &LiveStream{
		Width:     width,
		Height:    height,
		FrameRate: frameRate,
		Video:     video,
		stop:      stop,
	}
}

// WithAudio attaches an audio track to the stream
func (s *LiveStream) WithAudio(r io.Reader, f AudioFormat) *LiveStream {
	s.Audio = r
	s.AudioFormat = f
	return s
}

// HasAudio reports whether an audio track is attached
func (s *LiveStream) HasAudio() bool {
	return s.Audio != nil
}

// Stop ends the video track; the Video channel is closed afterwards
func (s *LiveStream) Stop() {
	if s.stop != nil {
		s.stop()
	}
}

// EncoderConfig is the encoder configuration for one session
type EncoderConfig struct {
	Profile            Profile
	VideoBitsPerSecond int
}

// StreamEncoder opens streaming encoder sessions
type StreamEncoder interface {
	Supports(p Profile) bool
	Open(ctx context.Context, stream *LiveStream, cfg EncoderConfig) (EncoderSession, error)
}

// EncoderSession produces encoded chunks in arrival order.
// Chunks is closed after the last chunk has been flushed.
type EncoderSession interface {
	Chunks() <-chan []byte
	// Stop requests finalization; remaining chunks keep arriving on Chunks
	Stop() error
}
