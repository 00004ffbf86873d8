package media

import (
	"context"
	"image"
	"io"
)

// Metadata is what a probe reports about a source file
type Metadata struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
}

// Size returns the natural frame size
func (m Metadata) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// MetadataProber reads duration and natural size of a source
type MetadataProber interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}

// Handle is a decodable, seekable video+audio source.
// Position is in seconds and stays within [0, Duration].
type Handle interface {
	Duration() float64
	NaturalSize() image.Point

	Position() float64
	SetPosition(seconds float64)
	// Seek moves to seconds and returns a channel closed once the frame
	// at that position is ready to read.
	Seek(seconds float64) <-chan struct{}

	Play() error
	Pause()
	Playing() bool

	Muted() bool
	SetMuted(muted bool)

	// CurrentFrame returns the most recently decoded frame, or nil before the first one
	CurrentFrame() image.Image

	Close() error
}

// FrameNotifier is implemented by handles that signal each decoded frame.
// The channel receives one value per frame and is never closed while the
// handle is open.
type FrameNotifier interface {
	FrameReady() <-chan struct{}
}

// TimeNotifier is implemented by handles that report playback advancing
type TimeNotifier interface {
	TimeUpdates() <-chan float64
}

// AudioSource is implemented by handles whose decoded audio can be tapped.
// The reader yields signed 16-bit little-endian interleaved PCM.
type AudioSource interface {
	HasAudio() bool
	AudioFormat() AudioFormat
	AudioOutput() io.Reader
}

// AudioFormat describes raw PCM
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// Opener creates a handle for a local file
type Opener interface {
	Open(ctx context.Context, path string, meta *Metadata) (Handle, error)
}

// FileChecker checks local paths before media is opened or saved
type FileChecker interface {
	Exists(path string) bool
	EnsureDir(dir string) error
}
