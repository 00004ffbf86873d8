package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"video-trimmer/domain/media"
)

// Recorder accumulates the output of one encoder session and finalizes it
// into an artifact. It performs no format-level work on the chunks.
type Recorder struct {
	encoder media.StreamEncoder
	logger  zerolog.Logger

	mu      sync.Mutex
	chunks  [][]byte
	profile media.Profile
	stream  *media.LiveStream
	session media.EncoderSession

	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// NewRecorder creates a recorder backed by encoder
func NewRecorder(encoder media.StreamEncoder, logger zerolog.Logger) *Recorder {
	return &Recorder{
		encoder: encoder,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start begins buffering chunks encoded from stream with profile.
// An unsupported profile fails immediately instead of falling back.
func (r *Recorder) Start(ctx context.Context, stream *media.LiveStream, profile media.Profile) error {
	if !r.encoder.Supports(profile) {
		return fmt.Errorf("%w: %s", media.ErrUnsupportedProfile, profile.MimeType())
	}

	session, err := r.encoder.Open(ctx, stream, media.EncoderConfig{
		Profile:            profile,
		VideoBitsPerSecond: media.VideoBitsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}

	r.mu.Lock()
	r.profile = profile
	r.stream = stream
	r.session = session
	r.mu.Unlock()

	r.logger.Debug().
		Str("mime_type", profile.MimeType()).
		Int("video_bps", media.VideoBitsPerSecond).
		Msg("encoder started")

	go r.collect(session.Chunks())
	return nil
}

func (r *Recorder) collect(chunks <-chan []byte) {
	defer close(r.done)
	for chunk := range chunks {
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
	r.logger.Debug().Int("chunks", r.ChunkCount()).Msg("encoder flushed")
}

// Stop ends the capture stream and requests finalization.
// Done is closed once the last chunk has been collected.
func (r *Recorder) Stop() error {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		stream, session := r.stream, r.session
		r.mu.Unlock()

		if stream != nil {
			stream.Stop()
		}
		if session != nil {
			r.stopErr = session.Stop()
		}
	})
	return r.stopErr
}

// Started reports whether an encoder session is running or finished
func (r *Recorder) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Done is closed after the encoder has flushed its final chunk
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// ChunkCount returns how many chunks have been collected so far
func (r *Recorder) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// Artifact concatenates every collected chunk in arrival order and tags it
// with the profile's base mime type
func (r *Recorder) Artifact() *media.Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return media.NewArtifact(r.profile.BaseMimeType(), r.chunks)
}
