package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"video-trimmer/domain/media"
)

// Encoder implements media.StreamEncoder by piping raw frames into ffmpeg
// and reading WebM output from its stdout as it is produced
type Encoder struct {
	ffmpegPath string
	streamer   Streamer
	detector   *Detector
	logger     zerolog.Logger

	capsOnce sync.Once
	caps     *Capabilities
}

// EncoderOption is a functional option for configuring Encoder
type EncoderOption func(*Encoder)

// WithEncoderFFmpegPath sets a custom ffmpeg executable path
func WithEncoderFFmpegPath(path string) EncoderOption {
	return func(e *Encoder) {
		e.ffmpegPath = path
	}
}

// WithStreamer sets a custom process starter (for testing)
func WithStreamer(streamer Streamer) EncoderOption {
	return func(e *Encoder) {
		e.streamer = streamer
	}
}

// WithCapabilities fixes the capability set instead of probing ffmpeg
func WithCapabilities(caps *Capabilities) EncoderOption {
	return func(e *Encoder) {
		e.capsOnce.Do(func() {})
		e.caps = caps
	}
}

// WithEncoderLogger sets the logger
func WithEncoderLogger(logger zerolog.Logger) EncoderOption {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// NewEncoder creates a new ffmpeg-based stream encoder
func NewEncoder(detector *Detector, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		ffmpegPath: "ffmpeg",
		streamer:   &ExecCommandRunner{},
		detector:   detector,
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Supports implements media.StreamEncoder
func (e *Encoder) Supports(p media.Profile) bool {
	e.capsOnce.Do(func() {
		if e.detector != nil {
			e.caps = e.detector.Capabilities(context.Background())
		}
	})
	return e.caps != nil && e.caps.Supports(p)
}

// Open implements media.StreamEncoder
func (e *Encoder) Open(ctx context.Context, stream *media.LiveStream, cfg media.EncoderConfig) (media.EncoderSession, error) {
	if !e.Supports(cfg.Profile) {
		return nil, fmt.Errorf("%w: %s", media.ErrUnsupportedProfile, cfg.Profile.MimeType())
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("invalid stream size %dx%d", stream.Width, stream.Height)
	}

	useOpus := e.caps.Opus
	args := EncodeArgs(stream, cfg, useOpus)

	stdinR, stdinW := io.Pipe()
	s := &encoderSession{
		chunks: make(chan []byte, 16),
		stop:   make(chan struct{}),
		stdin:  stdinW,
		input:  stdinR,
		logger: e.logger,
	}

	spec := StreamSpec{
		Name:   e.ffmpegPath,
		Args:   args,
		Stdin:  stdinR,
		Stdout: &chunkWriter{chunks: s.chunks},
	}
	if stream.HasAudio() {
		spec.Extra = []Pipe{{Reader: stream.Audio}}
	}

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting encoder")

	proc, err := e.streamer.Start(ctx, spec)
	if err != nil {
		stdinW.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go s.feed(stream.Video)
	go s.wait(proc)

	return s, nil
}

// EncodeArgs builds the ffmpeg arguments for a live stream.
// Video arrives on stdin, audio (if any) on pipe:3, WebM leaves on stdout.
func EncodeArgs(stream *media.LiveStream, cfg media.EncoderConfig, opus bool) []string {
	bitrate := cfg.VideoBitsPerSecond
	if bitrate <= 0 {
		bitrate = media.VideoBitsPerSecond
	}
	fps := stream.FrameRate
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", stream.Width, stream.Height),
		"-r", strconv.Itoa(fps),
		"-i", "pipe:0",
	}

	audio := stream.HasAudio()
	if audio {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(stream.AudioFormat.SampleRate),
			"-ac", strconv.Itoa(stream.AudioFormat.Channels),
			"-i", "pipe:3",
		)
	}

	args = append(args, "-map", "0:v")
	if audio {
		args = append(args, "-map", "1:a")
	}

	args = append(args,
		"-c:v", encoderNames[cfg.Profile],
		"-b:v", strconv.Itoa(bitrate),
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-pix_fmt", "yuv420p",
	)

	if audio {
		codec := "libvorbis"
		if opus {
			codec = "libopus"
		}
		args = append(args, "-c:a", codec, "-shortest")
	}

	return append(args, "-f", "webm", "pipe:1")
}

type encoderSession struct {
	chunks chan []byte
	stop   chan struct{}
	stdin  *io.PipeWriter
	input  *io.PipeReader
	logger zerolog.Logger

	stopOnce sync.Once
}

// Chunks implements media.EncoderSession
func (s *encoderSession) Chunks() <-chan []byte {
	return s.chunks
}

// Stop implements media.EncoderSession. Closing stdin makes ffmpeg flush
// the remaining clusters and exit.
func (s *encoderSession) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func (s *encoderSession) feed(video <-chan []byte) {
	defer s.stdin.Close()
	for {
		select {
		case <-s.stop:
			return
		case frame, ok := <-video:
			if !ok {
				return
			}
			if _, err := s.stdin.Write(frame); err != nil {
				s.logger.Warn().Err(err).Msg("encoder stopped accepting frames")
				return
			}
		}
	}
}

func (s *encoderSession) wait(proc Process) {
	defer close(s.chunks)
	err := proc.Wait()
	// unblock a feeder still writing to a dead process
	s.input.Close()
	if err != nil {
		s.logger.Error().Err(err).Msg("ffmpeg encoder exited with error")
	}
}

// chunkWriter forwards every write as one chunk
type chunkWriter struct {
	chunks chan<- []byte
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	chunk := make([]byte, len(p))
	copy(chunk, p)
	w.chunks <- chunk
	return len(p), nil
}

// Ensure Encoder implements media.StreamEncoder
var _ media.StreamEncoder = (*Encoder)(nil)
