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

// Monitor plays raw PCM on the local output through ffplay
type Monitor struct {
	ffplayPath string
	streamer   Streamer
	logger     zerolog.Logger
}

// MonitorOption is a functional option for configuring Monitor
type MonitorOption func(*Monitor)

// WithFFplayPath sets a custom ffplay path
func WithFFplayPath(path string) MonitorOption {
	return func(m *Monitor) {
		m.ffplayPath = path
	}
}

// WithMonitorStreamer sets a custom streamer (for testing)
func WithMonitorStreamer(streamer Streamer) MonitorOption {
	return func(m *Monitor) {
		m.streamer = streamer
	}
}

// WithMonitorLogger sets the logger
func WithMonitorLogger(logger zerolog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a new ffplay monitor
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		ffplayPath: "ffplay",
		streamer:   &ExecCommandRunner{},
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// MonitorArgs builds the ffplay arguments for interleaved s16le input
func MonitorArgs(format media.AudioFormat) []string {
	return []string{
		"-nodisp", "-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"-i", "pipe:0",
	}
}

// Open starts ffplay and returns its input. It matches audio.MonitorFunc.
func (m *Monitor) Open(format media.AudioFormat) (io.WriteCloser, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	proc, err := m.streamer.Start(ctx, StreamSpec{
		Name:  m.ffplayPath,
		Args:  MonitorArgs(format),
		Stdin: pr,
	})
	if err != nil {
		cancel()
		pr.Close()
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}

	m.logger.Debug().Int("sample_rate", format.SampleRate).Int("channels", format.Channels).Msg("audio monitor started")
	return &monitorSink{pipe: pw, input: pr, proc: proc, cancel: cancel}, nil
}

type monitorSink struct {
	pipe   *io.PipeWriter
	input  *io.PipeReader
	proc   Process
	cancel context.CancelFunc
	once   sync.Once
}

func (s *monitorSink) Write(p []byte) (int, error) {
	return s.pipe.Write(p)
}

// Close stops playback; audio still buffered in ffplay is dropped
func (s *monitorSink) Close() error {
	s.once.Do(func() {
		s.pipe.Close()
		s.cancel()
		_ = s.proc.Wait()
		s.input.Close()
	})
	return nil
}
