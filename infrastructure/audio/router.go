package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"video-trimmer/domain/media"
)

// MonitorFunc opens the local output that keeps receiving audio during an
// export
type MonitorFunc func(format media.AudioFormat) (io.WriteCloser, error)

// Router implements media.AudioRouter. Audio from the handle is copied to
// the capture destination and, when a monitor is configured, to the local
// output as well.
type Router struct {
	monitor MonitorFunc
	logger  zerolog.Logger
}

// RouterOption is a functional option for configuring Router
type RouterOption func(*Router)

// WithMonitor keeps audio audible locally while it is captured
func WithMonitor(open MonitorFunc) RouterOption {
	return func(r *Router) {
		r.monitor = open
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a new audio router
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{logger: zerolog.Nop()}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Route implements media.AudioRouter. A handle without audio gets a graph
// with no capture track.
func (r *Router) Route(h media.Handle) (media.AudioGraph, error) {
	src, ok := h.(media.AudioSource)
	if !ok || !src.HasAudio() {
		return &Graph{}, nil
	}

	format := src.AudioFormat()
	input := src.AudioOutput()

	var monitor io.WriteCloser
	if r.monitor != nil {
		m, err := r.monitor(format)
		if err != nil {
			if c, ok := input.(io.Closer); ok {
				c.Close()
			}
			return nil, fmt.Errorf("failed to open audio monitor: %w", err)
		}
		monitor = m
	}

	captureR, captureW := io.Pipe()
	g := &Graph{
		format:  format,
		input:   input,
		capture: captureR,
		sink:    captureW,
		monitor: monitor,
		done:    make(chan struct{}),
	}

	writers := []io.Writer{captureW}
	if monitor != nil {
		writers = append(writers, &lossyWriter{w: monitor, logger: r.logger})
	}
	go g.pump(io.MultiWriter(writers...))

	return g, nil
}

// Graph is a fan-out from one audio input to a capture reader and an
// optional monitor
type Graph struct {
	format  media.AudioFormat
	input   io.Reader
	capture *io.PipeReader
	sink    *io.PipeWriter
	monitor io.WriteCloser
	done    chan struct{}

	closeOnce sync.Once
}

// Capture implements media.AudioGraph
func (g *Graph) Capture() io.Reader {
	if g.capture == nil {
		return nil
	}
	return g.capture
}

// Format implements media.AudioGraph
func (g *Graph) Format() media.AudioFormat {
	return g.format
}

func (g *Graph) pump(out io.Writer) {
	defer close(g.done)
	_, err := io.Copy(out, g.input)
	g.sink.CloseWithError(err)
}

// Close implements media.AudioGraph. It disconnects the input and ends the
// capture track; calling it again is a no-op.
func (g *Graph) Close() error {
	if g.capture == nil {
		return nil
	}

	var err error
	g.closeOnce.Do(func() {
		if c, ok := g.input.(io.Closer); ok {
			err = c.Close()
		}
		g.capture.Close()
		<-g.done
		if g.monitor != nil {
			if merr := g.monitor.Close(); merr != nil && err == nil {
				err = merr
			}
		}
	})
	return err
}

// lossyWriter never fails so a broken monitor cannot stall the capture
type lossyWriter struct {
	w      io.Writer
	broken bool
	logger zerolog.Logger
}

func (l *lossyWriter) Write(p []byte) (int, error) {
	if l.broken {
		return len(p), nil
	}
	if _, err := l.w.Write(p); err != nil {
		l.broken = true
		l.logger.Warn().Err(err).Msg("audio monitor stopped")
	}
	return len(p), nil
}

// Ensure Router implements media.AudioRouter
var (
	_ media.AudioRouter = (*Router)(nil)
	_ media.AudioGraph  = (*Graph)(nil)
)
