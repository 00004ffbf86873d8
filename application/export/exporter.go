package export

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"video-trimmer/domain/media"
	"video-trimmer/domain/trim"
)

// Watermark is burned into the bottom-right corner of every exported frame
const Watermark = "VIDEO TRIMMER"

// MaxProgress is the highest progress reported while the loop is running.
// 100 is reserved for a finished export.
const MaxProgress = 99.9

const (
	defaultSeekTimeout     = 10 * time.Second
	defaultRefreshInterval = time.Second / 60
)

// StopReason tells which boundary ended the loop
type StopReason int

const (
	// StopElapsed means wall-clock time covered the selection first
	StopElapsed StopReason = iota
	// StopPosition means the media position reached the selection end first
	StopPosition
)

func (r StopReason) String() string {
	if r == StopPosition {
		return "position"
	}
	return "elapsed"
}

// Clock supplies the timestamps of the render loop
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ProgressFunc receives progress percentages in [0, MaxProgress]
type ProgressFunc func(percent float64)

// Result describes a finished export
type Result struct {
	Artifact *media.Artifact
	URL      string
	Reason   StopReason
	Frames   int
	Duration float64
}

// Exporter runs the real-time render/capture loop over a media handle
type Exporter struct {
	encoder  media.StreamEncoder
	surfaces media.SurfaceFactory
	audio    media.AudioRouter
	store    media.ArtifactStore
	clock    Clock
	logger   zerolog.Logger

	seekTimeout time.Duration
	frameRate   int
	refresh     time.Duration
	watermark   string

	running atomic.Bool
}

// Option is a functional option for configuring Exporter
type Option func(*Exporter)

// WithAudioRouter taps media audio into the exported stream
func WithAudioRouter(router media.AudioRouter) Option {
	return func(e *Exporter) {
		e.audio = router
	}
}

// WithClock sets the clock used for elapsed time (for testing)
func WithClock(clock Clock) Option {
	return func(e *Exporter) {
		e.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithSeekTimeout bounds the initial seek-settle wait. Zero waits forever.
func WithSeekTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		e.seekTimeout = d
	}
}

// WithFrameRate sets the nominal capture rate
func WithFrameRate(fps int) Option {
	return func(e *Exporter) {
		e.frameRate = fps
	}
}

// WithRefreshInterval sets the tick interval used when the handle cannot
// signal decoded frames
func WithRefreshInterval(d time.Duration) Option {
	return func(e *Exporter) {
		e.refresh = d
	}
}

// WithWatermark replaces the watermark label
func WithWatermark(label string) Option {
	return func(e *Exporter) {
		e.watermark = label
	}
}

// NewExporter creates a new Exporter
func NewExporter(encoder media.StreamEncoder, surfaces media.SurfaceFactory, store media.ArtifactStore, opts ...Option) *Exporter {
	e := &Exporter{
		encoder:     encoder,
		surfaces:    surfaces,
		store:       store,
		clock:       systemClock{},
		logger:      zerolog.Nop(),
		seekTimeout: defaultSeekTimeout,
		frameRate:   DefaultFrameRate,
		refresh:     defaultRefreshInterval,
		watermark:   Watermark,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Supports reports whether profile can be exported on this runtime
func (e *Exporter) Supports(profile media.Profile) bool {
	return e.encoder.Supports(profile)
}

// Running reports whether an export is in progress
func (e *Exporter) Running() bool {
	return e.running.Load()
}

// Export encodes the part of h inside r with profile. It blocks until the
// encoder has flushed and returns the finalized artifact. Only one export
// runs at a time; a concurrent call fails with media.ErrExportInProgress.
func (e *Exporter) Export(ctx context.Context, h media.Handle, r trim.Range, profile media.Profile, onProgress ProgressFunc) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, media.ErrExportInProgress
	}
	defer e.running.Store(false)

	if r.End <= r.Start {
		return nil, fmt.Errorf("end %.2f must be after start %.2f", r.End, r.Start)
	}
	if !e.encoder.Supports(profile) {
		return nil, fmt.Errorf("%w: %s", media.ErrUnsupportedProfile, profile.MimeType())
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	logger := e.logger.With().
		Float64("start", r.Start).
		Float64("end", r.End).
		Str("profile", profile.Codec()).
		Logger()

	// The first captured frame must be the frame at the selection start
	h.Pause()
	if err := e.settle(ctx, h, r.Start); err != nil {
		return nil, err
	}

	size := h.NaturalSize()
	surface, err := e.surfaces.NewSurface(size.X, size.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	defer surface.Close()

	capture := NewCaptureStream(surface, e.frameRate)
	stream := capture.Start()

	var graph media.AudioGraph
	if e.audio != nil {
		graph, err = e.audio.Route(h)
		if err != nil {
			capture.Stop()
			return nil, fmt.Errorf("failed to route audio: %w", err)
		}
		if src := graph.Capture(); src != nil {
			stream.WithAudio(src, graph.Format())
		}
	}
	release := func() {
		if graph != nil {
			if err := graph.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close audio graph")
			}
		}
	}

	recorder := NewRecorder(e.encoder, logger)
	if err := recorder.Start(ctx, stream, profile); err != nil {
		capture.Stop()
		release()
		return nil, err
	}

	ticks, stopTicks := e.frameSignal(h)
	defer stopTicks()

	if err := h.Play(); err != nil {
		e.abort(recorder, h)
		release()
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	logger.Info().Msg("export started")

	reason, frames, err := e.renderLoop(ctx, h, r, capture, ticks, onProgress)
	if err != nil {
		e.abort(recorder, h)
		release()
		return nil, err
	}

	if err := recorder.Stop(); err != nil {
		logger.Warn().Err(err).Msg("encoder stop reported an error")
	}
	h.Pause()
	// the encoder only flushes once every track has ended
	release()

	select {
	case <-recorder.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	artifact := recorder.Artifact()
	url := e.store.Create(artifact)

	logger.Info().
		Str("reason", reason.String()).
		Int("frames", frames).
		Int("bytes", artifact.Size()).
		Msg("export finished")

	return &Result{
		Artifact: artifact,
		URL:      url,
		Reason:   reason,
		Frames:   frames,
		Duration: r.Duration(),
	}, nil
}

// renderLoop draws one frame per tick until either boundary is reached
func (e *Exporter) renderLoop(
	ctx context.Context,
	h media.Handle,
	r trim.Range,
	capture *CaptureStream,
	ticks <-chan struct{},
	onProgress ProgressFunc,
) (StopReason, int, error) {
	duration := r.Duration()
	frames := 0

	var start time.Time
	first := true

	// armed at the first tick so the elapsed boundary holds even when the
	// handle stops delivering frames
	var deadline <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return 0, frames, ctx.Err()
		case <-deadline:
			return StopElapsed, frames, nil
		case _, ok := <-ticks:
			if !ok {
				// the source ran dry before either boundary
				return StopPosition, frames, nil
			}
		}

		now := e.clock.Now()
		if first {
			start = now
			first = false
			timer := time.NewTimer(time.Duration(duration * float64(time.Second)))
			defer timer.Stop()
			deadline = timer.C
		}
		elapsed := now.Sub(start).Seconds()

		// checked before drawing so no frame past the boundary is captured
		if elapsed >= duration {
			return StopElapsed, frames, nil
		}
		if h.Position() >= r.End {
			return StopPosition, frames, nil
		}

		onProgress(math.Min(elapsed/duration*100, MaxProgress))

		frame := h.CurrentFrame()
		capture.Paint(func(s media.Surface) {
			if frame != nil {
				s.DrawFrame(frame)
			}
			s.DrawWatermark(e.watermark)
		})
		frames++
	}
}

func (e *Exporter) settle(ctx context.Context, h media.Handle, pos float64) error {
	settled := h.Seek(pos)

	var timeout <-chan time.Time
	if e.seekTimeout > 0 {
		timer := time.NewTimer(e.seekTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-settled:
		return nil
	case <-timeout:
		return fmt.Errorf("%w within %s", media.ErrSeekTimeout, e.seekTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// frameSignal prefers the handle's decoded-frame notification and falls
// back to a refresh ticker
func (e *Exporter) frameSignal(h media.Handle) (<-chan struct{}, func()) {
	if n, ok := h.(media.FrameNotifier); ok {
		return n.FrameReady(), func() {}
	}

	ticks := make(chan struct{})
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case ticks <- struct{}{}:
				case <-done:
					return
				}
			}
		}
	}()
	return ticks, func() { close(done) }
}

// abort stops the encoder and media without waiting for the flush
func (e *Exporter) abort(recorder *Recorder, h media.Handle) {
	if err := recorder.Stop(); err != nil {
		e.logger.Warn().Err(err).Msg("encoder stop reported an error")
	}
	h.Pause()
}
