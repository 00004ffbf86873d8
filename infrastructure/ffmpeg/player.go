package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"video-trimmer/domain/media"
)

// PlaybackAudio is the PCM layout the player decodes audio into
var PlaybackAudio = media.AudioFormat{SampleRate: 48000, Channels: 2}

const defaultFrameRate = 30

// Player implements media.Handle on top of an ffmpeg decoder running at
// native speed. Every seek, play and pause replaces the decoder process.
type Player struct {
	ffmpegPath string
	streamer   Streamer
	logger     zerolog.Logger
	path       string
	meta       media.Metadata
	fps        float64

	mu      sync.Mutex
	pos     float64
	playing bool
	muted   bool
	closed  bool
	frame   *image.RGBA
	cancel  context.CancelFunc
	gen     int
	sink    *io.PipeWriter

	frameReady  chan struct{}
	timeUpdates chan float64
}

// PlayerOption is a functional option for configuring players
type PlayerOption func(*Opener)

// WithPlayerFFmpegPath sets a custom ffmpeg executable path
func WithPlayerFFmpegPath(path string) PlayerOption {
	return func(o *Opener) {
		o.ffmpegPath = path
	}
}

// WithPlayerStreamer sets a custom process starter (for testing)
func WithPlayerStreamer(streamer Streamer) PlayerOption {
	return func(o *Opener) {
		o.streamer = streamer
	}
}

// WithPlayerLogger sets the logger
func WithPlayerLogger(logger zerolog.Logger) PlayerOption {
	return func(o *Opener) {
		o.logger = logger
	}
}

// Opener implements media.Opener by creating players
type Opener struct {
	ffmpegPath string
	streamer   Streamer
	logger     zerolog.Logger
}

// NewOpener creates a new player factory
func NewOpener(opts ...PlayerOption) *Opener {
	o := &Opener{
		ffmpegPath: "ffmpeg",
		streamer:   &ExecCommandRunner{},
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Open implements media.Opener. The first frame is decoded in the
// background.
func (o *Opener) Open(ctx context.Context, path string, meta *media.Metadata) (media.Handle, error) {
	if meta == nil || meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("cannot open %s without its frame size", path)
	}

	fps := meta.FrameRate
	if fps <= 0 || math.IsNaN(fps) {
		fps = defaultFrameRate
	}

	p := &Player{
		ffmpegPath:  o.ffmpegPath,
		streamer:    o.streamer,
		logger:      o.logger.With().Str("component", "player").Str("file", path).Logger(),
		path:        path,
		meta:        *meta,
		fps:         fps,
		frameReady:  make(chan struct{}, 1),
		timeUpdates: make(chan float64, 1),
	}
	p.Seek(0)

	return p, nil
}

// Duration implements media.Handle
func (p *Player) Duration() float64 {
	return p.meta.Duration
}

// NaturalSize implements media.Handle
func (p *Player) NaturalSize() image.Point {
	return p.meta.Size()
}

// Position implements media.Handle
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// SetPosition implements media.Handle
func (p *Player) SetPosition(seconds float64) {
	p.Seek(seconds)
}

// Seek implements media.Handle. The returned channel is closed when the
// frame at seconds has been decoded; it stays open if decoding fails.
func (p *Player) Seek(seconds float64) <-chan struct{} {
	settled := make(chan struct{})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return settled
	}

	p.pos = math.Max(0, math.Min(seconds, p.meta.Duration))
	p.startLocked(p.playing, settled)
	return settled
}

// Play implements media.Handle. Playing from the end restarts at zero.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return media.ErrClosed
	}
	if p.playing {
		return nil
	}

	if p.pos >= p.meta.Duration {
		p.pos = 0
	}
	p.playing = true
	p.startLocked(true, nil)
	return nil
}

// Pause implements media.Handle
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.playing = false
	p.stopLocked()
}

// Playing implements media.Handle
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Muted implements media.Handle
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// SetMuted implements media.Handle. Muted audio is replaced by silence.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
}

// CurrentFrame implements media.Handle
func (p *Player) CurrentFrame() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil
	}
	return p.frame
}

// FrameReady implements media.FrameNotifier
func (p *Player) FrameReady() <-chan struct{} {
	return p.frameReady
}

// TimeUpdates implements media.TimeNotifier
func (p *Player) TimeUpdates() <-chan float64 {
	return p.timeUpdates
}

// AudioFormat implements media.AudioSource
func (p *Player) AudioFormat() media.AudioFormat {
	return PlaybackAudio
}

// AudioOutput implements media.AudioSource. Each call replaces the previous
// consumer; audio is discarded while nobody reads.
func (p *Player) AudioOutput() io.Reader {
	r, w := io.Pipe()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink != nil {
		p.sink.Close()
	}
	if p.closed {
		w.Close()
		return r
	}
	p.sink = w
	return r
}

// HasAudio reports whether the source carries an audio stream
func (p *Player) HasAudio() bool {
	return p.meta.HasAudio
}

// Close implements media.Handle. Later calls are no-ops.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.playing = false
	p.stopLocked()
	if p.sink != nil {
		p.sink.Close()
		p.sink = nil
	}
	return nil
}

func (p *Player) stopLocked() {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Player) startLocked(continuous bool, settled chan struct{}) {
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	job := &decodeJob{
		player:     p,
		gen:        p.gen,
		start:      p.pos,
		continuous: continuous,
		settled:    settled,
	}
	go job.run(ctx)
}

// DecodeArgs builds the ffmpeg arguments for decoding from start.
// A continuous decode runs in real time and also emits PCM audio on pipe:3.
func DecodeArgs(path string, meta media.Metadata, start float64, continuous bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if continuous {
		args = append(args, "-re")
	}
	args = append(args,
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-i", path,
		"-map", "0:v:0",
	)
	if !continuous {
		args = append(args, "-frames:v", "1")
	}
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"pipe:1",
	)
	if continuous && meta.HasAudio {
		args = append(args,
			"-map", "0:a:0",
			"-f", "s16le",
			"-ar", strconv.Itoa(PlaybackAudio.SampleRate),
			"-ac", strconv.Itoa(PlaybackAudio.Channels),
			"pipe:3",
		)
	}
	return args
}

// decodeJob is one decoder process
type decodeJob struct {
	player     *Player
	gen        int
	start      float64
	continuous bool
	settled    chan struct{}
	frames     int
}

func (j *decodeJob) run(ctx context.Context) {
	p := j.player
	size := p.meta.Width * p.meta.Height * 4

	spec := StreamSpec{
		Name:   p.ffmpegPath,
		Args:   DecodeArgs(p.path, p.meta, j.start, j.continuous),
		Stdout: &frameAssembler{size: size, emit: j.onFrame},
	}
	if j.continuous && p.meta.HasAudio {
		spec.Extra = []Pipe{{Writer: &audioTap{player: p, gen: j.gen}}}
	}

	proc, err := p.streamer.Start(ctx, spec)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to start decoder")
		return
	}
	err = proc.Wait()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Error().Err(err).Float64("start", j.start).Msg("decoder failed")
	}
	if j.continuous {
		j.onEnded()
	}
}

func (j *decodeJob) onFrame(data []byte) {
	p := j.player

	p.mu.Lock()
	if p.gen != j.gen || p.closed {
		p.mu.Unlock()
		return
	}
	img := &image.RGBA{
		Pix:    data,
		Stride: p.meta.Width * 4,
		Rect:   image.Rect(0, 0, p.meta.Width, p.meta.Height),
	}
	p.frame = img
	p.pos = math.Min(j.start+float64(j.frames)/p.fps, p.meta.Duration)
	pos := p.pos
	p.mu.Unlock()

	if j.frames == 0 && j.settled != nil {
		close(j.settled)
	}
	j.frames++

	select {
	case p.frameReady <- struct{}{}:
	default:
	}
	p.publishTime(pos)
}

// onEnded mirrors a media element reaching its end: playback stops, a
// final frame signal wakes frame-driven consumers and one time update
// reports the end position
func (j *decodeJob) onEnded() {
	p := j.player

	p.mu.Lock()
	if p.gen != j.gen || p.closed {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.pos = p.meta.Duration
	p.cancel = nil
	pos := p.pos
	p.mu.Unlock()

	select {
	case p.frameReady <- struct{}{}:
	default:
	}
	p.publishTime(pos)
}

// publishTime keeps only the newest update when the consumer lags
func (p *Player) publishTime(pos float64) {
	for {
		select {
		case p.timeUpdates <- pos:
			return
		default:
		}
		select {
		case <-p.timeUpdates:
		default:
		}
	}
}

// frameAssembler splits a raw video byte stream into whole frames
type frameAssembler struct {
	size int
	buf  []byte
	emit func(frame []byte)
}

func (a *frameAssembler) Write(b []byte) (int, error) {
	n := len(b)
	for len(b) > 0 {
		need := a.size - len(a.buf)
		if need > len(b) {
			need = len(b)
		}
		a.buf = append(a.buf, b[:need]...)
		b = b[need:]
		if len(a.buf) == a.size {
			a.emit(a.buf)
			a.buf = make([]byte, 0, a.size)
		}
	}
	return n, nil
}

// audioTap forwards decoded PCM to the current consumer
type audioTap struct {
	player *Player
	gen    int
}

func (t *audioTap) Write(b []byte) (int, error) {
	p := t.player

	p.mu.Lock()
	sink, muted, current := p.sink, p.muted, p.gen == t.gen
	p.mu.Unlock()
	if sink == nil || !current {
		return len(b), nil
	}

	out := b
	if muted {
		out = make([]byte, len(b))
	}
	if _, err := sink.Write(out); err != nil {
		p.mu.Lock()
		if p.sink == sink {
			p.sink = nil
		}
		p.mu.Unlock()
	}
	return len(b), nil
}

// Ensure Player implements the media ports
var (
	_ media.Handle        = (*Player)(nil)
	_ media.FrameNotifier = (*Player)(nil)
	_ media.TimeNotifier  = (*Player)(nil)
	_ media.AudioSource   = (*Player)(nil)
	_ media.Opener        = (*Opener)(nil)
)
