package export

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"video-trimmer/domain/media"
)

// eventLog records the order of calls across fakes
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(e string) int {
	for i, got := range l.list() {
		if got == e {
			return i
		}
	}
	return -1
}

// tick is one scripted step of the render loop
type tick struct {
	elapsed  float64
	position float64
}

type mockHandle struct {
	log      *eventLog
	duration float64
	size     image.Point

	mu       sync.Mutex
	pos      float64
	playing  bool
	muted    bool
	seeks    []float64
	pauses   int
	seekGate chan struct{}
	frames   chan struct{}
	closed   bool
}

func newMockHandle(log *eventLog, duration float64, ticks int) *mockHandle {
	h := &mockHandle{
		log:      log,
		duration: duration,
		size:     image.Pt(64, 36),
		frames:   make(chan struct{}, ticks),
	}
	for i := 0; i < ticks; i++ {
		h.frames <- struct{}{}
	}
	return h
}

func (h *mockHandle) Duration() float64        { return h.duration }
func (h *mockHandle) NaturalSize() image.Point { return h.size }

func (h *mockHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *mockHandle) SetPosition(seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = seconds
}

func (h *mockHandle) Seek(seconds float64) <-chan struct{} {
	h.log.add("seek")
	h.mu.Lock()
	h.pos = seconds
	h.seeks = append(h.seeks, seconds)
	gate := h.seekGate
	h.mu.Unlock()

	if gate != nil {
		return gate
	}
	done := make(chan struct{})
	close(done)
	return done
}

func (h *mockHandle) Play() error {
	h.log.add("play")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	return nil
}

func (h *mockHandle) Pause() {
	h.log.add("pause")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	h.pauses++
}

func (h *mockHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *mockHandle) Muted() bool         { return h.muted }
func (h *mockHandle) SetMuted(muted bool) { h.muted = muted }

func (h *mockHandle) FrameReady() <-chan struct{} { return h.frames }

func (h *mockHandle) CurrentFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, h.size.X, h.size.Y))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	return img
}

func (h *mockHandle) Close() error {
	h.closed = true
	return nil
}

// scriptedClock advances the handle position together with time so each
// tick sees a consistent pair
type scriptedClock struct {
	base   time.Time
	handle *mockHandle
	script []tick
	next   int
}

func (c *scriptedClock) Now() time.Time {
	step := c.script[len(c.script)-1]
	if c.next < len(c.script) {
		step = c.script[c.next]
		c.next++
	}
	c.handle.SetPosition(step.position)
	return c.base.Add(time.Duration(step.elapsed * float64(time.Second)))
}

type mockSurface struct {
	bounds     image.Rectangle
	mu         sync.Mutex
	frames     int
	watermarks []string
	closed     bool
}

func (s *mockSurface) Bounds() image.Rectangle { return s.bounds }

func (s *mockSurface) DrawFrame(src image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
}

func (s *mockSurface) DrawWatermark(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks = append(s.watermarks, label)
}

func (s *mockSurface) Snapshot() []byte {
	return make([]byte, s.bounds.Dx()*s.bounds.Dy()*4)
}

func (s *mockSurface) Close() error {
	s.closed = true
	return nil
}

type mockSurfaceFactory struct {
	surface *mockSurface
	err     error
}

func (f *mockSurfaceFactory) NewSurface(width, height int) (media.Surface, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.surface = &mockSurface{bounds: image.Rect(0, 0, width, height)}
	return f.surface, nil
}

type mockEncoder struct {
	log       *eventLog
	supported map[media.Profile]bool
	openErr   error
	session   *mockSession
	config    media.EncoderConfig
	// drainAudio holds the final chunk until the audio track has ended
	drainAudio bool
}

func newMockEncoder(log *eventLog, profiles ...media.Profile) *mockEncoder {
	e := &mockEncoder{log: log, supported: map[media.Profile]bool{}}
	for _, p := range profiles {
		e.supported[p] = true
	}
	return e
}

func (e *mockEncoder) Supports(p media.Profile) bool {
	return e.supported[p]
}

func (e *mockEncoder) Open(ctx context.Context, stream *media.LiveStream, cfg media.EncoderConfig) (media.EncoderSession, error) {
	e.log.add("encoder-open")
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.config = cfg
	s := &mockSession{chunks: make(chan []byte, 8)}
	s.chunks <- []byte("header")
	go func() {
		for range stream.Video {
		}
		if e.drainAudio && stream.HasAudio() {
			_, _ = io.Copy(io.Discard, stream.Audio)
		}
		s.chunks <- []byte("cluster")
		close(s.chunks)
	}()
	e.session = s
	return s, nil
}

type mockSession struct {
	chunks chan []byte
	mu     sync.Mutex
	stops  int
}

func (s *mockSession) Chunks() <-chan []byte { return s.chunks }

func (s *mockSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

// pipeGraph hands the capture end of a pipe to the encoder. Its track
// ends only when the graph is closed.
type pipeGraph struct {
	log *eventLog
	r   *io.PipeReader
	w   *io.PipeWriter
}

func newPipeGraph(log *eventLog) *pipeGraph {
	r, w := io.Pipe()
	return &pipeGraph{log: log, r: r, w: w}
}

func (g *pipeGraph) Capture() io.Reader { return g.r }

func (g *pipeGraph) Format() media.AudioFormat {
	return media.AudioFormat{SampleRate: 48000, Channels: 2}
}

func (g *pipeGraph) Close() error {
	g.log.add("audio-close")
	return g.w.Close()
}

type pipeRouter struct {
	graph *pipeGraph
}

func (r *pipeRouter) Route(h media.Handle) (media.AudioGraph, error) {
	return r.graph, nil
}

type memStore struct {
	mu        sync.Mutex
	artifacts map[string]*media.Artifact
}

func newMemStore() *memStore {
	return &memStore{artifacts: map[string]*media.Artifact{}}
}

func (s *memStore) Create(a *media.Artifact) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "blob:test/" + string(rune('a'+len(s.artifacts)))
	s.artifacts[url] = a
	return url
}

func (s *memStore) Get(url string) (*media.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[url]
	return a, ok
}

func (s *memStore) Revoke(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, url)
}
