//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/cucumber/godog"

	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
	"video-trimmer/infrastructure/blob"
	"video-trimmer/infrastructure/render"
)

// playbackStep is what the clock and the media report on one frame
type playbackStep struct {
	elapsed  float64
	position float64
}

// scriptedClock returns the scripted elapsed time on each call
type scriptedClock struct {
	mu    sync.Mutex
	base  time.Time
	steps []playbackStep
	calls int
}

func (c *scriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := min(c.calls, len(c.steps)-1)
	c.calls++
	return c.base.Add(time.Duration(c.steps[i].elapsed * float64(time.Second)))
}

// scriptedMedia is a media handle whose position follows the script, one
// step per decoded frame
type scriptedMedia struct {
	mu       sync.Mutex
	size     image.Point
	duration float64
	steps    []playbackStep
	reads    int
	playing  bool
	frames   chan struct{}
	frame    *image.RGBA
}

func newScriptedMedia(w, h int, duration float64) *scriptedMedia {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range frame.Pix {
		frame.Pix[i] = 0x80
	}
	return &scriptedMedia{size: image.Pt(w, h), duration: duration, frame: frame}
}

func (m *scriptedMedia) script(steps []playbackStep) {
	m.steps = steps
	m.frames = make(chan struct{}, len(steps))
	for range steps {
		m.frames <- struct{}{}
	}
	close(m.frames)
}

func (m *scriptedMedia) Duration() float64 { return m.duration }
func (m *scriptedMedia) NaturalSize() image.Point { return m.size }

func (m *scriptedMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.steps) == 0 {
		return 0
	}
	i := min(m.reads, len(m.steps)-1)
	m.reads++
	return m.steps[i].position
}

func (m *scriptedMedia) SetPosition(float64) {}

func (m *scriptedMedia) Seek(float64) <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (m *scriptedMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	return nil
}

func (m *scriptedMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *scriptedMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *scriptedMedia) Muted() bool { return false }
func (m *scriptedMedia) SetMuted(bool) {}
func (m *scriptedMedia) CurrentFrame() image.Image { return m.frame }
func (m *scriptedMedia) FrameReady() <-chan struct{} { return m.frames }
func (m *scriptedMedia) Close() error { return nil }

// countingEncoder produces a two-chunk WebM stand-in and records how it
// was opened
type countingEncoder struct {
	mu        sync.Mutex
	supported map[media.Profile]bool
	opened    []media.EncoderConfig
}

func (e *countingEncoder) Supports(p media.Profile) bool {
	if e.supported == nil {
		return true
	}
	return e.supported[p]
}

func (e *countingEncoder) Open(ctx context.Context, stream *media.LiveStream, cfg media.EncoderConfig) (media.EncoderSession, error) {
	e.mu.Lock()
	e.opened = append(e.opened, cfg)
	e.mu.Unlock()

	s := &countingSession{chunks: make(chan []byte, 4)}
	go func() {
		defer close(s.chunks)
		s.chunks <- []byte("header")
		for range stream.Video {
		}
		s.chunks <- []byte("cluster")
	}()
	return s, nil
}

type countingSession struct {
	chunks chan []byte
}

func (s *countingSession) Chunks() <-chan []byte { return s.chunks }
func (s *countingSession) Stop() error { return nil }

// exportContext holds test state for export scenarios
type exportContext struct {
	media    *scriptedMedia
	clock    *scriptedClock
	encoder  *countingEncoder
	store    *blob.Store
	progress []float64
	result   *export.Result
	err      error
}

// SharedExportContext is reset before each scenario via Before hook
var SharedExportContext *exportContext

func InitializeExportScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedExportContext = &exportContext{
			clock:   &scriptedClock{base: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
			encoder: &countingEncoder{},
			store:   blob.NewStore(),
		}
		return c, nil
	})

	ctx.Step(`^a (\d+) second source video of (\d+)x(\d+) pixels$`, aSecondSourceVideoOfPixels)
	ctx.Step(`^playback runs like this:$`, playbackRunsLikeThis)
	ctx.Step(`^the encoder only supports "([^"]*)"$`, theEncoderOnlySupports)
	ctx.Step(`^I export from "([^"]*)" to "([^"]*)" as "([^"]*)"$`, iExportFromToAs)
	ctx.Step(`^the export should stop because of "(elapsed|position)"$`, theExportShouldStopBecauseOf)
	ctx.Step(`^(\d+) frames should have been drawn$`, framesShouldHaveBeenDrawn)
	ctx.Step(`^progress should never exceed ([0-9.]+)$`, progressShouldNeverExceed)
	ctx.Step(`^the artifact should have mime type "([^"]*)"$`, theArtifactShouldHaveMimeType)
	ctx.Step(`^the encoder should have been opened at (\d+) bits per second$`, theEncoderShouldHaveBeenOpenedAt)
	ctx.Step(`^the export should fail as unsupported$`, theExportShouldFailAsUnsupported)
	ctx.Step(`^the encoder should not have been opened$`, theEncoderShouldNotHaveBeenOpened)
}

func aSecondSourceVideoOfPixels(seconds, w, h int) error {
	SharedExportContext.media = newScriptedMedia(w, h, float64(seconds))
	return nil
}

func playbackRunsLikeThis(table *godog.Table) error {
	var steps []playbackStep
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		elapsed, err := strconv.ParseFloat(row.Cells[0].Value, 64)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		position, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		steps = append(steps, playbackStep{elapsed: elapsed, position: position})
	}

	t := SharedExportContext
	t.media.script(steps)
	t.clock.steps = steps
	return nil
}

func theEncoderOnlySupports(label string) error {
	p, err := media.ParseProfile(label)
	if err != nil {
		return err
	}
	SharedExportContext.encoder.supported = map[media.Profile]bool{p: true}
	return nil
}

func iExportFromToAs(start, end, label string) error {
	t := SharedExportContext

	startSecs, err := timecode.Parse(start)
	if err != nil {
		return err
	}
	endSecs, err := timecode.Parse(end)
	if err != nil {
		return err
	}
	profile, err := media.ParseProfile(label)
	if err != nil {
		return err
	}

	surfaces, err := render.NewFactory()
	if err != nil {
		return err
	}
	if t.media.frames == nil {
		t.media.script([]playbackStep{{elapsed: 0, position: startSecs}})
		t.clock.steps = t.media.steps
	}

	exporter := export.NewExporter(t.encoder, surfaces, t.store,
		export.WithClock(t.clock),
		export.WithSeekTimeout(time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.result, t.err = exporter.Export(ctx, t.media, trim.Range{Start: startSecs, End: endSecs}, profile, func(p float64) {
		t.progress = append(t.progress, p)
	})
	return nil
}

func theExportShouldStopBecauseOf(reason string) error {
	t := SharedExportContext
	if t.err != nil {
		return fmt.Errorf("export failed: %v", t.err)
	}

	want := export.StopElapsed
	if reason == "position" {
		want = export.StopPosition
	}
	if t.result.Reason != want {
		return fmt.Errorf("expected stop reason %v, got %v", want, t.result.Reason)
	}
	return nil
}

func framesShouldHaveBeenDrawn(n int) error {
	if got := SharedExportContext.result.Frames; got != n {
		return fmt.Errorf("expected %d frames, got %d", n, got)
	}
	return nil
}

func progressShouldNeverExceed(limit float64) error {
	t := SharedExportContext
	if len(t.progress) == 0 {
		return fmt.Errorf("no progress was reported")
	}
	for _, p := range t.progress {
		if p < 0 || p > limit {
			return fmt.Errorf("progress %v outside [0, %v]", p, limit)
		}
	}
	return nil
}

func theArtifactShouldHaveMimeType(mime string) error {
	t := SharedExportContext
	if t.result == nil {
		return fmt.Errorf("no artifact: %v", t.err)
	}
	if t.result.Artifact.MimeType != mime {
		return fmt.Errorf("expected mime type %q, got %q", mime, t.result.Artifact.MimeType)
	}
	if string(t.result.Artifact.Data) != "headercluster" {
		return fmt.Errorf("artifact is missing chunks: %q", t.result.Artifact.Data)
	}
	if _, ok := t.store.Get(t.result.URL); !ok {
		return fmt.Errorf("artifact %s is not in the store", t.result.URL)
	}
	return nil
}

func theEncoderShouldHaveBeenOpenedAt(bps int) error {
	e := SharedExportContext.encoder
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.opened) != 1 {
		return fmt.Errorf("encoder opened %d times", len(e.opened))
	}
	if e.opened[0].VideoBitsPerSecond != bps {
		return fmt.Errorf("expected %d bits per second, got %d", bps, e.opened[0].VideoBitsPerSecond)
	}
	return nil
}

func theExportShouldFailAsUnsupported() error {
	if err := SharedExportContext.err; !errors.Is(err, media.ErrUnsupportedProfile) {
		return fmt.Errorf("expected ErrUnsupportedProfile, got %v", err)
	}
	return nil
}

func theEncoderShouldNotHaveBeenOpened() error {
	e := SharedExportContext.encoder
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.opened) != 0 {
		return fmt.Errorf("encoder was opened %d times", len(e.opened))
	}
	return nil
}
