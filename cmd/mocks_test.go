package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"video-trimmer/application/editor"
	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
	"video-trimmer/infrastructure/ffmpeg"
)

// scriptedPrompter answers prompts in order
type scriptedPrompter struct {
	inputs   []string
	confirms []bool
	selects  []string
	asked    []string
}

var errNoAnswer = errors.New("no scripted answer")

func (p *scriptedPrompter) Input(message, defaultValue string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.inputs) == 0 {
		return "", errNoAnswer
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	return v, nil
}

func (p *scriptedPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	p.asked = append(p.asked, message)
	if len(p.confirms) == 0 {
		return false, errNoAnswer
	}
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func (p *scriptedPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.selects) == 0 {
		return "", errNoAnswer
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	for _, o := range options {
		if o == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%q is not an option of %q", v, message)
}

// fakeSession implements EditSession and PreviewSession over a selection
type fakeSession struct {
	mu sync.Mutex

	duration  float64
	loadErr   error
	exportErr error

	sel      *trim.Selection
	clamp    trim.Clamp
	position float64
	playing  bool
	muted    bool
	profile  media.Profile
	exports  int
	resets   int
	updates  chan float64
}

func newFakeSession(duration float64) *fakeSession {
	return &fakeSession{duration: duration, profile: media.VP9, updates: make(chan float64, 16)}
}

func (f *fakeSession) Load(ctx context.Context, path string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel = trim.NewSelection(f.duration)
	return nil
}

func (f *fakeSession) Info() (editor.Info, error) {
	return editor.Info{Name: "clip.mp4", Width: 640, Height: 360, Duration: f.duration, Profile: f.profile}, nil
}

func (f *fakeSession) Range() (trim.Range, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sel == nil {
		return trim.Range{}, media.ErrNoMedia
	}
	return f.sel.Range(), nil
}

func (f *fakeSession) SetStartText(text string) bool {
	secs, err := timecode.Parse(text)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil || secs < 0 || secs >= f.sel.Range().End {
		return false
	}
	f.sel.UpdateStart(secs)
	return true
}

func (f *fakeSession) SetEndText(text string) bool {
	secs, err := timecode.Parse(text)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil || secs <= f.sel.Range().Start || secs > f.duration {
		return false
	}
	f.sel.UpdateEnd(secs)
	return true
}

func (f *fakeSession) SelectionLabel() string {
	r, _ := f.Range()
	return timecode.Format(r.Duration())
}

func (f *fakeSession) DisplayTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clamp.DisplayTime()
}

func (f *fakeSession) SeekTo(pos float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = pos
	f.clamp.Record(pos)
	return nil
}

func (f *fakeSession) TogglePlay() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = !f.playing
	return f.playing, nil
}

func (f *fakeSession) ToggleMute() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = !f.muted
	return f.muted, nil
}

func (f *fakeSession) Profile() media.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile
}

func (f *fakeSession) SelectProfile(p media.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
	return nil
}

// SetPosition and Pause make fakeSession its own trim.Transport
func (f *fakeSession) SetPosition(pos float64) { f.position = pos }
func (f *fakeSession) Pause() { f.playing = false }

func (f *fakeSession) Watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-f.updates:
			if !ok {
				return nil
			}
			f.mu.Lock()
			f.clamp.OnTimeUpdate(pos, f.playing, f, f.sel.Range())
			f.mu.Unlock()
		}
	}
}

func (f *fakeSession) Export(ctx context.Context, onProgress export.ProgressFunc) (*editor.Completion, error) {
	for _, p := range []float64{0, 30, 60, 99.9} {
		onProgress(p)
	}
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	f.mu.Lock()
	f.exports++
	n := f.exports
	f.mu.Unlock()
	url := fmt.Sprintf("blob:video-trimmer/%d", n)
	return &editor.Completion{
		ID:       fmt.Sprintf("export-%d", n),
		URL:      url,
		Filename: media.SuggestedFilename("clip.mp4"),
		Result: &export.Result{
			Artifact: media.NewArtifact(media.BaseMimeType, [][]byte{[]byte("webm")}),
			URL:      url,
			Reason:   export.StopPosition,
			Frames:   10,
		},
	}, nil
}

func (f *fakeSession) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.sel = nil
}

// fakeSaver records saved artifacts
type fakeSaver struct {
	saved []string
}

func (s *fakeSaver) Save(url, dir, filename string) (string, error) {
	s.saved = append(s.saved, url)
	return dir + "/" + filename, nil
}

// fakeFileChecker implements media.FileChecker
type fakeFileChecker struct {
	files map[string]bool
}

func (c *fakeFileChecker) Exists(path string) bool { return c.files[path] }
func (c *fakeFileChecker) EnsureDir(dir string) error { return nil }

// fakeDetector returns fixed capabilities
type fakeDetector struct {
	caps      *ffmpeg.Capabilities
	verifyErr error
}

func (d *fakeDetector) Capabilities(ctx context.Context) *ffmpeg.Capabilities { return d.caps }
func (d *fakeDetector) VerifyInstalled(ctx context.Context) error { return d.verifyErr }

func fullCapabilities() *ffmpeg.Capabilities {
	return &ffmpeg.Capabilities{
		FFmpeg:   true,
		FFprobe:  true,
		Version:  "6.1",
		Encoders: map[media.Profile]bool{media.VP9: true, media.VP8: true},
		Opus:     true,
	}
}
