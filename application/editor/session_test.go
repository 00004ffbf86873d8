package editor

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/domain/trim"
)

type mockProber struct {
	meta *media.Metadata
	err  error
}

func (p *mockProber) Probe(ctx context.Context, path string) (*media.Metadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.meta, nil
}

type mockOpener struct {
	handles []*mockHandle
	err     error
}

func (o *mockOpener) Open(ctx context.Context, path string, meta *media.Metadata) (media.Handle, error) {
	if o.err != nil {
		return nil, o.err
	}
	h := &mockHandle{duration: meta.Duration, updates: make(chan float64, 8)}
	o.handles = append(o.handles, h)
	return h, nil
}

type mockHandle struct {
	mu       sync.Mutex
	duration float64
	pos      float64
	playing  bool
	muted    bool
	sets     []float64
	pauses   int
	closed   int
	updates  chan float64
}

func (h *mockHandle) Duration() float64        { return h.duration }
func (h *mockHandle) NaturalSize() image.Point { return image.Pt(640, 360) }

func (h *mockHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *mockHandle) SetPosition(seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = seconds
	h.sets = append(h.sets, seconds)
}

func (h *mockHandle) Seek(seconds float64) <-chan struct{} {
	h.SetPosition(seconds)
	done := make(chan struct{})
	close(done)
	return done
}

func (h *mockHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	return nil
}

func (h *mockHandle) Pause() {
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

func (h *mockHandle) Muted() bool               { return h.muted }
func (h *mockHandle) SetMuted(muted bool)       { h.muted = muted }
func (h *mockHandle) CurrentFrame() image.Image { return nil }

func (h *mockHandle) TimeUpdates() <-chan float64 { return h.updates }

func (h *mockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return nil
}

func (h *mockHandle) lastSet() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sets) == 0 {
		return -1
	}
	return h.sets[len(h.sets)-1]
}

type mockExporter struct {
	store     *mockStore
	supported map[media.Profile]bool
	gate      chan struct{}
	started   chan struct{}
	err       error

	mu      sync.Mutex
	calls   int
	ranges  []trim.Range
	profile media.Profile
}

func (e *mockExporter) Supports(p media.Profile) bool {
	return e.supported[p]
}

func (e *mockExporter) Export(ctx context.Context, h media.Handle, r trim.Range, p media.Profile, onProgress export.ProgressFunc) (*export.Result, error) {
	e.mu.Lock()
	e.calls++
	e.ranges = append(e.ranges, r)
	e.profile = p
	e.mu.Unlock()

	if e.started != nil {
		close(e.started)
	}
	onProgress(10)
	onProgress(60)

	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}

	artifact := media.NewArtifact("video/webm", [][]byte{[]byte("webm")})
	return &export.Result{
		Artifact: artifact,
		URL:      e.store.Create(artifact),
		Frames:   3,
		Duration: r.Duration(),
	}, nil
}

type mockStore struct {
	mu      sync.Mutex
	next    int
	live    map[string]*media.Artifact
	revoked []string
}

func (s *mockStore) Create(a *media.Artifact) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		s.live = map[string]*media.Artifact{}
	}
	s.next++
	url := "blob:" + string(rune('0'+s.next))
	s.live[url] = a
	return url
}

func (s *mockStore) Get(url string) (*media.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.live[url]
	return a, ok
}

func (s *mockStore) Revoke(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, url)
	s.revoked = append(s.revoked, url)
}

type sessionFixture struct {
	prober   *mockProber
	opener   *mockOpener
	exporter *mockExporter
	store    *mockStore
	session  *Session
}

func newSessionFixture(t *testing.T, opts ...Option) *sessionFixture {
	t.Helper()
	store := &mockStore{}
	f := &sessionFixture{
		prober: &mockProber{meta: &media.Metadata{Duration: 10, Width: 640, Height: 360, HasAudio: true}},
		opener: &mockOpener{},
		exporter: &mockExporter{
			store:     store,
			supported: map[media.Profile]bool{media.VP9: true, media.VP8: true},
		},
		store: store,
	}
	f.session = NewSession(f.prober, f.opener, f.exporter, f.store, opts...)
	return f
}

func (f *sessionFixture) load(t *testing.T) *mockHandle {
	t.Helper()
	if err := f.session.Load(context.Background(), "/videos/holiday.mp4"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return f.opener.handles[len(f.opener.handles)-1]
}

func TestSession_LoadSetsDefaults(t *testing.T) {
	f := newSessionFixture(t)
	if f.session.Phase() != trim.Idle {
		t.Errorf("Phase() = %v, want idle", f.session.Phase())
	}

	f.load(t)

	if f.session.Phase() != trim.Editing {
		t.Errorf("Phase() = %v, want editing", f.session.Phase())
	}
	r, err := f.session.Range()
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if r != (trim.Range{Start: 0, End: 10}) {
		t.Errorf("Range() = %+v, want {0 10}", r)
	}
	if f.session.Profile() != media.VP9 {
		t.Errorf("Profile() = %v, want VP9", f.session.Profile())
	}

	info, err := f.session.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Resolution() != "640x360" || info.Name != "holiday.mp4" || info.Duration != 10 {
		t.Errorf("Info() = %+v", info)
	}
	if got := f.session.SelectionLabel(); got != "0:10.00" {
		t.Errorf("SelectionLabel() = %q, want 0:10.00", got)
	}
}

func TestSession_LoadFailures(t *testing.T) {
	probeErr := errors.New("corrupt")
	f := newSessionFixture(t)
	f.prober.err = probeErr

	err := f.session.Load(context.Background(), "bad.mp4")
	if !errors.Is(err, probeErr) {
		t.Errorf("Load() error = %v, want probe error", err)
	}
	if f.session.Phase() != trim.Idle {
		t.Errorf("Phase() = %v, want idle after failed load", f.session.Phase())
	}

	f.prober.err = nil
	f.opener.err = errors.New("no decoder")
	if err := f.session.Load(context.Background(), "bad.mp4"); !errors.Is(err, f.opener.err) {
		t.Errorf("Load() error = %v, want open error", err)
	}
}

func TestSession_LoadReplacesPreviousMedia(t *testing.T) {
	f := newSessionFixture(t)
	first := f.load(t)
	f.load(t)

	if first.closed != 1 {
		t.Errorf("previous media closed %d times, want 1", first.closed)
	}
}

func TestSession_UpdateRangeSeeksPreview(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)

	r, err := f.session.UpdateStart(2)
	if err != nil {
		t.Fatalf("UpdateStart() error = %v", err)
	}
	if r.Start != 2 || h.lastSet() != 2 {
		t.Errorf("UpdateStart(2): range %+v, preview at %v", r, h.lastSet())
	}

	r, err = f.session.UpdateEnd(6)
	if err != nil {
		t.Fatalf("UpdateEnd() error = %v", err)
	}
	if r.End != 6 {
		t.Errorf("UpdateEnd(6): range %+v", r)
	}
	if got := h.lastSet(); got < 5.949 || got > 5.951 {
		t.Errorf("preview after UpdateEnd(6) = %v, want 5.95", got)
	}

	r, _ = f.session.UpdateStart(100)
	if r.Start < 5.79 || r.Start > 5.81 || r.End != 6 {
		t.Errorf("UpdateStart(100) = %+v, want start clamped to 5.8", r)
	}
}

func TestSession_ManualTextEntry(t *testing.T) {
	f := newSessionFixture(t)
	f.load(t)

	tests := []struct {
		name      string
		apply     func() bool
		wantOK    bool
		wantRange trim.Range
	}{
		{name: "valid start", apply: func() bool { return f.session.SetStartText("0:02.5") }, wantOK: true, wantRange: trim.Range{Start: 2.5, End: 10}},
		{name: "garbage start", apply: func() bool { return f.session.SetStartText("abc") }, wantRange: trim.Range{Start: 2.5, End: 10}},
		{name: "negative start", apply: func() bool { return f.session.SetStartText("-1") }, wantRange: trim.Range{Start: 2.5, End: 10}},
		{name: "start after end", apply: func() bool { return f.session.SetStartText("11") }, wantRange: trim.Range{Start: 2.5, End: 10}},
		{name: "valid end", apply: func() bool { return f.session.SetEndText("1:30") }, wantRange: trim.Range{Start: 2.5, End: 10}},
		{name: "end in range", apply: func() bool { return f.session.SetEndText("8") }, wantOK: true, wantRange: trim.Range{Start: 2.5, End: 8}},
		{name: "end before start", apply: func() bool { return f.session.SetEndText("2") }, wantRange: trim.Range{Start: 2.5, End: 8}},
		{name: "too many colons", apply: func() bool { return f.session.SetEndText("1:2:3") }, wantRange: trim.Range{Start: 2.5, End: 8}},
		{name: "start inside gap is clamped", apply: func() bool { return f.session.SetStartText("7.9") }, wantOK: true, wantRange: trim.Range{Start: 7.8, End: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apply(); got != tt.wantOK {
				t.Errorf("applied = %v, want %v", got, tt.wantOK)
			}
			r, _ := f.session.Range()
			if diff := r.Start - tt.wantRange.Start; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("start = %v, want %v", r.Start, tt.wantRange.Start)
			}
			if diff := r.End - tt.wantRange.End; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("end = %v, want %v", r.End, tt.wantRange.End)
			}
		})
	}
}

func TestSession_OnTimeUpdateClampsPreview(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)
	f.session.UpdateStart(2)
	f.session.UpdateEnd(5)

	f.session.OnTimeUpdate(5.2)
	if h.lastSet() != 2 {
		t.Errorf("position after 5.2 = %v, want 2", h.lastSet())
	}
	if f.session.DisplayTime() != 5.2 {
		t.Errorf("DisplayTime() = %v, want 5.2", f.session.DisplayTime())
	}

	f.session.OnTimeUpdate(1.0)
	if h.lastSet() != 2 {
		t.Errorf("position after 1.0 = %v, want 2", h.lastSet())
	}
}

func TestSession_WatchDrivesClamp(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)
	f.session.UpdateStart(2)
	f.session.UpdateEnd(5)

	h.updates <- 6
	close(h.updates)

	if err := f.session.Watch(context.Background()); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if h.lastSet() != 2 {
		t.Errorf("position = %v, want 2", h.lastSet())
	}
}

func TestSession_PlaybackControls(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)

	playing, err := f.session.TogglePlay()
	if err != nil || !playing || !h.Playing() {
		t.Errorf("first TogglePlay() = %v, %v", playing, err)
	}
	playing, _ = f.session.TogglePlay()
	if playing || h.Playing() {
		t.Error("second TogglePlay() should pause")
	}

	muted, _ := f.session.ToggleMute()
	if !muted || !h.Muted() {
		t.Error("ToggleMute() should mute")
	}

	if err := f.session.SeekTo(42); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if h.lastSet() != 10 || f.session.DisplayTime() != 10 {
		t.Errorf("SeekTo(42) = %v, want clamped to duration 10", h.lastSet())
	}
}

func TestSession_OperationsWithoutMedia(t *testing.T) {
	f := newSessionFixture(t)

	if _, err := f.session.UpdateStart(1); !errors.Is(err, media.ErrNoMedia) {
		t.Errorf("UpdateStart() error = %v, want ErrNoMedia", err)
	}
	if _, err := f.session.Export(context.Background(), nil); !errors.Is(err, media.ErrNoMedia) {
		t.Errorf("Export() error = %v, want ErrNoMedia", err)
	}
	if f.session.SetStartText("1") {
		t.Error("SetStartText() should be ignored without media")
	}
	if got := f.session.SelectionLabel(); got != "0:00.00" {
		t.Errorf("SelectionLabel() = %q", got)
	}
	// no-op on an idle session
	f.session.OnTimeUpdate(3)
}

func TestSession_SelectProfile(t *testing.T) {
	f := newSessionFixture(t)
	f.exporter.supported = map[media.Profile]bool{media.VP9: true}

	if err := f.session.SelectProfile(media.VP8); !errors.Is(err, media.ErrUnsupportedProfile) {
		t.Errorf("SelectProfile(VP8) error = %v, want ErrUnsupportedProfile", err)
	}
	if err := f.session.SelectProfile(media.VP9); err != nil {
		t.Errorf("SelectProfile(VP9) error = %v", err)
	}
}

func TestSession_ExportCompletesOnce(t *testing.T) {
	f := newSessionFixture(t)
	f.load(t)
	f.session.UpdateStart(2)
	f.session.UpdateEnd(6)
	if err := f.session.SelectProfile(media.VP8); err != nil {
		t.Fatalf("SelectProfile() error = %v", err)
	}

	completed := f.session.Completed()

	var progress []float64
	done, err := f.session.Export(context.Background(), func(p float64) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if done.Filename != "trimmed_holiday.mp4.webm" {
		t.Errorf("Filename = %q", done.Filename)
	}
	if done.ID == "" || done.URL == "" {
		t.Errorf("completion missing identifiers: %+v", done)
	}
	if f.exporter.ranges[0] != (trim.Range{Start: 2, End: 6}) || f.exporter.profile != media.VP8 {
		t.Errorf("exported %+v with %v", f.exporter.ranges[0], f.exporter.profile)
	}
	if len(progress) != 2 {
		t.Errorf("progress = %v, want forwarded values", progress)
	}
	if f.session.Phase() != trim.Finished || f.session.Progress() != 100 {
		t.Errorf("Phase() = %v Progress() = %v, want finished at 100", f.session.Phase(), f.session.Progress())
	}

	select {
	case got := <-completed:
		if got.URL != done.URL {
			t.Errorf("completion URL = %q, want %q", got.URL, done.URL)
		}
	default:
		t.Fatal("no completion delivered")
	}
	select {
	case extra := <-completed:
		t.Errorf("unexpected second completion %+v", extra)
	default:
	}
}

func TestSession_CompletionDelivery(t *testing.T) {
	tests := []struct {
		name    string
		listen  bool
		exports int
		wantURL int // index of the export whose completion is delivered, -1 for none
	}{
		{name: "no listener publishes nothing", exports: 2, wantURL: -1},
		{name: "listener gets the only export", listen: true, exports: 1, wantURL: 0},
		{name: "newest replaces an unread completion", listen: true, exports: 2, wantURL: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			f.load(t)

			if tt.listen {
				f.session.Completed()
			}
			var urls []string
			for i := 0; i < tt.exports; i++ {
				done, err := f.session.Export(context.Background(), nil)
				if err != nil {
					t.Fatalf("Export() #%d error = %v", i+1, err)
				}
				urls = append(urls, done.URL)
			}

			select {
			case got := <-f.session.Completed():
				if tt.wantURL < 0 {
					t.Fatalf("unexpected completion %+v", got)
				}
				if got.URL != urls[tt.wantURL] {
					t.Errorf("completion URL = %q, want %q", got.URL, urls[tt.wantURL])
				}
			default:
				if tt.wantURL >= 0 {
					t.Fatal("no completion delivered")
				}
			}
			select {
			case extra := <-f.session.Completed():
				t.Errorf("unexpected extra completion %+v", extra)
			default:
			}
		})
	}
}

func TestSession_ConcurrentExportRejected(t *testing.T) {
	f := newSessionFixture(t)
	f.load(t)
	f.exporter.gate = make(chan struct{})
	f.exporter.started = make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := f.session.Export(context.Background(), nil)
		errc <- err
	}()
	<-f.exporter.started

	if f.session.Phase() != trim.Exporting {
		t.Errorf("Phase() = %v, want exporting", f.session.Phase())
	}
	if _, err := f.session.Export(context.Background(), nil); !errors.Is(err, media.ErrExportInProgress) {
		t.Errorf("second Export() error = %v, want ErrExportInProgress", err)
	}
	if _, err := f.session.UpdateStart(1); !errors.Is(err, media.ErrExportInProgress) {
		t.Errorf("UpdateStart() during export error = %v, want ErrExportInProgress", err)
	}

	close(f.exporter.gate)
	if err := <-errc; err != nil {
		t.Errorf("first Export() error = %v", err)
	}
	if f.exporter.calls != 1 {
		t.Errorf("exporter called %d times, want 1", f.exporter.calls)
	}
}

func TestSession_ResetDuringExport(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)
	f.exporter.gate = make(chan struct{})
	f.exporter.started = make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := f.session.Export(context.Background(), nil)
		errc <- err
	}()
	<-f.exporter.started

	f.session.Reset()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Export() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export did not stop after Reset")
	}

	if h.closed != 1 {
		t.Errorf("media closed %d times, want 1", h.closed)
	}
	if f.session.Phase() != trim.Idle {
		t.Errorf("Phase() = %v, want idle", f.session.Phase())
	}
}

func TestSession_ResetRevokesAndIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	h := f.load(t)

	done, err := f.session.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f.session.Reset()
	f.session.Reset()

	if _, ok := f.store.Get(done.URL); ok {
		t.Error("artifact URL still live after Reset")
	}
	if len(f.store.revoked) != 1 {
		t.Errorf("revoked %v, want exactly one URL", f.store.revoked)
	}
	if h.closed != 1 {
		t.Errorf("media closed %d times, want 1", h.closed)
	}
	if _, ok := f.session.Result(); ok {
		t.Error("Result() should be empty after Reset")
	}
	select {
	case c := <-f.session.Completed():
		t.Errorf("stale completion %+v survived Reset", c)
	default:
	}
}

func TestSession_ExportFailureReturnsToEditing(t *testing.T) {
	f := newSessionFixture(t)
	f.load(t)
	f.exporter.err = media.ErrSeekTimeout

	if _, err := f.session.Export(context.Background(), nil); !errors.Is(err, media.ErrSeekTimeout) {
		t.Fatalf("Export() error = %v, want ErrSeekTimeout", err)
	}
	if f.session.Phase() != trim.Editing {
		t.Errorf("Phase() = %v, want editing", f.session.Phase())
	}
}
