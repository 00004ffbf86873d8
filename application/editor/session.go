package editor

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
)

// endPreviewOffset is how far before the out point the preview parks after
// the end of the selection moves
const endPreviewOffset = 0.05

// Exporter runs one export over a handle
type Exporter interface {
	Supports(p media.Profile) bool
	Export(ctx context.Context, h media.Handle, r trim.Range, p media.Profile, onProgress export.ProgressFunc) (*export.Result, error)
}

// Completion is delivered once per finished export
type Completion struct {
	ID       string
	URL      string
	Filename string
	Result   *export.Result
}

// Info summarizes the loaded media
type Info struct {
	Name     string
	Width    int
	Height   int
	Duration float64
	Profile  media.Profile
}

// Resolution returns the natural size as WxH
func (i Info) Resolution() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// Session owns everything one editing session holds: the media handle,
// the trim selection, the chosen profile and at most one export.
type Session struct {
	prober   media.MetadataProber
	opener   media.Opener
	exporter Exporter
	store    media.ArtifactStore
	logger   zerolog.Logger

	mu        sync.Mutex
	gen       int
	loading   bool
	name      string
	meta      *media.Metadata
	handle    media.Handle
	selection *trim.Selection
	clamp     trim.Clamp
	profile   media.Profile
	exporting bool
	cancel    context.CancelFunc
	progress  float64
	done      *Completion
	urls      []string
	completed chan Completion
	listening bool
}

// Option is a functional option for configuring Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithDefaultProfile sets the profile selected on load
func WithDefaultProfile(p media.Profile) Option {
	return func(s *Session) {
		s.profile = p
	}
}

// NewSession creates an idle session
func NewSession(prober media.MetadataProber, opener media.Opener, exporter Exporter, store media.ArtifactStore, opts ...Option) *Session {
	s := &Session{
		prober:    prober,
		opener:    opener,
		exporter:  exporter,
		store:     store,
		logger:    zerolog.Nop(),
		profile:   media.VP9,
		completed: make(chan Completion, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load probes and opens path, replacing whatever the session held.
// The selection starts out covering the whole media.
func (s *Session) Load(ctx context.Context, path string) error {
	s.Reset()

	s.mu.Lock()
	s.loading = true
	gen := s.gen
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		if s.gen == gen {
			s.loading = false
		}
		s.mu.Unlock()
		return err
	}

	meta, err := s.prober.Probe(ctx, path)
	if err != nil {
		return fail(fmt.Errorf("failed to read metadata: %w", err))
	}

	handle, err := s.opener.Open(ctx, path, meta)
	if err != nil {
		return fail(fmt.Errorf("failed to open media: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// reset while loading
		_ = handle.Close()
		return media.ErrClosed
	}

	s.loading = false
	s.name = filepath.Base(path)
	s.meta = meta
	s.handle = handle
	s.selection = trim.NewSelection(meta.Duration)
	s.clamp = trim.Clamp{}

	s.logger.Info().
		Str("file", s.name).
		Float64("duration", meta.Duration).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Msg("media loaded")

	return nil
}

// Phase derives the session state from what the session holds
func (s *Session) Phase() trim.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() trim.Phase {
	switch {
	case s.handle == nil && s.loading:
		return trim.Loading
	case s.handle == nil:
		return trim.Idle
	case s.exporting:
		return trim.Exporting
	case s.done != nil:
		return trim.Finished
	default:
		return trim.Editing
	}
}

// Range returns the current selection
func (s *Session) Range() (trim.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return trim.Range{}, media.ErrNoMedia
	}
	return s.selection.Range(), nil
}

// UpdateStart moves the start of the selection and previews it
func (s *Session) UpdateStart(candidate float64) (trim.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return trim.Range{}, err
	}

	start := s.selection.UpdateStart(candidate)
	s.handle.SetPosition(start)
	return s.selection.Range(), nil
}

// UpdateEnd moves the end of the selection and previews the frame just
// before it
func (s *Session) UpdateEnd(candidate float64) (trim.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return trim.Range{}, err
	}

	end := s.selection.UpdateEnd(candidate)
	s.handle.SetPosition(math.Max(0, end-endPreviewOffset))
	return s.selection.Range(), nil
}

// SetStartText parses text as a new start. Unparseable or out-of-range
// input is ignored and the previous value kept; the result reports whether
// the value was applied.
func (s *Session) SetStartText(text string) bool {
	secs, err := timecode.Parse(text)
	if err != nil {
		return false
	}

	r, err := s.Range()
	if err != nil || secs < 0 || secs >= r.End {
		return false
	}

	_, err = s.UpdateStart(secs)
	return err == nil
}

// SetEndText parses text as a new end with the same rules as SetStartText
func (s *Session) SetEndText(text string) bool {
	secs, err := timecode.Parse(text)
	if err != nil {
		return false
	}

	s.mu.Lock()
	var duration float64
	if s.meta != nil {
		duration = s.meta.Duration
	}
	s.mu.Unlock()

	r, err := s.Range()
	if err != nil || secs <= r.Start || secs > duration {
		return false
	}

	_, err = s.UpdateEnd(secs)
	return err == nil
}

// OnTimeUpdate keeps preview playback inside the selection. It does
// nothing while an export owns the media position.
func (s *Session) OnTimeUpdate(pos float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.exporting {
		return
	}
	s.clamp.OnTimeUpdate(pos, s.handle.Playing(), s.handle, s.selection.Range())
}

// Watch feeds the handle's time updates into OnTimeUpdate until ctx is
// done or the handle stops reporting
func (s *Session) Watch(ctx context.Context) error {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return media.ErrNoMedia
	}

	notifier, ok := handle.(media.TimeNotifier)
	if !ok {
		return fmt.Errorf("media does not report time updates")
	}

	updates := notifier.TimeUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-updates:
			if !ok {
				return nil
			}
			s.OnTimeUpdate(pos)
		}
	}
}

// DisplayTime returns the last position seen by the preview
func (s *Session) DisplayTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clamp.DisplayTime()
}

// SeekTo jumps the preview to pos, clamped to the media bounds
func (s *Session) SeekTo(pos float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}

	// the clamp pulls a seek outside the selection back on the next update
	pos = math.Max(0, math.Min(pos, s.meta.Duration))
	s.handle.SetPosition(pos)
	s.clamp.Record(pos)
	return nil
}

// TogglePlay starts or pauses the preview and returns the new state
func (s *Session) TogglePlay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return false, err
	}

	if s.handle.Playing() {
		s.handle.Pause()
		return false, nil
	}
	if err := s.handle.Play(); err != nil {
		return false, fmt.Errorf("failed to start playback: %w", err)
	}
	return true, nil
}

// ToggleMute flips the mute state and returns it
func (s *Session) ToggleMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return false, media.ErrNoMedia
	}
	muted := !s.handle.Muted()
	s.handle.SetMuted(muted)
	return muted, nil
}

// SelectProfile chooses the profile for the next export
func (s *Session) SelectProfile(p media.Profile) error {
	if !p.Valid() || !s.exporter.Supports(p) {
		return fmt.Errorf("%w: %s", media.ErrUnsupportedProfile, p.Label())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return media.ErrExportInProgress
	}
	s.profile = p
	return nil
}

// Profile returns the selected profile
func (s *Session) Profile() media.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SelectionLabel formats the selection length as M:SS.CC
func (s *Session) SelectionLabel() string {
	r, err := s.Range()
	if err != nil {
		return timecode.Format(0)
	}
	return timecode.Format(r.Duration())
}

// Info describes the loaded media
func (s *Session) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return Info{}, media.ErrNoMedia
	}
	return Info{
		Name:     s.name,
		Width:    s.meta.Width,
		Height:   s.meta.Height,
		Duration: s.meta.Duration,
		Profile:  s.profile,
	}, nil
}

// Progress returns the export progress; 100 once finished
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return 100
	}
	return s.progress
}

// Completed delivers each finished export once. Nothing is published
// until the first call, and an unread completion is replaced by a newer one.
func (s *Session) Completed() <-chan Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
	return s.completed
}

// Export runs one export of the current selection and blocks until the
// artifact is finalized. Progress callbacks run on the export goroutine.
func (s *Session) Export(ctx context.Context, onProgress export.ProgressFunc) (*Completion, error) {
	s.mu.Lock()
	if s.handle == nil {
		s.mu.Unlock()
		return nil, media.ErrNoMedia
	}
	if s.exporting {
		s.mu.Unlock()
		return nil, media.ErrExportInProgress
	}

	ctx, cancel := context.WithCancel(ctx)
	id := uuid.New().String()
	gen := s.gen
	handle, r, profile, name := s.handle, s.selection.Range(), s.profile, s.name

	s.exporting = true
	s.cancel = cancel
	s.progress = 0
	s.done = nil
	s.mu.Unlock()
	defer cancel()

	logger := s.logger.With().Str("export_id", id).Logger()
	logger.Info().
		Str("range", timecode.Format(r.Start)+"-"+timecode.Format(r.End)).
		Str("profile", profile.Label()).
		Msg("export requested")

	result, err := s.exporter.Export(ctx, handle, r, profile, func(p float64) {
		s.mu.Lock()
		if s.gen == gen {
			s.progress = p
		}
		s.mu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// superseded by a reset; the artifact belongs to nobody
		if result != nil {
			s.store.Revoke(result.URL)
		}
		if err == nil {
			err = media.ErrClosed
		}
		return nil, err
	}

	s.exporting = false
	s.cancel = nil
	if err != nil {
		logger.Error().Err(err).Msg("export failed")
		return nil, err
	}

	done := Completion{
		ID:       id,
		URL:      result.URL,
		Filename: media.SuggestedFilename(name),
		Result:   result,
	}
	s.done = &done
	s.urls = append(s.urls, result.URL)

	if s.listening {
		select {
		case <-s.completed:
			logger.Debug().Msg("replaced an unread completion")
		default:
		}
		s.completed <- done
	}

	return &done, nil
}

// Result returns the last finished export
func (s *Session) Result() (*Completion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.done != nil
}

// Reset stops any running export, revokes every artifact URL and releases
// the media. It is safe in any state and may be called repeatedly.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for _, url := range s.urls {
		s.store.Revoke(url)
	}
	if s.handle != nil {
		if err := s.handle.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close media")
		}
	}

	s.urls = nil
	s.handle = nil
	s.meta = nil
	s.name = ""
	s.selection = nil
	s.clamp = trim.Clamp{}
	s.loading = false
	s.exporting = false
	s.progress = 0
	s.done = nil

	// drop an unread completion from the previous media
	select {
	case <-s.completed:
	default:
	}
}

func (s *Session) editableLocked() error {
	if s.handle == nil {
		return media.ErrNoMedia
	}
	if s.exporting {
		return media.ErrExportInProgress
	}
	return nil
}
