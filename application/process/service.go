package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"video-trimmer/application/editor"
	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
)

// TrimSession is the part of editor.Session the workflow drives
type TrimSession interface {
	Load(ctx context.Context, path string) error
	Info() (editor.Info, error)
	Range() (trim.Range, error)
	SetStartText(text string) bool
	SetEndText(text string) bool
	SelectProfile(p media.Profile) error
	SelectionLabel() string
	Export(ctx context.Context, onProgress export.ProgressFunc) (*editor.Completion, error)
	Reset()
}

// ArtifactSaver writes a finished artifact to disk
type ArtifactSaver interface {
	Save(url, dir, filename string) (string, error)
}

// Service runs a complete non-interactive trim: load, select, export, save
type Service struct {
	session     TrimSession
	fileChecker media.FileChecker
	saver       ArtifactSaver
	outputDir   string
	output      io.Writer
}

// NewService creates a new process service
func NewService(
	session TrimSession,
	fileChecker media.FileChecker,
	saver ArtifactSaver,
	outputDir string,
	output io.Writer,
) *Service {
	return &Service{
		session:     session,
		fileChecker: fileChecker,
		saver:       saver,
		outputDir:   outputDir,
		output:      output,
	}
}

// Input contains all input parameters for the trim command
type Input struct {
	InputPath string // Source video path
	StartTime string // Start as M:SS.CC (optional, defaults to 0)
	EndTime   string // End as M:SS.CC (optional, defaults to the duration)
	Profile   string // vp9, vp8 or a profile label (optional)
	OutputDir string // Overrides the configured output directory
}

// Result contains the results of a successful run
type Result struct {
	OutputPath string
	Range      trim.Range
	Profile    media.Profile
	Reason     export.StopReason
	Frames     int
	Bytes      int
}

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// Process runs the trim workflow. The session is reset before returning.
func (s *Service) Process(ctx context.Context, input Input) (*Result, error) {
	startTime := time.Now()

	profile, err := s.validateInputs(input)
	if err != nil {
		return nil, err
	}
	outputDir := input.OutputDir
	if outputDir == "" {
		outputDir = s.outputDir
	}

	defer s.session.Reset()

	s.printStep(1, "")
	if err := s.session.Load(ctx, input.InputPath); err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	info, err := s.session.Info()
	if err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	fmt.Fprintf(s.output, "      Source: %s (%s, %s)\n", info.Name, info.Resolution(), timecode.Format(info.Duration))

	r, err := s.applySelection(input, profile, info)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(s.output)

	s.printStep(2, fmt.Sprintf(" %s - %s (%s) as %s",
		timecode.Format(r.Start), timecode.Format(r.End), s.session.SelectionLabel(), profile.Label()))
	done, err := s.session.Export(ctx, s.progressPrinter())
	if err != nil {
		s.showRecoveryCommand(input, err)
		return nil, fmt.Errorf("export failed: %w", err)
	}
	res := done.Result
	fmt.Fprintf(s.output, "      Encoded %d frames (%.1f MB)\n\n", res.Frames, float64(res.Artifact.Size())/1024/1024)

	s.printStep(3, "")
	if err := s.fileChecker.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("save failed: %w", err)
	}
	path, err := s.saver.Save(done.URL, outputDir, done.Filename)
	if err != nil {
		return nil, fmt.Errorf("save failed: %w", err)
	}
	fmt.Fprintf(s.output, "      Created: %s\n\n", path)

	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(time.Since(startTime)))

	return &Result{
		OutputPath: path,
		Range:      r,
		Profile:    profile,
		Reason:     res.Reason,
		Frames:     res.Frames,
		Bytes:      res.Artifact.Size(),
	}, nil
}

func (s *Service) validateInputs(input Input) (media.Profile, error) {
	if input.InputPath == "" {
		return 0, &ValidationError{Message: "no source video given"}
	}
	if !s.fileChecker.Exists(input.InputPath) {
		return 0, fmt.Errorf("source file does not exist: %s", input.InputPath)
	}

	for _, tc := range []struct{ flag, value string }{
		{"--start", input.StartTime},
		{"--end", input.EndTime},
	} {
		if tc.value == "" {
			continue
		}
		if _, err := timecode.Parse(tc.value); err != nil {
			return 0, &ValidationError{
				Message:    fmt.Sprintf("%s %q is not a valid time", tc.flag, tc.value),
				Suggestion: "use M:SS.CC, for example " + tc.flag + " 1:05.50",
			}
		}
	}

	if input.Profile == "" {
		return media.VP9, nil
	}
	profile, err := media.ParseProfile(input.Profile)
	if err != nil {
		return 0, &ValidationError{
			Message:    err.Error(),
			Suggestion: "video-trimmer profiles",
		}
	}
	return profile, nil
}

// applySelection sets the profile and the requested range on the loaded
// session and returns the effective range
func (s *Service) applySelection(input Input, profile media.Profile, info editor.Info) (trim.Range, error) {
	if err := s.session.SelectProfile(profile); err != nil {
		return trim.Range{}, err
	}

	if input.StartTime != "" && !s.session.SetStartText(input.StartTime) {
		return trim.Range{}, &ValidationError{
			Message: fmt.Sprintf("start %s is outside %s (0:00.00 - %s)",
				input.StartTime, info.Name, timecode.Format(info.Duration)),
		}
	}
	if input.EndTime != "" && !s.session.SetEndText(input.EndTime) {
		return trim.Range{}, &ValidationError{
			Message: fmt.Sprintf("end %s must be after the start and no later than %s",
				input.EndTime, timecode.Format(info.Duration)),
		}
	}

	return s.session.Range()
}

// progressPrinter reports every 10% step once
func (s *Service) progressPrinter() export.ProgressFunc {
	last := -1
	return func(p float64) {
		step := int(math.Floor(p/10)) * 10
		if step <= last {
			return
		}
		last = step
		fmt.Fprintf(s.output, "      %3d%%\n", step)
	}
}

func (s *Service) showRecoveryCommand(input Input, err error) {
	var capErr *media.CapabilityError
	switch {
	case errors.As(err, &capErr):
		fmt.Fprintln(s.output)
		fmt.Fprintf(s.output, "Missing %s: %s\n", capErr.Name, capErr.Hint)
		fmt.Fprintf(s.output, "  Check your setup with: video-trimmer doctor\n")
	case errors.Is(err, media.ErrUnsupportedProfile):
		fmt.Fprintln(s.output)
		fmt.Fprintf(s.output, "To try another format:\n")
		fmt.Fprintf(s.output, "  video-trimmer trim --source %q --format vp8\n", input.InputPath)
	case errors.Is(err, media.ErrSeekTimeout):
		fmt.Fprintln(s.output)
		fmt.Fprintf(s.output, "The source did not reach the start position in time. Raise export.seek_timeout:\n")
		fmt.Fprintf(s.output, "  video-trimmer config set export.seek_timeout 30s\n")
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// StepInfo provides information about a workflow step
type StepInfo struct {
	Number      int
	Description string
}

// GetSteps returns the list of workflow steps
func GetSteps() []StepInfo {
	return []StepInfo{
		{1, "Loading media"},
		{2, "Exporting"},
		{3, "Saving"},
	}
}

// printStep writes the "[n/total]" header of a step followed by detail
func (s *Service) printStep(number int, detail string) {
	steps := GetSteps()
	step := steps[number-1]
	fmt.Fprintf(s.output, "[%d/%d] %s%s...\n", step.Number, len(steps), step.Description, detail)
}

// Ensure editor.Session satisfies the workflow
var _ TrimSession = (*editor.Session)(nil)
