package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"video-trimmer/domain/media"
)

// encoderNames maps each profile to the ffmpeg encoder producing it
var encoderNames = map[media.Profile]string{
	media.VP9: "libvpx-vp9",
	media.VP8: "libvpx",
}

// Capabilities reports what the local ffmpeg installation can do
type Capabilities struct {
	FFmpeg   bool
	FFprobe  bool
	Version  string
	Encoders map[media.Profile]bool
	Opus     bool
}

// Supports reports whether p can be exported
func (c *Capabilities) Supports(p media.Profile) bool {
	return c.FFmpeg && c.Encoders[p]
}

// Check returns a *media.CapabilityError for the first missing piece
// needed to export p
func (c *Capabilities) Check(p media.Profile) error {
	switch {
	case !c.FFmpeg:
		return &media.CapabilityError{Name: "ffmpeg", Hint: "install ffmpeg or set ffmpeg.ffmpeg_path"}
	case !c.FFprobe:
		return &media.CapabilityError{Name: "ffprobe", Hint: "install ffprobe or set ffmpeg.ffprobe_path"}
	case !c.Encoders[p]:
		return &media.CapabilityError{
			Name: encoderNames[p],
			Hint: fmt.Sprintf("ffmpeg was built without the %s encoder", encoderNames[p]),
		}
	}
	return nil
}

// Detector probes the ffmpeg and ffprobe executables
type Detector struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
}

// DetectorOption is a functional option for configuring Detector
type DetectorOption func(*Detector)

// WithDetectorPaths sets custom executable paths
func WithDetectorPaths(ffmpegPath, ffprobePath string) DetectorOption {
	return func(d *Detector) {
		d.ffmpegPath = ffmpegPath
		d.ffprobePath = ffprobePath
	}
}

// WithDetectorCommandRunner sets a custom command runner (for testing)
func WithDetectorCommandRunner(runner CommandRunner) DetectorOption {
	return func(d *Detector) {
		d.runner = runner
	}
}

// NewDetector creates a new capability detector
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Capabilities runs the executables and lists the available encoders.
// A missing executable is reported in the result, not as an error.
func (d *Detector) Capabilities(ctx context.Context) *Capabilities {
	caps := &Capabilities{Encoders: map[media.Profile]bool{}}

	if out, err := d.runner.Output(ctx, d.ffmpegPath, "-version"); err == nil {
		caps.FFmpeg = true
		caps.Version = firstLine(out)
	}
	if _, err := d.runner.Output(ctx, d.ffprobePath, "-version"); err == nil {
		caps.FFprobe = true
	}
	if !caps.FFmpeg {
		return caps
	}

	out, err := d.runner.Output(ctx, d.ffmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		return caps
	}

	available := parseEncoders(out)
	for profile, name := range encoderNames {
		caps.Encoders[profile] = available[name]
	}
	caps.Opus = available["libopus"]

	return caps
}

// VerifyInstalled checks that ffmpeg is available
func (d *Detector) VerifyInstalled(ctx context.Context) error {
	_, err := d.runner.Output(ctx, d.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// parseEncoders reads `ffmpeg -encoders` output. Encoder lines look like
// " V....D libvpx-vp9           libvpx VP9 (codec vp9)".
func parseEncoders(out []byte) map[string]bool {
	found := map[string]bool{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	pastHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			pastHeader = true
			continue
		}
		if !pastHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		found[fields[1]] = true
	}
	return found
}

func firstLine(out []byte) string {
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
