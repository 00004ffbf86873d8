package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"video-trimmer/domain/media"
	"video-trimmer/infrastructure/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that everything needed for exporting is installed",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunDoctorWithDependencies(cmd.Context(), cfg, newDetector(cfg), newSurfaceFactory, cmd.OutOrStdout())
}

// SurfaceFactoryFunc builds the drawing backend named by render.backend
type SurfaceFactoryFunc func(backend string) (media.SurfaceFactory, error)

// RunDoctorWithDependencies runs the doctor command with injected dependencies (for testing).
// It fails when the configured default format cannot be exported.
func RunDoctorWithDependencies(
	ctx context.Context,
	cfg *config.Config,
	detector CapabilityDetector,
	surfaces SurfaceFactoryFunc,
	output io.Writer,
) error {
	caps := detector.Capabilities(ctx)
	failed := 0
	check := func(ok bool, label, detail string) {
		mark := "ok"
		if !ok {
			mark = "MISSING"
			failed++
		}
		fmt.Fprintf(output, "  [%s] %s", mark, label)
		if detail != "" {
			fmt.Fprintf(output, " (%s)", detail)
		}
		fmt.Fprintln(output)
	}

	fmt.Fprintln(output, "Tools:")
	check(caps.FFmpeg, "ffmpeg", cfg.FFmpeg.FFmpegPath+" "+caps.Version)
	check(caps.FFprobe, "ffprobe", cfg.FFmpeg.FFprobePath)

	fmt.Fprintln(output, "Formats:")
	for _, p := range media.Profiles() {
		fmt.Fprintf(output, "  [%s] %s\n", availability(caps.Supports(p)), p.Label())
	}
	fmt.Fprintf(output, "  [%s] Opus audio\n", availability(caps.Opus))

	fmt.Fprintln(output, "Rendering:")
	detail := ""
	factory, err := surfaces(cfg.Render.Backend)
	if err == nil {
		var s media.Surface
		if s, err = factory.NewSurface(16, 16); err == nil {
			s.Close()
		}
	}
	if err != nil {
		detail = err.Error()
	}
	check(err == nil, "backend "+cfg.Render.Backend, detail)

	fmt.Fprintln(output, "Default format:")
	profile, err := cfg.Profile()
	if err == nil {
		err = caps.Check(profile)
	}
	if err != nil {
		check(false, cfg.Export.DefaultFormat, err.Error())
	} else {
		check(true, profile.Label(), "")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintln(output, "Ready to export.")
	return nil
}

func availability(ok bool) string {
	if ok {
		return "ok"
	}
	return "--"
}
