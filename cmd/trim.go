package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"video-trimmer/application/process"
	"video-trimmer/domain/media"
	"video-trimmer/infrastructure/filesystem"
)

var (
	trimSourcePath string
	trimStartTime  string
	trimEndTime    string
	trimFormat     string
	trimOutputDir  string
)

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Export a selection of a video as WebM",
	Long: `Play the source from --start to --end and record it to a watermarked WebM file.

Times are M:SS.CC (for example 1:05.50) or plain seconds. Without --start the
selection begins at 0:00.00, without --end it runs to the end of the video.
The output is written as trimmed_<source name>.webm to the output directory.

Example:
  video-trimmer trim --source clip.mp4 --start 0:05.00 --end 0:42.50 --format vp8`,
	RunE: runTrim,
}

func init() {
	rootCmd.AddCommand(trimCmd)
	trimCmd.Flags().StringVar(&trimSourcePath, "source", "", "Path to source video file (required)")
	trimCmd.Flags().StringVar(&trimStartTime, "start", "", "Start time in M:SS.CC format")
	trimCmd.Flags().StringVar(&trimEndTime, "end", "", "End time in M:SS.CC format")
	trimCmd.Flags().StringVar(&trimFormat, "format", "", "Output format: vp9 or vp8 (default from config)")
	trimCmd.Flags().StringVar(&trimOutputDir, "output", "", "Output directory (default from config)")
	trimCmd.MarkFlagRequired("source")
}

func runTrim(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	format := trimFormat
	if format == "" {
		format = cfg.Export.DefaultFormat
	}

	return RunTrimWithDependencies(
		cmd.Context(),
		c.detector,
		c.session,
		filesystem.NewChecker(),
		c.store,
		cfg.Paths.OutputDirectory,
		process.Input{
			InputPath: trimSourcePath,
			StartTime: trimStartTime,
			EndTime:   trimEndTime,
			Profile:   format,
			OutputDir: trimOutputDir,
		},
		cmd.OutOrStdout(),
	)
}

// Verifier checks external tools before work starts
type Verifier interface {
	VerifyInstalled(ctx context.Context) error
}

// RunTrimWithDependencies runs the trim command with injected dependencies (for testing)
func RunTrimWithDependencies(
	ctx context.Context,
	verifier Verifier,
	session process.TrimSession,
	fileChecker media.FileChecker,
	saver process.ArtifactSaver,
	outputDir string,
	input process.Input,
	output io.Writer,
) error {
	if verifier != nil {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifier.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	service := process.NewService(session, fileChecker, saver, outputDir, output)
	_, err := service.Process(ctx, input)
	return err
}
