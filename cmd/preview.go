package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
)

var (
	previewSourcePath string
	previewStartTime  string
	previewEndTime    string
	previewFor        time.Duration
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play a selection on a loop",
	Long: `Play the source between --start and --end. Playback that reaches the end
jumps back to the start, so the selection repeats until --for elapses or
Ctrl+C is pressed. The playback position is printed as it changes.

Example:
  video-trimmer preview --source clip.mp4 --start 0:05.00 --end 0:08.00 --for 30s`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVar(&previewSourcePath, "source", "", "Path to source video file (required)")
	previewCmd.Flags().StringVar(&previewStartTime, "start", "", "Start time in M:SS.CC format")
	previewCmd.Flags().StringVar(&previewEndTime, "end", "", "End time in M:SS.CC format")
	previewCmd.Flags().DurationVar(&previewFor, "for", 0, "Stop after this long (default: until Ctrl+C)")
	previewCmd.MarkFlagRequired("source")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	return RunPreviewWithDependencies(cmd.Context(), c.session, PreviewInput{
		SourcePath: previewSourcePath,
		StartTime:  previewStartTime,
		EndTime:    previewEndTime,
		For:        previewFor,
		Interval:   250 * time.Millisecond,
	}, cmd.OutOrStdout())
}

// PreviewSession is the part of editor.Session used by preview
type PreviewSession interface {
	Load(ctx context.Context, path string) error
	Range() (trim.Range, error)
	SetStartText(text string) bool
	SetEndText(text string) bool
	TogglePlay() (bool, error)
	Watch(ctx context.Context) error
	DisplayTime() float64
	Reset()
}

// PreviewInput contains the parameters for a preview run
type PreviewInput struct {
	SourcePath string
	StartTime  string
	EndTime    string
	For        time.Duration // zero runs until ctx is done
	Interval   time.Duration // how often the position is printed
}

// RunPreviewWithDependencies runs the preview command with injected dependencies (for testing)
func RunPreviewWithDependencies(ctx context.Context, session PreviewSession, input PreviewInput, output io.Writer) error {
	if err := session.Load(ctx, input.SourcePath); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer session.Reset()

	if input.StartTime != "" && !session.SetStartText(input.StartTime) {
		return fmt.Errorf("invalid start %q", input.StartTime)
	}
	if input.EndTime != "" && !session.SetEndText(input.EndTime) {
		return fmt.Errorf("invalid end %q", input.EndTime)
	}
	r, err := session.Range()
	if err != nil {
		return err
	}

	if input.For > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, input.For)
		defer cancel()
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan error, 1)
	go func() { watchDone <- session.Watch(watchCtx) }()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	fmt.Fprintf(output, "Previewing %s - %s (Ctrl+C to stop)\n", timecode.Format(r.Start), timecode.Format(r.End))
	if _, err := session.TogglePlay(); err != nil {
		return err
	}

	interval := input.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(output, "Stopped.")
			return nil
		case err := <-watchDone:
			// put the result back for the deferred wait
			watchDone <- err
			if ctx.Err() != nil {
				fmt.Fprintln(output, "Stopped.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(output, "Playback ended.")
			return nil
		case <-ticker.C:
			now := timecode.Format(session.DisplayTime())
			if now != last {
				fmt.Fprintf(output, "  %s\n", now)
				last = now
			}
		}
	}
}
