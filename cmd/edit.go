package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"video-trimmer/application/editor"
	"video-trimmer/application/export"
	"video-trimmer/application/process"
	"video-trimmer/domain/media"
	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
)

// Edit menu actions
const (
	actionStart  = "Set start"
	actionEnd    = "Set end"
	actionPlay   = "Play / pause"
	actionMute   = "Mute / unmute"
	actionSeek   = "Seek"
	actionFormat = "Format"
	actionExport = "Export"
	actionQuit   = "Quit"
)

var editActions = []string{
	actionStart, actionEnd, actionPlay, actionMute, actionSeek, actionFormat, actionExport, actionQuit,
}

var (
	editSourcePath string
	editOutputDir  string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Pick a selection interactively and export it",
	Long: `Open a video in an interactive session. Set the start and end by time
code, preview with play/pause, seek, pick a format and export. Playback stays
inside the selection while you edit.

Example:
  video-trimmer edit --source clip.mp4`,
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editSourcePath, "source", "", "Path to source video file (required)")
	editCmd.Flags().StringVar(&editOutputDir, "output", "", "Output directory (default from config)")
	editCmd.MarkFlagRequired("source")
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	outputDir := editOutputDir
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDirectory
	}

	return RunEditWithDependencies(cmd.Context(), DefaultPrompter, c.session, c.store, editSourcePath, outputDir, cmd.OutOrStdout())
}

// EditSession is the part of editor.Session the interactive editor drives
type EditSession interface {
	Load(ctx context.Context, path string) error
	Info() (editor.Info, error)
	Range() (trim.Range, error)
	SetStartText(text string) bool
	SetEndText(text string) bool
	SelectionLabel() string
	DisplayTime() float64
	SeekTo(pos float64) error
	TogglePlay() (bool, error)
	ToggleMute() (bool, error)
	Profile() media.Profile
	SelectProfile(p media.Profile) error
	Watch(ctx context.Context) error
	Export(ctx context.Context, onProgress export.ProgressFunc) (*editor.Completion, error)
	Reset()
}

// RunEditWithDependencies runs the interactive editor with injected dependencies (for testing)
func RunEditWithDependencies(
	ctx context.Context,
	prompter Prompter,
	session EditSession,
	saver process.ArtifactSaver,
	sourcePath string,
	outputDir string,
	output io.Writer,
) error {
	if err := session.Load(ctx, sourcePath); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer session.Reset()

	info, err := session.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Loaded %s (%s, %s)\n", info.Name, info.Resolution(), timecode.Format(info.Duration))

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = session.Watch(watchCtx)
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		r, err := session.Range()
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "\nSelection %s - %s (%s)  at %s  %s\n",
			timecode.Format(r.Start), timecode.Format(r.End), session.SelectionLabel(),
			timecode.Format(session.DisplayTime()), session.Profile().Label())

		action, err := prompter.Select("Action", editActions, actionPlay)
		if err != nil {
			return nil
		}

		switch action {
		case actionStart:
			text, err := prompter.Input("Start (M:SS.CC)", timecode.Format(r.Start))
			if err != nil {
				continue
			}
			if !session.SetStartText(text) {
				fmt.Fprintf(output, "Ignored start %q\n", text)
			}

		case actionEnd:
			text, err := prompter.Input("End (M:SS.CC)", timecode.Format(r.End))
			if err != nil {
				continue
			}
			if !session.SetEndText(text) {
				fmt.Fprintf(output, "Ignored end %q\n", text)
			}

		case actionPlay:
			playing, err := session.TogglePlay()
			if err != nil {
				fmt.Fprintf(output, "Playback failed: %v\n", err)
				continue
			}
			if playing {
				fmt.Fprintln(output, "Playing")
			} else {
				fmt.Fprintln(output, "Paused")
			}

		case actionMute:
			muted, err := session.ToggleMute()
			if err != nil {
				continue
			}
			if muted {
				fmt.Fprintln(output, "Muted")
			} else {
				fmt.Fprintln(output, "Unmuted")
			}

		case actionSeek:
			text, err := prompter.Input("Seek to (M:SS.CC)", timecode.Format(session.DisplayTime()))
			if err != nil {
				continue
			}
			secs, err := timecode.Parse(text)
			if err != nil {
				fmt.Fprintf(output, "Ignored position %q\n", text)
				continue
			}
			if err := session.SeekTo(secs); err != nil {
				fmt.Fprintf(output, "Seek failed: %v\n", err)
			}

		case actionFormat:
			if err := chooseProfile(prompter, session); err != nil {
				fmt.Fprintf(output, "%v\n", err)
			}

		case actionExport:
			again, err := exportSelection(ctx, prompter, session, saver, outputDir, output)
			if err != nil {
				return err
			}
			if !again {
				return nil
			}

		case actionQuit:
			return nil
		}
	}
}

func chooseProfile(prompter Prompter, session EditSession) error {
	labels := make([]string, 0, len(media.Profiles()))
	for _, p := range media.Profiles() {
		labels = append(labels, p.Label())
	}
	label, err := prompter.Select("Format", labels, session.Profile().Label())
	if err != nil {
		return nil
	}
	p, err := media.ParseProfile(label)
	if err != nil {
		return err
	}
	return session.SelectProfile(p)
}

// exportSelection runs one export and saves it; it reports whether the user
// wants to keep editing
func exportSelection(
	ctx context.Context,
	prompter Prompter,
	session EditSession,
	saver process.ArtifactSaver,
	outputDir string,
	output io.Writer,
) (bool, error) {
	fmt.Fprintf(output, "Exporting %s as %s...\n", session.SelectionLabel(), session.Profile().Label())

	last := -1
	done, err := session.Export(ctx, func(p float64) {
		if step := int(p) / 25 * 25; step > last {
			last = step
			fmt.Fprintf(output, "  %d%%\n", step)
		}
	})
	if err != nil {
		var capErr *media.CapabilityError
		if errors.As(err, &capErr) || errors.Is(err, media.ErrUnsupportedProfile) || errors.Is(err, media.ErrSeekTimeout) {
			fmt.Fprintf(output, "Export failed: %v\n", err)
			return true, nil
		}
		return false, fmt.Errorf("export failed: %w", err)
	}

	path, err := saver.Save(done.URL, outputDir, done.Filename)
	if err != nil {
		return false, fmt.Errorf("save failed: %w", err)
	}
	fmt.Fprintf(output, "  100%%\nCreated: %s\n", path)

	again, err := prompter.Confirm("Keep editing?", false)
	if err != nil {
		return false, nil
	}
	return again, nil
}

// Ensure editor.Session satisfies the command sessions
var (
	_ EditSession    = (*editor.Session)(nil)
	_ PreviewSession = (*editor.Session)(nil)
)
