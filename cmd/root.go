package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"video-trimmer/infrastructure/config"
	"video-trimmer/infrastructure/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	cfgErr   error
	logger   = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "video-trimmer",
	Short: "Trim a video and re-encode the selection to WebM",
	Long: `video-trimmer plays a local video, lets you pick a start and end point
and records the selection in real time to a watermarked WebM file:

  - Pick the range by time code (M:SS.CC) or interactively
  - Preview the selection on a loop
  - Export as WebM (VP9) or WebM (VP8) with the original audio

Example:
  video-trimmer trim --source clip.mp4 --start 0:05.00 --end 0:42.50`,
	SilenceUsage: true,
}

// Execute runs the root command; Ctrl+C cancels the running command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file means defaults; a broken one is reported by the
	// commands that need it
	cfg, cfgErr = config.LoadOrDefault(cfgFile)

	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.Log.Level
	}
	l, err := logging.Init(level)
	if err != nil {
		l, _ = logging.Init("info")
		l.Warn().Err(err).Msg("falling back to info logging")
	}
	logger = l
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfgFile, cfgErr)
	}
	return cfg, nil
}
