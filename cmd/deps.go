package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"video-trimmer/application/editor"
	"video-trimmer/application/export"
	"video-trimmer/domain/media"
	"video-trimmer/infrastructure/audio"
	"video-trimmer/infrastructure/blob"
	"video-trimmer/infrastructure/config"
	"video-trimmer/infrastructure/ffmpeg"
	"video-trimmer/infrastructure/logging"
	"video-trimmer/infrastructure/opencv"
	"video-trimmer/infrastructure/render"
)

// components are the production implementations behind every command
type components struct {
	session  *editor.Session
	store    *blob.Store
	detector *ffmpeg.Detector
	surfaces media.SurfaceFactory
}

// newSurfaceFactory picks the drawing backend named by render.backend
func newSurfaceFactory(backend string) (media.SurfaceFactory, error) {
	switch backend {
	case config.BackendOpenCV:
		return opencv.NewFactory()
	case config.BackendImage, "":
		return render.NewFactory()
	default:
		return nil, fmt.Errorf("unknown render backend %q", backend)
	}
}

func newDetector(cfg *config.Config) *ffmpeg.Detector {
	return ffmpeg.NewDetector(ffmpeg.WithDetectorPaths(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath))
}

// buildComponents wires the editor session from configuration
func buildComponents(cfg *config.Config, logger zerolog.Logger) (*components, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	seekTimeout, err := cfg.SeekTimeoutDuration()
	if err != nil {
		return nil, err
	}

	surfaces, err := newSurfaceFactory(cfg.Render.Backend)
	if err != nil {
		return nil, fmt.Errorf("render backend %s: %w", cfg.Render.Backend, err)
	}

	detector := newDetector(cfg)
	store := blob.NewStore()

	encoder := ffmpeg.NewEncoder(detector,
		ffmpeg.WithEncoderFFmpegPath(cfg.FFmpeg.FFmpegPath),
		ffmpeg.WithEncoderLogger(logging.WithComponent(logger, "encoder")),
	)
	opener := ffmpeg.NewOpener(
		ffmpeg.WithPlayerFFmpegPath(cfg.FFmpeg.FFmpegPath),
		ffmpeg.WithPlayerLogger(logging.WithComponent(logger, "player")),
	)
	prober := ffmpeg.NewProber(ffmpeg.WithFFprobePath(cfg.FFmpeg.FFprobePath))

	routerOpts := []audio.RouterOption{audio.WithLogger(logging.WithComponent(logger, "audio"))}
	if cfg.Audio.Monitor {
		monitor := ffmpeg.NewMonitor(
			ffmpeg.WithFFplayPath(cfg.FFmpeg.FFplayPath),
			ffmpeg.WithMonitorLogger(logging.WithComponent(logger, "monitor")),
		)
		routerOpts = append(routerOpts, audio.WithMonitor(monitor.Open))
	}

	exporter := export.NewExporter(encoder, surfaces, store,
		export.WithAudioRouter(audio.NewRouter(routerOpts...)),
		export.WithSeekTimeout(seekTimeout),
		export.WithLogger(logging.WithComponent(logger, "exporter")),
	)

	session := editor.NewSession(prober, opener, exporter, store,
		editor.WithLogger(logging.WithComponent(logger, "session")),
		editor.WithDefaultProfile(profile),
	)

	return &components{
		session:  session,
		store:    store,
		detector: detector,
		surfaces: surfaces,
	}, nil
}
