package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"video-trimmer/domain/media"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "config/config.yaml"

// Render backends
const (
	BackendImage  = "image"
	BackendOpenCV = "opencv"
)

// Config represents the complete application configuration
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
	Export ExportConfig `yaml:"export"`
	Render RenderConfig `yaml:"render"`
	Audio  AudioConfig  `yaml:"audio"`
	Log    LogConfig    `yaml:"log"`
}

// PathsConfig contains directory paths
type PathsConfig struct {
	OutputDirectory string `yaml:"output_directory"`
}

// FFmpegConfig locates the external tools
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	FFplayPath  string `yaml:"ffplay_path,omitempty"`
}

// ExportConfig contains export settings
type ExportConfig struct {
	DefaultFormat string `yaml:"default_format"`
	SeekTimeout   string `yaml:"seek_timeout"`
}

// RenderConfig selects the drawing surface
type RenderConfig struct {
	Backend string `yaml:"backend"`
}

// AudioConfig controls the local monitor branch
type AudioConfig struct {
	Monitor bool `yaml:"monitor"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when no file exists
func Defaults() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields
func (c *Config) ApplyDefaults() {
	if c.Paths.OutputDirectory == "" {
		c.Paths.OutputDirectory = "."
	}
	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = "ffmpeg"
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = "ffprobe"
	}
	if c.FFmpeg.FFplayPath == "" {
		c.FFmpeg.FFplayPath = "ffplay"
	}
	if c.Export.DefaultFormat == "" {
		c.Export.DefaultFormat = media.VP9.Codec()
	}
	if c.Export.SeekTimeout == "" {
		c.Export.SeekTimeout = "10s"
	}
	if c.Render.Backend == "" {
		c.Render.Backend = BackendImage
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks values that would otherwise fail later
func (c *Config) Validate() error {
	if _, err := c.Profile(); err != nil {
		return fmt.Errorf("export.default_format: %w", err)
	}
	if _, err := c.SeekTimeoutDuration(); err != nil {
		return fmt.Errorf("export.seek_timeout: %w", err)
	}
	switch c.Render.Backend {
	case BackendImage, BackendOpenCV:
	default:
		return fmt.Errorf("render.backend: unknown backend %q", c.Render.Backend)
	}
	return nil
}

// Profile returns the configured default encoding profile
func (c *Config) Profile() (media.Profile, error) {
	return media.ParseProfile(c.Export.DefaultFormat)
}

// SeekTimeoutDuration parses export.seek_timeout; zero disables the timeout
func (c *Config) SeekTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Export.SeekTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Defaults
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
