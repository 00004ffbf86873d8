package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned for keys that are not part of the config
var ErrUnknownKey = errors.New("unknown config key")

// field binds a dotted key to a Config field
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"paths.output_directory": {
		get: func(c *Config) string { return c.Paths.OutputDirectory },
		set: func(c *Config, v string) error { c.Paths.OutputDirectory = v; return nil },
	},
	"ffmpeg.ffmpeg_path": {
		get: func(c *Config) string { return c.FFmpeg.FFmpegPath },
		set: func(c *Config, v string) error { c.FFmpeg.FFmpegPath = v; return nil },
	},
	"ffmpeg.ffprobe_path": {
		get: func(c *Config) string { return c.FFmpeg.FFprobePath },
		set: func(c *Config, v string) error { c.FFmpeg.FFprobePath = v; return nil },
	},
	"ffmpeg.ffplay_path": {
		get: func(c *Config) string { return c.FFmpeg.FFplayPath },
		set: func(c *Config, v string) error { c.FFmpeg.FFplayPath = v; return nil },
	},
	"export.default_format": {
		get: func(c *Config) string { return c.Export.DefaultFormat },
		set: func(c *Config, v string) error { c.Export.DefaultFormat = v; return nil },
	},
	"export.seek_timeout": {
		get: func(c *Config) string { return c.Export.SeekTimeout },
		set: func(c *Config, v string) error { c.Export.SeekTimeout = v; return nil },
	},
	"render.backend": {
		get: func(c *Config) string { return c.Render.Backend },
		set: func(c *Config, v string) error { c.Render.Backend = strings.ToLower(v); return nil },
	},
	"audio.monitor": {
		get: func(c *Config) string { return strconv.FormatBool(c.Audio.Monitor) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("audio.monitor must be true or false: %w", err)
			}
			c.Audio.Monitor = b
			return nil
		},
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	},
}

// ConfigManager reads and updates single config entries
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Keys lists every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key
func (m *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f.get(m.config), nil
}

// Set validates and persists a new value. The config is left unchanged
// when the value is rejected.
func (m *ConfigManager) Set(key, value string) error {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	next := *m.config
	if err := f.set(&next, strings.TrimSpace(value)); err != nil {
		return err
	}
	next.ApplyDefaults()
	if err := next.Validate(); err != nil {
		return err
	}

	*m.config = next
	return Save(m.config, m.configPath)
}

// Config returns the managed configuration
func (m *ConfigManager) Config() *Config {
	return m.config
}
