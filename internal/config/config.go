// Package config loads the stillcam YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type CameraConfig struct {
	Facing           string        `yaml:"facing"` // back, front
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	MaxPreviewWidth  int           `yaml:"max_preview_width"`
	MaxPreviewHeight int           `yaml:"max_preview_height"`
	TapTimeout       time.Duration `yaml:"tap_timeout"`
	TapSlop          float64       `yaml:"tap_slop"`
	InboxSize        int           `yaml:"inbox_size"`
}

// SimulatorConfig drives the simulated sensors used by the CLI.
type SimulatorConfig struct {
	OpenDelay        time.Duration `yaml:"open_delay"`
	FrameInterval    time.Duration `yaml:"frame_interval"`
	FocusFrames      int           `yaml:"focus_frames"`
	PrecaptureFrames int           `yaml:"precapture_frames"`
	LowLight         bool          `yaml:"low_light"`
}

type StorageConfig struct {
	PreferencesDir string `yaml:"preferences_dir"`
	OutputDir      string `yaml:"output_dir"`
}

type MetricsConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Facing:           "back",
			OpenTimeout:      2500 * time.Millisecond,
			MaxPreviewWidth:  1920,
			MaxPreviewHeight: 1080,
			TapTimeout:       250 * time.Millisecond,
			TapSlop:          20,
			InboxSize:        64,
		},
		Simulator: SimulatorConfig{
			OpenDelay:        20 * time.Millisecond,
			FrameInterval:    33 * time.Millisecond,
			FocusFrames:      3,
			PrecaptureFrames: 2,
		},
		Storage: StorageConfig{
			PreferencesDir: "data/preferences",
			OutputDir:      "data/photos",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path on top of the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Camera.Facing != "back" && c.Camera.Facing != "front" {
		errs = append(errs, fmt.Errorf("camera.facing must be back or front, got %q", c.Camera.Facing))
	}
	if c.Camera.OpenTimeout <= 0 {
		errs = append(errs, errors.New("camera.open_timeout must be positive"))
	}
	if c.Camera.MaxPreviewWidth <= 0 || c.Camera.MaxPreviewHeight <= 0 {
		errs = append(errs, errors.New("camera.max_preview_width and camera.max_preview_height must be positive"))
	}
	if c.Camera.TapTimeout <= 0 || c.Camera.TapSlop <= 0 {
		errs = append(errs, errors.New("camera.tap_timeout and camera.tap_slop must be positive"))
	}
	if c.Camera.InboxSize <= 0 {
		errs = append(errs, errors.New("camera.inbox_size must be positive"))
	}
	if c.Simulator.FrameInterval <= 0 {
		errs = append(errs, errors.New("simulator.frame_interval must be positive"))
	}
	if c.Simulator.FocusFrames < 0 || c.Simulator.PrecaptureFrames < 0 {
		errs = append(errs, errors.New("simulator frame counts must not be negative"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// ConfigureLogging applies the log section to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.Log.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
