// Package config loads the small set of runtime tunables that would
// otherwise be fixed as literal constants: acquire-frame timeout, watchdog
// window, capture throttle, render FPS cap, log format/level. The library
// never requires a config file: Load falls back to Default when none is
// found.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the tunables.
type Config struct {
	LogFormat string `mapstructure:"log_format"`
	LogLevel  string `mapstructure:"log_level"`

	AcquireFrameTimeoutMs   int `mapstructure:"acquire_frame_timeout_ms"`
	WatchdogTimeoutMs       int `mapstructure:"watchdog_timeout_ms"`
	KeepAliveIntervalMs     int `mapstructure:"keepalive_interval_ms"`
	CaptureThrottleMs       int `mapstructure:"capture_throttle_ms"`
	RenderFPSCapHz          int `mapstructure:"render_fps_cap_hz"`
	ControlMessageTimeoutMs int `mapstructure:"control_message_timeout_ms"`
	CursorTextureEdge       int `mapstructure:"cursor_texture_edge"`
}

// Default returns the built-in fallback configuration.
func Default() *Config {
	return &Config{
		LogFormat:               "text",
		LogLevel:                "info",
		AcquireFrameTimeoutMs:   100,
		WatchdogTimeoutMs:       2000,
		KeepAliveIntervalMs:     1000,
		CaptureThrottleMs:       50,
		RenderFPSCapHz:          100,
		ControlMessageTimeoutMs: 500,
		CursorTextureEdge:       256,
	}
}

// AcquireFrameTimeout, WatchdogTimeout, KeepAliveInterval, CaptureThrottle,
// RenderFrameBudget, and ControlMessageTimeout convert the millisecond
// fields to time.Duration for callers.
func (c *Config) AcquireFrameTimeout() time.Duration {
	return time.Duration(c.AcquireFrameTimeoutMs) * time.Millisecond
}

func (c *Config) WatchdogTimeout() time.Duration {
	return time.Duration(c.WatchdogTimeoutMs) * time.Millisecond
}

func (c *Config) KeepAliveInterval() time.Duration {
	return time.Duration(c.KeepAliveIntervalMs) * time.Millisecond
}

func (c *Config) CaptureThrottle() time.Duration {
	return time.Duration(c.CaptureThrottleMs) * time.Millisecond
}

func (c *Config) RenderFrameBudget() time.Duration {
	if c.RenderFPSCapHz <= 0 {
		return 10 * time.Millisecond
	}
	return time.Second / time.Duration(c.RenderFPSCapHz)
}

func (c *Config) ControlMessageTimeout() time.Duration {
	return time.Duration(c.ControlMessageTimeoutMs) * time.Millisecond
}

// Load reads an optional config file (YAML) plus DESKVIEW_* environment
// overrides, layered on top of Default. A missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	// AutomaticEnv only applies to keys viper already knows, so every field
	// is registered as a default that DESKVIEW_<KEY> can then override.
	for key, val := range map[string]any{
		"log_format":                 cfg.LogFormat,
		"log_level":                  cfg.LogLevel,
		"acquire_frame_timeout_ms":   cfg.AcquireFrameTimeoutMs,
		"watchdog_timeout_ms":        cfg.WatchdogTimeoutMs,
		"keepalive_interval_ms":      cfg.KeepAliveIntervalMs,
		"capture_throttle_ms":        cfg.CaptureThrottleMs,
		"render_fps_cap_hz":          cfg.RenderFPSCapHz,
		"control_message_timeout_ms": cfg.ControlMessageTimeoutMs,
		"cursor_texture_edge":        cfg.CursorTextureEdge,
	} {
		v.SetDefault(key, val)
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("deskview")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("DESKVIEW")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "deskview")
}
