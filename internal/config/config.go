package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PrimaryWindowConfig locates the launcher's own window.
type PrimaryWindowConfig struct {
	// Title is matched as a substring of the window name.
	Title string `yaml:"title"`
	// Class is matched against WM_CLASS (case-insensitive).
	Class string `yaml:"class,omitempty"`
	// ToggleHotkey toggles the window's visibility, e.g. "Mod4-space".
	ToggleHotkey string `yaml:"toggle_hotkey,omitempty"`
}

// PluginWindowConfig is the presentation of the plugin result window.
type PluginWindowConfig struct {
	Width       float64 `yaml:"width"`  // logical units
	Height      float64 `yaml:"height"` // logical units
	Resizable   bool    `yaml:"resizable"`
	Decorated   bool    `yaml:"decorated"`
	AlwaysOnTop bool    `yaml:"always_on_top"`
	Center      bool    `yaml:"center"`
	ViewURL     string  `yaml:"view_url"`
	// Command renders the window content. Arguments may use {title}, {url},
	// {label} and {class}. Empty means a bare window is created.
	Command        []string `yaml:"command,omitempty"`
	SpawnTimeoutMS int      `yaml:"spawn_timeout_ms"`
}

// DeliveryConfig controls how payloads reach a new plugin window.
type DeliveryConfig struct {
	// Mode is "handshake" (wait for the ready signal, then retry) or
	// "retry" (fixed schedule only).
	Mode           string `yaml:"mode"`
	Attempts       int    `yaml:"attempts"`
	DelayMS        int    `yaml:"delay_ms"`
	ReadyTimeoutMS int    `yaml:"ready_timeout_ms"`
}

// LoggingConfig configures the daemon log.
type LoggingConfig struct {
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/winhost/winhost.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

const (
	DeliveryModeHandshake = "handshake"
	DeliveryModeRetry     = "retry"

	// MinDeliveryAttempts is the shortest retry schedule accepted.
	MinDeliveryAttempts = 3
)

// Config holds the application configuration.
type Config struct {
	Display             string              `yaml:"display,omitempty"`
	PrimaryWindow       PrimaryWindowConfig `yaml:"primary_window"`
	PluginWindow        PluginWindowConfig  `yaml:"plugin_window"`
	Delivery            DeliveryConfig      `yaml:"delivery"`
	ScaleFactor         float64             `yaml:"scale_factor"`
	ReconcileIntervalMS int                 `yaml:"reconcile_interval_ms"`
	Logging             LoggingConfig       `yaml:"logging,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		PrimaryWindow: PrimaryWindowConfig{
			Title:        "winhost",
			ToggleHotkey: "Mod4-space",
		},
		PluginWindow: PluginWindowConfig{
			Width:          600,
			Height:         500,
			Resizable:      true,
			Decorated:      true,
			AlwaysOnTop:    true,
			Center:         true,
			ViewURL:        "plugin.html",
			SpawnTimeoutMS: 5000,
		},
		Delivery: DeliveryConfig{
			Mode:           DeliveryModeHandshake,
			Attempts:       3,
			DelayMS:        300,
			ReadyTimeoutMS: 2000,
		},
		ScaleFactor:         1,
		ReconcileIntervalMS: 1000,
	}
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winhost", "config.yaml"), nil
}

func (c *Config) SpawnTimeout() time.Duration {
	return time.Duration(c.PluginWindow.SpawnTimeoutMS) * time.Millisecond
}

func (c *Config) DeliveryDelay() time.Duration {
	return time.Duration(c.Delivery.DelayMS) * time.Millisecond
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Delivery.ReadyTimeoutMS) * time.Millisecond
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMS) * time.Millisecond
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.Getenv("HOME")
		}
		if home == "" {
			home = "."
		}
		cfg.File = filepath.Join(home, ".local/share/winhost/winhost.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.PrimaryWindow.Title) == "" && strings.TrimSpace(c.PrimaryWindow.Class) == "" {
		return &ValidationError{Path: "primary_window", Err: fmt.Errorf("title or class is required")}
	}
	if !positiveFinite(c.PluginWindow.Width) {
		return &ValidationError{Path: "plugin_window.width", Err: fmt.Errorf("width must be > 0")}
	}
	if !positiveFinite(c.PluginWindow.Height) {
		return &ValidationError{Path: "plugin_window.height", Err: fmt.Errorf("height must be > 0")}
	}
	if strings.TrimSpace(c.PluginWindow.ViewURL) == "" {
		return &ValidationError{Path: "plugin_window.view_url", Err: fmt.Errorf("view_url is required")}
	}
	if cmd := c.PluginWindow.Command; len(cmd) > 0 && strings.TrimSpace(cmd[0]) == "" {
		return &ValidationError{Path: "plugin_window.command", Err: fmt.Errorf("command must start with a program")}
	}
	if c.PluginWindow.SpawnTimeoutMS <= 0 {
		return &ValidationError{Path: "plugin_window.spawn_timeout_ms", Err: fmt.Errorf("spawn_timeout_ms must be > 0")}
	}
	switch c.Delivery.Mode {
	case DeliveryModeHandshake, DeliveryModeRetry:
	default:
		return &ValidationError{Path: "delivery.mode", Err: fmt.Errorf("mode must be one of: handshake, retry")}
	}
	if c.Delivery.Attempts < MinDeliveryAttempts {
		return &ValidationError{Path: "delivery.attempts", Err: fmt.Errorf("attempts must be >= %d", MinDeliveryAttempts)}
	}
	if c.Delivery.DelayMS <= 0 || c.Delivery.DelayMS > 10000 {
		return &ValidationError{Path: "delivery.delay_ms", Err: fmt.Errorf("delay_ms must be between 1 and 10000")}
	}
	if c.Delivery.ReadyTimeoutMS <= 0 {
		return &ValidationError{Path: "delivery.ready_timeout_ms", Err: fmt.Errorf("ready_timeout_ms must be > 0")}
	}
	if !positiveFinite(c.ScaleFactor) {
		return &ValidationError{Path: "scale_factor", Err: fmt.Errorf("scale_factor must be > 0")}
	}
	if c.ReconcileIntervalMS < 50 {
		return &ValidationError{Path: "reconcile_interval_ms", Err: fmt.Errorf("reconcile_interval_ms must be >= 50")}
	}
	if !isValidLogLevel(c.Logging.Level) {
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}
