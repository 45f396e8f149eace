package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawPrimaryWindow struct {
	Title        *string `yaml:"title"`
	Class        *string `yaml:"class"`
	ToggleHotkey *string `yaml:"toggle_hotkey"`
}

type RawPluginWindow struct {
	Width          *float64 `yaml:"width"`
	Height         *float64 `yaml:"height"`
	Resizable      *bool    `yaml:"resizable"`
	Decorated      *bool    `yaml:"decorated"`
	AlwaysOnTop    *bool    `yaml:"always_on_top"`
	Center         *bool    `yaml:"center"`
	ViewURL        *string  `yaml:"view_url"`
	Command        []string `yaml:"command"`
	SpawnTimeoutMS *int     `yaml:"spawn_timeout_ms"`
}

type RawDelivery struct {
	Mode           *string `yaml:"mode"`
	Attempts       *int    `yaml:"attempts"`
	DelayMS        *int    `yaml:"delay_ms"`
	ReadyTimeoutMS *int    `yaml:"ready_timeout_ms"`
}

type RawLoggingConfig struct {
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawConfig struct {
	Include             IncludeList       `yaml:"include"`
	Display             *string           `yaml:"display"`
	PrimaryWindow       *RawPrimaryWindow `yaml:"primary_window"`
	PluginWindow        *RawPluginWindow  `yaml:"plugin_window"`
	Delivery            *RawDelivery      `yaml:"delivery"`
	ScaleFactor         *float64          `yaml:"scale_factor"`
	ReconcileIntervalMS *int              `yaml:"reconcile_interval_ms"`
	Logging             *RawLoggingConfig `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.PrimaryWindow != nil {
		out.PrimaryWindow = mergeRawPrimaryWindow(out.PrimaryWindow, overlay.PrimaryWindow)
	}
	if overlay.PluginWindow != nil {
		out.PluginWindow = mergeRawPluginWindow(out.PluginWindow, overlay.PluginWindow)
	}
	if overlay.Delivery != nil {
		out.Delivery = mergeRawDelivery(out.Delivery, overlay.Delivery)
	}
	if overlay.ScaleFactor != nil {
		out.ScaleFactor = overlay.ScaleFactor
	}
	if overlay.ReconcileIntervalMS != nil {
		out.ReconcileIntervalMS = overlay.ReconcileIntervalMS
	}
	if overlay.Logging != nil {
		out.Logging = mergeRawLogging(out.Logging, overlay.Logging)
	}
	return out
}

func mergeRawPrimaryWindow(base, overlay *RawPrimaryWindow) *RawPrimaryWindow {
	out := RawPrimaryWindow{}
	if base != nil {
		out = *base
	}
	if overlay.Title != nil {
		out.Title = overlay.Title
	}
	if overlay.Class != nil {
		out.Class = overlay.Class
	}
	if overlay.ToggleHotkey != nil {
		out.ToggleHotkey = overlay.ToggleHotkey
	}
	return &out
}

func mergeRawPluginWindow(base, overlay *RawPluginWindow) *RawPluginWindow {
	out := RawPluginWindow{}
	if base != nil {
		out = *base
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.Resizable != nil {
		out.Resizable = overlay.Resizable
	}
	if overlay.Decorated != nil {
		out.Decorated = overlay.Decorated
	}
	if overlay.AlwaysOnTop != nil {
		out.AlwaysOnTop = overlay.AlwaysOnTop
	}
	if overlay.Center != nil {
		out.Center = overlay.Center
	}
	if overlay.ViewURL != nil {
		out.ViewURL = overlay.ViewURL
	}
	if overlay.Command != nil {
		out.Command = append([]string(nil), overlay.Command...)
	}
	if overlay.SpawnTimeoutMS != nil {
		out.SpawnTimeoutMS = overlay.SpawnTimeoutMS
	}
	return &out
}

func mergeRawDelivery(base, overlay *RawDelivery) *RawDelivery {
	out := RawDelivery{}
	if base != nil {
		out = *base
	}
	if overlay.Mode != nil {
		out.Mode = overlay.Mode
	}
	if overlay.Attempts != nil {
		out.Attempts = overlay.Attempts
	}
	if overlay.DelayMS != nil {
		out.DelayMS = overlay.DelayMS
	}
	if overlay.ReadyTimeoutMS != nil {
		out.ReadyTimeoutMS = overlay.ReadyTimeoutMS
	}
	return &out
}

func mergeRawLogging(base, overlay *RawLoggingConfig) *RawLoggingConfig {
	out := RawLoggingConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Level != nil {
		out.Level = overlay.Level
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	if overlay.MaxSizeMB != nil {
		out.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxFiles != nil {
		out.MaxFiles = overlay.MaxFiles
	}
	return &out
}
