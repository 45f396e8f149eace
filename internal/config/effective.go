package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}

	if pw := raw.PrimaryWindow; pw != nil {
		if pw.Title != nil {
			cfg.PrimaryWindow.Title = *pw.Title
		}
		if pw.Class != nil {
			cfg.PrimaryWindow.Class = *pw.Class
		}
		if pw.ToggleHotkey != nil {
			cfg.PrimaryWindow.ToggleHotkey = strings.TrimSpace(*pw.ToggleHotkey)
		}
	}

	if pw := raw.PluginWindow; pw != nil {
		if pw.Width != nil {
			cfg.PluginWindow.Width = *pw.Width
		}
		if pw.Height != nil {
			cfg.PluginWindow.Height = *pw.Height
		}
		if pw.Resizable != nil {
			cfg.PluginWindow.Resizable = *pw.Resizable
		}
		if pw.Decorated != nil {
			cfg.PluginWindow.Decorated = *pw.Decorated
		}
		if pw.AlwaysOnTop != nil {
			cfg.PluginWindow.AlwaysOnTop = *pw.AlwaysOnTop
		}
		if pw.Center != nil {
			cfg.PluginWindow.Center = *pw.Center
		}
		if pw.ViewURL != nil {
			cfg.PluginWindow.ViewURL = *pw.ViewURL
		}
		if pw.Command != nil {
			cfg.PluginWindow.Command = append([]string(nil), pw.Command...)
		}
		if pw.SpawnTimeoutMS != nil {
			cfg.PluginWindow.SpawnTimeoutMS = *pw.SpawnTimeoutMS
		}
	}

	if d := raw.Delivery; d != nil {
		if d.Mode != nil {
			cfg.Delivery.Mode = strings.ToLower(strings.TrimSpace(*d.Mode))
		}
		if d.Attempts != nil {
			cfg.Delivery.Attempts = *d.Attempts
		}
		if d.DelayMS != nil {
			cfg.Delivery.DelayMS = *d.DelayMS
		}
		if d.ReadyTimeoutMS != nil {
			cfg.Delivery.ReadyTimeoutMS = *d.ReadyTimeoutMS
		}
	}

	if raw.ScaleFactor != nil {
		cfg.ScaleFactor = *raw.ScaleFactor
	}
	if raw.ReconcileIntervalMS != nil {
		cfg.ReconcileIntervalMS = *raw.ReconcileIntervalMS
	}

	if l := raw.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		if l.File != nil {
			cfg.Logging.File = *l.File
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxFiles != nil {
			cfg.Logging.MaxFiles = *l.MaxFiles
		}
	}

	return cfg, nil
}
