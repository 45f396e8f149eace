package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths are every leaf of the config, for example:
//
//	display
//	primary_window.title
//	plugin_window.width
//	plugin_window.command
//	delivery.mode
//	scale_factor
//	logging.level
//
// A section name (e.g. "delivery") returns the whole section.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := ""
	if len(parts) == 2 {
		leaf = parts[1]
	} else if len(parts) > 2 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}

	unknown := fmt.Errorf("unknown path: %s", path)
	switch parts[0] {
	case "display":
		if leaf == "" {
			return cfg.Display, nil
		}
	case "scale_factor":
		if leaf == "" {
			return cfg.ScaleFactor, nil
		}
	case "reconcile_interval_ms":
		if leaf == "" {
			return cfg.ReconcileIntervalMS, nil
		}
	case "primary_window":
		pw := cfg.PrimaryWindow
		switch leaf {
		case "":
			return pw, nil
		case "title":
			return pw.Title, nil
		case "class":
			return pw.Class, nil
		case "toggle_hotkey":
			return pw.ToggleHotkey, nil
		}
	case "plugin_window":
		pw := cfg.PluginWindow
		switch leaf {
		case "":
			return pw, nil
		case "width":
			return pw.Width, nil
		case "height":
			return pw.Height, nil
		case "resizable":
			return pw.Resizable, nil
		case "decorated":
			return pw.Decorated, nil
		case "always_on_top":
			return pw.AlwaysOnTop, nil
		case "center":
			return pw.Center, nil
		case "view_url":
			return pw.ViewURL, nil
		case "command":
			return pw.Command, nil
		case "spawn_timeout_ms":
			return pw.SpawnTimeoutMS, nil
		}
	case "delivery":
		d := cfg.Delivery
		switch leaf {
		case "":
			return d, nil
		case "mode":
			return d.Mode, nil
		case "attempts":
			return d.Attempts, nil
		case "delay_ms":
			return d.DelayMS, nil
		case "ready_timeout_ms":
			return d.ReadyTimeoutMS, nil
		}
	case "logging":
		l := cfg.GetLoggingConfig()
		switch leaf {
		case "":
			return l, nil
		case "level":
			return l.Level, nil
		case "file":
			return l.File, nil
		case "max_size_mb":
			return l.MaxSizeMB, nil
		case "max_files":
			return l.MaxFiles, nil
		}
	}
	return nil, unknown
}
