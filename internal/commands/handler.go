// Package commands implements the inbound command surface shared by the IPC
// server, the hotkeys and the MCP tools.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/pluginwin"
	"github.com/rs/zerolog"
)

// ErrInvalidSize is returned by ResizePrimary for non-positive or
// non-finite dimensions.
var ErrInvalidSize = errors.New("invalid window size")

// Status describes the daemon's windows.
type Status struct {
	PrimaryExists  bool                  `json:"primary_exists"`
	PrimaryVisible bool                  `json:"primary_visible"`
	PrimarySize    *platform.LogicalSize `json:"primary_size,omitempty"`
	PluginWindow   pluginwin.Snapshot    `json:"plugin_window"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
}

// Handler runs commands against the primary window and the plugin window
// coordinator.
type Handler struct {
	backend platform.Backend
	plugin  *pluginwin.Coordinator
	log     zerolog.Logger
	started time.Time
}

// NewHandler creates a command handler.
func NewHandler(backend platform.Backend, plugin *pluginwin.Coordinator, log zerolog.Logger) *Handler {
	return &Handler{
		backend: backend,
		plugin:  plugin,
		log:     log.With().Str("component", "commands").Logger(),
		started: time.Now(),
	}
}

// Coordinator returns the plugin window coordinator.
func (h *Handler) Coordinator() *pluginwin.Coordinator {
	return h.plugin
}

func (h *Handler) opLogger(op string) zerolog.Logger {
	return h.log.With().Str("op", op).Str("window", string(platform.PrimaryLabel)).Logger()
}

// run logs entry, success and failure of a primary window operation.
func (h *Handler) run(ctx context.Context, op string, fn func() error) error {
	log := h.opLogger(op)
	log.Debug().Msg("command received")
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	log.Info().Msg("command succeeded")
	return nil
}

// ShowPrimary shows the primary window.
func (h *Handler) ShowPrimary(ctx context.Context) error {
	return h.run(ctx, "show_window", func() error {
		return h.backend.Show(platform.PrimaryLabel)
	})
}

// HidePrimary hides the primary window.
func (h *Handler) HidePrimary(ctx context.Context) error {
	return h.run(ctx, "hide_window", func() error {
		return h.backend.Hide(platform.PrimaryLabel)
	})
}

// TogglePrimaryVisibility hides a visible primary window and shows a hidden
// one. It returns the resulting visibility.
func (h *Handler) TogglePrimaryVisibility(ctx context.Context) (bool, error) {
	var visible bool
	err := h.run(ctx, "toggle_window", func() error {
		was, err := h.backend.IsVisible(platform.PrimaryLabel)
		if err != nil {
			return err
		}
		if was {
			err = h.backend.Hide(platform.PrimaryLabel)
		} else {
			err = h.backend.Show(platform.PrimaryLabel)
		}
		if err != nil {
			return err
		}
		visible = !was
		return nil
	})
	return visible, err
}

// ResizePrimary sets the primary window's size in logical units.
func (h *Handler) ResizePrimary(ctx context.Context, width, height float64) error {
	return h.run(ctx, "set_window_size", func() error {
		if !validDimension(width) || !validDimension(height) {
			return fmt.Errorf("%w: %vx%v", ErrInvalidSize, width, height)
		}
		return h.backend.SetSize(platform.PrimaryLabel, platform.LogicalSize{Width: width, Height: height})
	})
}

// PrimarySize returns the primary window's size in logical units.
func (h *Handler) PrimarySize(ctx context.Context) (platform.LogicalSize, error) {
	var size platform.LogicalSize
	err := h.run(ctx, "get_window_size", func() error {
		var err error
		size, err = h.backend.Size(platform.PrimaryLabel)
		return err
	})
	return size, err
}

// DisplayResult shows a plugin result in the plugin window.
func (h *Handler) DisplayResult(ctx context.Context, payload pluginwin.Payload) error {
	return h.plugin.DisplayResult(ctx, payload)
}

// Dismiss closes the plugin window and refocuses the primary window.
func (h *Handler) Dismiss(ctx context.Context) error {
	return h.plugin.Dismiss(ctx)
}

// PluginReady is called by the plugin window's content once it listens for
// plugin data.
func (h *Handler) PluginReady(ctx context.Context) error {
	return h.plugin.MarkReady(ctx)
}

// Status reports the state of both windows. A missing primary window is
// reported, not treated as an error.
func (h *Handler) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	st := Status{
		PluginWindow:  h.plugin.Snapshot(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if !h.backend.Exists(platform.PrimaryLabel) {
		return st, nil
	}
	st.PrimaryExists = true

	visible, err := h.backend.IsVisible(platform.PrimaryLabel)
	if err != nil {
		return st, err
	}
	st.PrimaryVisible = visible
	if size, err := h.backend.Size(platform.PrimaryLabel); err == nil {
		st.PrimarySize = &size
	}
	return st, nil
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
