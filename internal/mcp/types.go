package mcp

import "github.com/1broseidon/winhost/internal/commands"

// EmptyInput is the input for tools that take no arguments.
type EmptyInput struct{}

// AckOutput is returned by tools that only report success.
type AckOutput struct {
	OK bool `json:"ok"`
}

// ToggleWindowOutput is the output for the toggle_window tool.
type ToggleWindowOutput struct {
	Visible bool `json:"visible"`
}

// SetWindowSizeInput is the input for the set_window_size tool.
type SetWindowSizeInput struct {
	Width  float64 `json:"width" jsonschema:"required,Width in logical (scale-independent) units, must be positive"`
	Height float64 `json:"height" jsonschema:"required,Height in logical (scale-independent) units, must be positive"`
}

// WindowSizeOutput is the output for the set_window_size tool.
type WindowSizeOutput struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShowPluginResultInput is the input for the show_plugin_result tool.
type ShowPluginResultInput struct {
	PluginID   string `json:"plugin_id,omitempty" jsonschema:"Identifier of the plugin that produced the result"`
	PluginName string `json:"plugin_name" jsonschema:"required,Display name of the plugin, used as the window title"`
	Input      string `json:"input,omitempty" jsonschema:"The user input the plugin was run with"`
	Result     any    `json:"result,omitempty" jsonschema:"Plugin result, commonly {type: text|html|list|custom, content, actions}"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	Status commands.Status `json:"status"`
}
