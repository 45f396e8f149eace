// Package mcp exposes the daemon's window commands as MCP tools.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/1broseidon/winhost/internal/commands"
	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/pluginwin"
)

const (
	ServerName    = "winhost"
	ServerVersion = "0.1.0"
)

// DaemonClient is the subset of the IPC client the tools forward to.
type DaemonClient interface {
	ShowWindow() error
	HideWindow() error
	ToggleWindow() (bool, error)
	SetWindowSize(width, height float64) error
	GetWindowSize() (*ipc.WindowSizePayload, error)
	ShowPluginWindow(payload pluginwin.Payload) error
	ClosePluginWindow() error
	GetStatus() (*commands.Status, error)
}

var _ DaemonClient = (*ipc.Client)(nil)

// Server is the MCP server for winhost window control.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
	log       zerolog.Logger
}

// NewServer creates a new MCP server that forwards to the daemon.
func NewServer(client DaemonClient, log zerolog.Logger) *Server {
	s := &Server{
		client: client,
		log:    log.With().Str("component", "mcp").Logger(),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("MCP server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_window",
		Description: "Show the launcher's primary window.",
	}, s.handleShowWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_window",
		Description: "Hide the launcher's primary window without closing it.",
	}, s.handleHideWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_window",
		Description: "Hide the primary window if it is visible, otherwise show it. Returns the resulting visibility.",
	}, s.handleToggleWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_size",
		Description: "Resize the primary window. Width and height are logical units, independent of the display scale factor.",
	}, s.handleSetWindowSize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_plugin_result",
		Description: "Display a plugin result in the dedicated plugin window. The window is created on first use, reused afterwards, focused, and titled with the plugin name.",
	}, s.handleShowPluginResult)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_plugin_window",
		Description: "Close the plugin window if it is open and return focus to the primary window.",
	}, s.handleClosePluginWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the primary window's visibility and size, and the plugin window's state.",
	}, s.handleGetStatus)
}
