package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winhost/internal/pluginwin"
)

func (s *Server) ack(tool string, err error) (*mcpsdk.CallToolResult, AckOutput, error) {
	if err != nil {
		s.log.Warn().Err(err).Str("tool", tool).Msg("tool call failed")
		return nil, AckOutput{}, err
	}
	s.log.Debug().Str("tool", tool).Msg("tool call succeeded")
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleShowWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack("show_window", s.client.ShowWindow())
}

func (s *Server) handleHideWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack("hide_window", s.client.HideWindow())
}

func (s *Server) handleToggleWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ToggleWindowOutput, error) {
	visible, err := s.client.ToggleWindow()
	if err != nil {
		return nil, ToggleWindowOutput{}, fmt.Errorf("toggle window: %w", err)
	}
	return nil, ToggleWindowOutput{Visible: visible}, nil
}

func (s *Server) handleSetWindowSize(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWindowSizeInput) (*mcpsdk.CallToolResult, WindowSizeOutput, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, WindowSizeOutput{}, fmt.Errorf("width and height must be positive, got %vx%v", args.Width, args.Height)
	}
	if err := s.client.SetWindowSize(args.Width, args.Height); err != nil {
		return nil, WindowSizeOutput{}, fmt.Errorf("set window size: %w", err)
	}
	size, err := s.client.GetWindowSize()
	if err != nil {
		return nil, WindowSizeOutput{}, fmt.Errorf("read back window size: %w", err)
	}
	return nil, WindowSizeOutput{Width: size.Width, Height: size.Height}, nil
}

func (s *Server) handleShowPluginResult(_ context.Context, _ *mcpsdk.CallToolRequest, args ShowPluginResultInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	payload := pluginwin.Payload{
		PluginID:   args.PluginID,
		PluginName: args.PluginName,
		Input:      args.Input,
	}
	if args.Result != nil {
		raw, err := json.Marshal(args.Result)
		if err != nil {
			return nil, AckOutput{}, fmt.Errorf("encode result: %w", err)
		}
		payload.Result = raw
	}
	if err := payload.Validate(); err != nil {
		return nil, AckOutput{}, err
	}
	return s.ack("show_plugin_result", s.client.ShowPluginWindow(payload))
}

func (s *Server) handleClosePluginWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	return s.ack("close_plugin_window", s.client.ClosePluginWindow())
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("get status: %w", err)
	}
	return nil, StatusOutput{Status: *status}, nil
}
