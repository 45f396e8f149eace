package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/commands"
	"github.com/1broseidon/winhost/internal/pluginwin"
	"github.com/1broseidon/winhost/internal/runtimepath"
	"github.com/rs/zerolog"
)

// requestTimeout bounds the handling of a single command.
const requestTimeout = 10 * time.Second

// ReloadFunc reloads the daemon configuration.
type ReloadFunc func() error

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      *commands.Handler
	reload       ReloadFunc
	log          zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	conns        sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server on the runtime socket path.
func NewServer(handler *commands.Handler, reload ReloadFunc, log zerolog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, handler, reload, log), nil
}

// NewServerAt creates a new IPC server on an explicit socket path.
func NewServerAt(socketPath string, handler *commands.Handler, reload ReloadFunc, log zerolog.Logger) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		reload:     reload,
		log:        log.With().Str("component", "ipc").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info().Str("socket", s.socketPath).Msg("IPC server listening")

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.log.Warn().Err(err).Msg("IPC accept error")
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn().Err(err).Msg("IPC read error")
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal response")
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn().Err(err).Msg("failed to send response")
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.log.Debug().Str("command", string(req.Command)).Msg("IPC command received")

	switch req.Command {
	case CommandShowWindow:
		return okOrError(s.handler.ShowPrimary(ctx), "Failed to show window")
	case CommandHideWindow:
		return okOrError(s.handler.HidePrimary(ctx), "Failed to hide window")
	case CommandToggleWindow:
		return s.handleToggle(ctx)
	case CommandSetWindowSize:
		return s.handleSetWindowSize(ctx, req.Payload)
	case CommandGetWindowSize:
		return s.handleGetWindowSize(ctx)
	case CommandShowPluginWindow:
		return s.handleShowPluginWindow(ctx, req.Payload)
	case CommandClosePluginWindow:
		return okOrError(s.handler.Dismiss(ctx), "Failed to close plugin window")
	case CommandPluginWindowReady:
		return okOrError(s.handler.PluginReady(ctx), "Failed to mark plugin window ready")
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleToggle(ctx context.Context) *Response {
	visible, err := s.handler.TogglePrimaryVisibility(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to toggle window: %v", err))
	}
	return mustOK(ToggleData{Visible: visible})
}

func (s *Server) handleSetWindowSize(ctx context.Context, payload json.RawMessage) *Response {
	var size WindowSizePayload
	if err := json.Unmarshal(payload, &size); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid size payload: %v", err))
	}
	return okOrError(s.handler.ResizePrimary(ctx, size.Width, size.Height), "Failed to resize window")
}

func (s *Server) handleGetWindowSize(ctx context.Context) *Response {
	size, err := s.handler.PrimarySize(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get window size: %v", err))
	}
	return mustOK(WindowSizePayload{Width: size.Width, Height: size.Height})
}

func (s *Server) handleShowPluginWindow(ctx context.Context, payload json.RawMessage) *Response {
	var p pluginwin.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid plugin payload: %v", err))
	}
	return okOrError(s.handler.DisplayResult(ctx, p), "Failed to show plugin window")
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	status, err := s.handler.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	return mustOK(status)
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	if s.reload == nil {
		return NewErrorResponse("Reload is not supported")
	}
	if err := s.reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	s.log.Info().Msg("config reloaded via IPC")
	return mustOK(nil)
}

func okOrError(err error, prefix string) *Response {
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("%s: %v", prefix, err))
	}
	return mustOK(nil)
}

func mustOK(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.conns.Wait()
	os.Remove(s.socketPath)
}
