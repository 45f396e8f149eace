//go:build linux

package platform

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// EventProperty is the X property a window's content watches for events.
const EventProperty = "_WINHOST_EVENT"

// LinuxOptions configures the X11 backend.
type LinuxOptions struct {
	// Display overrides $DISPLAY.
	Display string
	// PrimaryTitle and PrimaryClass locate the launcher's own window.
	PrimaryTitle string
	PrimaryClass string
	// ViewCommand spawns the process rendering a created window. The
	// placeholders {title}, {url}, {label} and {class} are substituted per
	// argument.
	// When empty, Create makes a bare X window.
	ViewCommand  []string
	SpawnTimeout time.Duration
	ScaleFactor  float64
	// Env is appended to the view process environment.
	Env []string
}

type trackedWindow struct {
	id    xproto.Window
	owned bool
	cmd   *exec.Cmd
}

// LinuxBackend implements Backend on top of an X11 connection.
type LinuxBackend struct {
	conn *x11.Connection
	opts LinuxOptions

	mu      sync.Mutex
	windows map[Label]trackedWindow
}

var (
	_ Backend      = (*LinuxBackend)(nil)
	_ Reconfigurer = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, opts LinuxOptions) *LinuxBackend {
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = 1
	}
	if opts.SpawnTimeout <= 0 {
		opts.SpawnTimeout = 5 * time.Second
	}
	return &LinuxBackend{
		conn:    conn,
		opts:    opts,
		windows: make(map[Label]trackedWindow),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(opts LinuxOptions) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, opts), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// StopEventLoop makes a running EventLoop return.
func (b *LinuxBackend) StopEventLoop() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

func (b *LinuxBackend) Exists(label Label) bool {
	_, err := b.resolve(label)
	return err == nil
}

// Create makes the window described by spec. The window is sized in
// physical pixels, optionally centered on the active monitor, and mapped.
func (b *LinuxBackend) Create(spec WindowSpec) error {
	if b.conn == nil {
		return wrapErr("create", spec.Label, fmt.Errorf("x11 backend connection is nil"))
	}
	if b.Exists(spec.Label) {
		return wrapErr("create", spec.Label, fmt.Errorf("a window labelled %q already exists", spec.Label))
	}

	opts := x11.WindowOptions{
		Title:       spec.Title,
		Class:       ViewClass(spec.Label),
		Width:       b.toPhysical(spec.Width),
		Height:      b.toPhysical(spec.Height),
		Resizable:   spec.Resizable,
		Decorated:   spec.Decorated,
		AlwaysOnTop: spec.AlwaysOnTop,
	}
	if spec.Center {
		if mon, err := b.conn.GetActiveMonitor(); err == nil {
			opts.X, opts.Y = mon.Center(opts.Width, opts.Height)
		}
	}

	if len(b.opts.ViewCommand) == 0 {
		id, err := b.conn.CreateWindow(opts)
		if err != nil {
			return wrapErr("create", spec.Label, err)
		}
		b.track(spec.Label, trackedWindow{id: id, owned: true})
		return nil
	}

	known, err := b.knownClients()
	if err != nil {
		return wrapErr("create", spec.Label, err)
	}
	cmd, err := b.spawnView(spec)
	if err != nil {
		return wrapErr("create", spec.Label, err)
	}
	id, err := b.waitForWindow(known, cmd.Process.Pid, spec, b.opts.SpawnTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		return wrapErr("create", spec.Label, err)
	}
	if err := b.conn.ConfigureWindow(id, opts); err != nil {
		_ = cmd.Process.Kill()
		return wrapErr("create", spec.Label, err)
	}
	b.track(spec.Label, trackedWindow{id: id, cmd: cmd})
	return nil
}

func (b *LinuxBackend) Show(label Label) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("show", label, err)
	}
	return wrapErr("show", label, b.conn.MapWindow(id))
}

func (b *LinuxBackend) Hide(label Label) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("hide", label, err)
	}
	return wrapErr("hide", label, b.conn.UnmapWindow(id))
}

func (b *LinuxBackend) IsVisible(label Label) (bool, error) {
	id, err := b.resolve(label)
	if err != nil {
		return false, wrapErr("visible", label, err)
	}
	visible, err := b.conn.IsViewable(id)
	if err != nil {
		return false, wrapErr("visible", label, err)
	}
	return visible, nil
}

func (b *LinuxBackend) SetSize(label Label, size LogicalSize) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("resize", label, err)
	}
	return wrapErr("resize", label, b.conn.ResizeWindow(id, b.toPhysical(size.Width), b.toPhysical(size.Height)))
}

func (b *LinuxBackend) Size(label Label) (LogicalSize, error) {
	id, err := b.resolve(label)
	if err != nil {
		return LogicalSize{}, wrapErr("size", label, err)
	}
	_, _, w, h, err := b.conn.Geometry(id)
	if err != nil {
		return LogicalSize{}, wrapErr("size", label, err)
	}
	return LogicalSize{
		Width:  float64(w) / b.scaleFactor(),
		Height: float64(h) / b.scaleFactor(),
	}, nil
}

// Close destroys windows this backend created itself and asks every other
// window to close through WM_DELETE_WINDOW.
func (b *LinuxBackend) Close(label Label) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("close", label, err)
	}

	b.mu.Lock()
	tw := b.windows[label]
	delete(b.windows, label)
	b.mu.Unlock()

	if tw.owned {
		err = b.conn.DestroyWindow(id)
	} else {
		err = b.conn.CloseWindow(id)
	}
	if tw.cmd != nil {
		go tw.cmd.Wait()
	}
	return wrapErr("close", label, err)
}

func (b *LinuxBackend) Focus(label Label) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("focus", label, err)
	}
	return wrapErr("focus", label, b.conn.FocusWindow(id))
}

// Emit publishes {"event": ..., "payload": ...} on the window's
// _WINHOST_EVENT property.
func (b *LinuxBackend) Emit(label Label, event string, payload any) error {
	id, err := b.resolve(label)
	if err != nil {
		return wrapErr("emit", label, err)
	}
	data, err := json.Marshal(struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{Event: event, Payload: payload})
	if err != nil {
		return wrapErr("emit", label, fmt.Errorf("failed to marshal %s payload: %w", event, err))
	}
	return wrapErr("emit", label, b.conn.SetStringProperty(id, EventProperty, data))
}

// resolve returns the X window for label. Tracked windows that the server
// no longer knows are forgotten; the primary window is looked up by
// title/class on demand.
func (b *LinuxBackend) resolve(label Label) (xproto.Window, error) {
	if b == nil || b.conn == nil {
		return 0, fmt.Errorf("x11 backend connection is nil")
	}

	b.mu.Lock()
	tw, ok := b.windows[label]
	b.mu.Unlock()
	if ok {
		if b.conn.WindowExists(tw.id) {
			return tw.id, nil
		}
		b.mu.Lock()
		delete(b.windows, label)
		b.mu.Unlock()
	}

	if label != PrimaryLabel {
		return 0, ErrWindowNotFound
	}
	b.mu.Lock()
	title, class := b.opts.PrimaryTitle, b.opts.PrimaryClass
	b.mu.Unlock()
	id, err := b.conn.FindWindow(title, class)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWindowNotFound, err)
	}
	b.track(label, trackedWindow{id: id})
	return id, nil
}

func (b *LinuxBackend) track(label Label, tw trackedWindow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[label] = tw
}

func (b *LinuxBackend) spawnView(spec WindowSpec) (*exec.Cmd, error) {
	args := ExpandViewCommand(b.opts.ViewCommand, spec)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = append(os.Environ(), b.opts.Env...)
	cmd.Env = append(cmd.Env, "WINHOST_LABEL="+string(spec.Label))
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start view command %q: %w", args[0], err)
	}
	return cmd, nil
}

// knownClients snapshots the client list so only windows opened after a
// spawn are considered.
func (b *LinuxBackend) knownClients() (map[uint32]bool, error) {
	clients, err := b.conn.Clients()
	if err != nil {
		return nil, err
	}
	known := make(map[uint32]bool, len(clients))
	for _, win := range clients {
		known[uint32(win)] = true
	}
	return known, nil
}

// waitForWindow polls the client list until the spawned view's window
// appears.
func (b *LinuxBackend) waitForWindow(known map[uint32]bool, pid int, spec WindowSpec, timeout time.Duration) (xproto.Window, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		if clients, err := b.conn.Clients(); err == nil {
			candidates := make([]spawnedClient, 0, len(clients))
			for _, win := range clients {
				if known[uint32(win)] {
					continue
				}
				info := b.conn.Describe(win)
				candidates = append(candidates, spawnedClient{
					ID:    uint32(info.ID),
					PID:   info.PID,
					Class: info.Class,
					Title: info.Title,
				})
			}
			if id, ok := matchSpawnedWindow(known, candidates, pid, ViewClass(spec.Label), spec.Title); ok {
				return xproto.Window(id), nil
			}
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("timeout waiting for window %q after %s", spec.Title, timeout)
		}
		<-ticker.C
	}
}

func (b *LinuxBackend) toPhysical(logical float64) int {
	return int(math.Round(logical * b.scaleFactor()))
}

func (b *LinuxBackend) scaleFactor() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts.ScaleFactor
}

// SetScaleFactor changes the logical-to-physical scale used for sizes.
func (b *LinuxBackend) SetScaleFactor(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.ScaleFactor = scale
}

// SetPrimaryMatch changes how the primary window is found. The currently
// tracked primary window is forgotten.
func (b *LinuxBackend) SetPrimaryMatch(title, class string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if title == b.opts.PrimaryTitle && class == b.opts.PrimaryClass {
		return
	}
	b.opts.PrimaryTitle = title
	b.opts.PrimaryClass = class
	delete(b.windows, PrimaryLabel)
}
