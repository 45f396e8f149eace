package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowOptions describes a top-level window created by this process.
type WindowOptions struct {
	Title       string
	Class       string
	X           int
	Y           int
	Width       int
	Height      int
	Resizable   bool
	Decorated   bool
	AlwaysOnTop bool
}

// CreateWindow creates and maps a top-level window on the root window.
func (c *Connection) CreateWindow(opts WindowOptions) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, opts.X, opts.Y, opts.Width, opts.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff,
		xproto.EventMaskStructureNotify|xproto.EventMaskPropertyChange)
	if err != nil {
		return 0, fmt.Errorf("failed to create window: %w", err)
	}
	id := win.Id

	if err := c.applyWindowOptions(id, opts); err != nil {
		win.Destroy()
		return 0, err
	}

	win.Map()
	return id, nil
}

// ConfigureWindow applies title, decoration, stacking and size hints to an
// existing window (for example one spawned by an external view process).
func (c *Connection) ConfigureWindow(windowID xproto.Window, opts WindowOptions) error {
	if err := c.applyWindowOptions(windowID, opts); err != nil {
		return err
	}
	return c.MoveResizeWindow(windowID, opts.X, opts.Y, opts.Width, opts.Height)
}

func (c *Connection) applyWindowOptions(windowID xproto.Window, opts WindowOptions) error {
	if opts.Title != "" {
		if err := ewmh.WmNameSet(c.XUtil, windowID, opts.Title); err != nil {
			return fmt.Errorf("failed to set window title: %w", err)
		}
		if err := icccm.WmNameSet(c.XUtil, windowID, opts.Title); err != nil {
			return fmt.Errorf("failed to set window title: %w", err)
		}
	}
	if opts.Class != "" {
		if err := icccm.WmClassSet(c.XUtil, windowID, &icccm.WmClass{Instance: opts.Class, Class: opts.Class}); err != nil {
			return fmt.Errorf("failed to set window class: %w", err)
		}
	}

	if !opts.Decorated {
		hints := &motif.Hints{Flags: motif.HintDecorations, Decoration: motif.DecorationNone}
		if err := motif.WmHintsSet(c.XUtil, windowID, hints); err != nil {
			return fmt.Errorf("failed to set decoration hints: %w", err)
		}
	}

	if !opts.Resizable {
		hints := &icccm.NormalHints{
			Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
			MinWidth:  uint(opts.Width),
			MinHeight: uint(opts.Height),
			MaxWidth:  uint(opts.Width),
			MaxHeight: uint(opts.Height),
		}
		if err := icccm.WmNormalHintsSet(c.XUtil, windowID, hints); err != nil {
			return fmt.Errorf("failed to set size hints: %w", err)
		}
	}

	if opts.AlwaysOnTop {
		// Mapped windows take the client message; unmapped ones read the
		// property when they are mapped.
		if err := ewmh.WmStateSet(c.XUtil, windowID, []string{"_NET_WM_STATE_ABOVE"}); err != nil {
			return fmt.Errorf("failed to set above state: %w", err)
		}
		_ = ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateAdd, "_NET_WM_STATE_ABOVE")
	}
	return nil
}

// MapWindow shows a window.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// UnmapWindow hides a window without destroying it.
func (c *Connection) UnmapWindow(windowID xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// DestroyWindow destroys a window created by this connection.
func (c *Connection) DestroyWindow(windowID xproto.Window) error {
	return xproto.DestroyWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// IsViewable reports whether the window is mapped and all its ancestors are.
func (c *Connection) IsViewable(windowID xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false, err
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

// WindowExists reports whether the server still knows about the window.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	if windowID == 0 {
		return false
	}
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// Geometry returns the root-relative position and size of a window.
func (c *Connection) Geometry(windowID xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// ResizeWindow changes a window's size and keeps its position.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	if err := ewmh.ResizeWindow(c.XUtil, windowID, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).Resize(width, height)
	}
	return nil
}

// CloseWindow requests graceful window close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	deleteAtom, err := c.internAtom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	protocolsAtom, err := c.internAtom("WM_PROTOCOLS")
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocolsAtom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteAtom), 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// The client message is built by hand because the xgbutil ewmh helper
// panics on this library version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	activeAtom, err := c.internAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   activeAtom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// SetStringProperty writes a UTF8_STRING property on a window. Clients
// watching the window receive a PropertyNotify event.
func (c *Connection) SetStringProperty(windowID xproto.Window, name string, data []byte) error {
	return xprop.ChangeProp(c.XUtil, windowID, 8, name, "UTF8_STRING", data)
}

// FindWindow searches the EWMH client list for a window whose title
// contains title or whose WM_CLASS matches class (case-insensitive).
// Empty criteria are ignored.
func (c *Connection) FindWindow(title, class string) (xproto.Window, error) {
	if title == "" && class == "" {
		return 0, fmt.Errorf("no window criteria given")
	}
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		if class != "" {
			if wmClass, err := icccm.WmClassGet(c.XUtil, win); err == nil {
				if strings.EqualFold(wmClass.Class, class) || strings.EqualFold(wmClass.Instance, class) {
					return win, nil
				}
			}
		}
		if title != "" && strings.Contains(c.windowTitle(win), title) {
			return win, nil
		}
	}
	return 0, fmt.Errorf("no window found (title %q, class %q)", title, class)
}

// Clients returns the EWMH client list.
func (c *Connection) Clients() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}

// ClientInfo is the identifying metadata of a top-level client.
type ClientInfo struct {
	ID    xproto.Window
	PID   int
	Class string
	Title string
}

// Describe reads _NET_WM_PID, WM_CLASS and the title of a client. Missing
// properties are left zero.
func (c *Connection) Describe(windowID xproto.Window) ClientInfo {
	info := ClientInfo{ID: windowID, Title: c.windowTitle(windowID)}
	if pid, err := ewmh.WmPidGet(c.XUtil, windowID); err == nil {
		info.PID = int(pid)
	}
	if wmClass, err := icccm.WmClassGet(c.XUtil, windowID); err == nil && wmClass != nil {
		info.Class = wmClass.Class
	}
	return info
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && strings.TrimSpace(title) != "" {
		return title
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return title
	}
	return ""
}

func (c *Connection) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}
