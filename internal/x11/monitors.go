package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the monitor.
func (m Monitor) Contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// Center returns the top-left origin that centers a width x height rect on
// the monitor. Rects larger than the monitor are pinned to its origin.
func (m Monitor) Center(width, height int) (int, int) {
	x := m.X + (m.Width-width)/2
	y := m.Y + (m.Height-height)/2
	if x < m.X {
		x = m.X
	}
	if y < m.Y {
		y = m.Y
	}
	return x, y
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTC.
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	return monitors, nil
}

// GetActiveMonitor returns the monitor under the pointer, falling back to
// the monitor holding the active window and then to the first monitor.
// The geometry is clipped to the EWMH work area when one is advertised.
func (c *Connection) GetActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	active := c.monitorForPointer(monitors)
	if active == nil {
		if win, err := ewmh.ActiveWindowGet(c.XUtil); err == nil && win != 0 {
			active = c.monitorForWindow(monitors, win)
		}
	}
	if active == nil {
		active = &monitors[0]
	}

	c.clipToWorkarea(active)
	return active, nil
}

func (c *Connection) clipToWorkarea(mon *Monitor) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return
	}
	idx := 0
	if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) < len(workArea) {
		idx = int(current)
	}
	wa := workArea[idx]

	x1 := max(mon.X, int(wa.X))
	y1 := max(mon.Y, int(wa.Y))
	x2 := min(mon.X+mon.Width, int(wa.X)+int(wa.Width))
	y2 := min(mon.Y+mon.Height, int(wa.Y)+int(wa.Height))
	if x2 > x1 && y2 > y1 {
		mon.X, mon.Y = x1, y1
		mon.Width, mon.Height = x2-x1, y2-y1
	}
}

func (c *Connection) monitorForWindow(monitors []Monitor, windowID xproto.Window) *Monitor {
	x, y, w, h, err := c.Geometry(windowID)
	if err != nil {
		return nil
	}
	for i := range monitors {
		if monitors[i].Contains(x+w/2, y+h/2) {
			return &monitors[i]
		}
	}
	return nil
}

func (c *Connection) monitorForPointer(monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	for i := range monitors {
		if monitors[i].Contains(int(pointer.RootX), int(pointer.RootY)) {
			return &monitors[i]
		}
	}
	return nil
}
