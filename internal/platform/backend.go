package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Label is the well-known identifier a window is addressed by.
type Label string

const (
	// PrimaryLabel identifies the launcher's own window.
	PrimaryLabel Label = "main"
	// PluginLabel identifies the singleton plugin result window.
	PluginLabel Label = "plugin-window"
)

// PluginDataEvent is the event name used to push a plugin result to the
// plugin window's content.
const PluginDataEvent = "plugin-data"

var (
	// ErrWindowNotFound is returned when the addressed window does not exist.
	ErrWindowNotFound = errors.New("window not found")
	// ErrContentNotReady is returned by backends that can observe that a
	// window's content is not yet listening for events.
	ErrContentNotReady = errors.New("window content not ready")
)

// LogicalSize is a window size in logical (scale-independent) units.
type LogicalSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WindowSpec describes a window to create.
type WindowSpec struct {
	Label       Label
	Title       string
	URL         string
	Width       float64
	Height      float64
	Resizable   bool
	Decorated   bool
	AlwaysOnTop bool
	Center      bool
}

// ToolkitError wraps a failed windowing operation.
type ToolkitError struct {
	Op     string
	Window Label
	Err    error
}

func (e *ToolkitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Window, e.Err)
}

func (e *ToolkitError) Unwrap() error {
	return e.Err
}

// wrapErr returns nil for a nil err, otherwise a *ToolkitError.
func wrapErr(op string, label Label, err error) error {
	if err == nil {
		return nil
	}
	var te *ToolkitError
	if errors.As(err, &te) {
		return err
	}
	return &ToolkitError{Op: op, Window: label, Err: err}
}

// Backend abstracts window-system operations across toolkits.
type Backend interface {
	Exists(label Label) bool
	Create(spec WindowSpec) error
	Show(label Label) error
	Hide(label Label) error
	IsVisible(label Label) (bool, error)
	SetSize(label Label, size LogicalSize) error
	Size(label Label) (LogicalSize, error)
	Close(label Label) error
	Focus(label Label) error
	Emit(label Label, event string, payload any) error
}

// Reconfigurer is implemented by backends whose display settings can change
// while the daemon runs.
type Reconfigurer interface {
	SetScaleFactor(scale float64)
	SetPrimaryMatch(title, class string)
}

// ViewClass is the WM_CLASS a view process should set for the window it
// renders for label.
func ViewClass(label Label) string {
	return "winhost-" + string(label)
}

// ExpandViewCommand substitutes {title}, {url}, {label} and {class} in each
// argument.
func ExpandViewCommand(command []string, spec WindowSpec) []string {
	r := strings.NewReplacer(
		"{title}", spec.Title,
		"{url}", spec.URL,
		"{label}", string(spec.Label),
		"{class}", ViewClass(spec.Label),
	)
	out := make([]string, len(command))
	for i, arg := range command {
		out[i] = r.Replace(arg)
	}
	return out
}
