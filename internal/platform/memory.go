package platform

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// Event is a notification delivered to a window's content.
type Event struct {
	Name    string
	Payload json.RawMessage
}

type memWindow struct {
	spec    WindowSpec
	visible bool
	// Physical pixel size; logical size is derived through the scale factor.
	width  int
	height int

	// Emits remaining before the content starts listening. Negative means
	// the content never becomes ready on its own.
	dropsLeft int
	ready     bool
	dropped   int
	received  []Event
}

// MemoryBackend is an in-process Backend. It keeps window state in memory
// and models web content that only starts listening for events some time
// after its window is created.
type MemoryBackend struct {
	mu sync.Mutex

	scale        float64
	primaryMatch [2]string
	windows      map[Label]*memWindow
	focused  Label
	creates  map[Label]int
	dupes    int
	failures map[string]error

	// Content readiness applied to the next window created per label.
	pendingDrops map[Label]int
	// When set, emitting to unready content returns ErrContentNotReady
	// instead of silently dropping the event.
	refuseUnready bool
}

var (
	_ Backend      = (*MemoryBackend)(nil)
	_ Reconfigurer = (*MemoryBackend)(nil)
)

// NewMemoryBackend returns a backend holding a visible, focused primary
// window of 800x600 logical units.
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		scale:        1,
		windows:      make(map[Label]*memWindow),
		creates:      make(map[Label]int),
		failures:     make(map[string]error),
		pendingDrops: make(map[Label]int),
	}
	b.windows[PrimaryLabel] = &memWindow{
		spec:    WindowSpec{Label: PrimaryLabel, Title: "winhost", Resizable: true, Decorated: true},
		visible: true,
		width:   800,
		height:  600,
		ready:   true,
	}
	b.focused = PrimaryLabel
	return b
}

// SetScaleFactor sets the logical-to-physical scale used for sizes.
func (b *MemoryBackend) SetScaleFactor(scale float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if scale <= 0 {
		scale = 1
	}
	b.scale = scale
}

// ScaleFactor returns the current logical-to-physical scale.
func (b *MemoryBackend) ScaleFactor() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scale
}

// SetPrimaryMatch records the title and class the primary window would be
// looked up by. The in-memory primary window always exists.
func (b *MemoryBackend) SetPrimaryMatch(title, class string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.primaryMatch = [2]string{title, class}
}

// PrimaryMatch returns the values last passed to SetPrimaryMatch.
func (b *MemoryBackend) PrimaryMatch() (title, class string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.primaryMatch[0], b.primaryMatch[1]
}

// SetRefuseUnready makes Emit return ErrContentNotReady for unready content.
func (b *MemoryBackend) SetRefuseUnready(refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuseUnready = refuse
}

// SetContentReadyAfter makes the next window created for label drop the
// first n emitted events. A negative n means the content never becomes
// ready until MarkContentReady is called.
func (b *MemoryBackend) SetContentReadyAfter(label Label, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingDrops[label] = n
}

// MarkContentReady makes an existing window's content start listening.
func (b *MemoryBackend) MarkContentReady(label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[label]
	if !ok {
		return wrapErr("ready", label, ErrWindowNotFound)
	}
	w.ready = true
	return nil
}

// FailNext makes the next call of op ("create", "show", "hide", "visible",
// "resize", "size", "close", "focus", "emit") fail with err.
func (b *MemoryBackend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// Destroy removes a window without going through Close, the way a window
// manager tears down a window the user closed.
func (b *MemoryBackend) Destroy(label Label) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, label)
	if b.focused == label {
		b.focused = ""
	}
}

// CreateCount returns how many windows were created for label.
func (b *MemoryBackend) CreateCount(label Label) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates[label]
}

// DuplicateCreates counts Create calls for a label that already existed.
func (b *MemoryBackend) DuplicateCreates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dupes
}

// Focused returns the label of the focused window.
func (b *MemoryBackend) Focused() Label {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused
}

// Title returns the title of an existing window.
func (b *MemoryBackend) Title(label Label) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[label]
	if !ok {
		return "", false
	}
	return w.spec.Title, true
}

// Spec returns the WindowSpec an existing window was created with.
func (b *MemoryBackend) Spec(label Label) (WindowSpec, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[label]
	if !ok {
		return WindowSpec{}, false
	}
	return w.spec, true
}

// Received returns the events the window's content has received.
func (b *MemoryBackend) Received(label Label) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[label]
	if !ok {
		return nil
	}
	out := make([]Event, len(w.received))
	copy(out, w.received)
	return out
}

// LastReceived returns the most recent event the content received.
func (b *MemoryBackend) LastReceived(label Label) (Event, bool) {
	events := b.Received(label)
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

// Dropped returns how many events were emitted before the content was ready.
func (b *MemoryBackend) Dropped(label Label) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.windows[label]; ok {
		return w.dropped
	}
	return 0
}

func (b *MemoryBackend) takeFailure(op string) error {
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	return nil
}

func (b *MemoryBackend) lookup(op string, label Label) (*memWindow, error) {
	if err := b.takeFailure(op); err != nil {
		return nil, wrapErr(op, label, err)
	}
	w, ok := b.windows[label]
	if !ok {
		return nil, wrapErr(op, label, ErrWindowNotFound)
	}
	return w, nil
}

func (b *MemoryBackend) Exists(label Label) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.windows[label]
	return ok
}

func (b *MemoryBackend) Create(spec WindowSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure("create"); err != nil {
		return wrapErr("create", spec.Label, err)
	}
	if _, ok := b.windows[spec.Label]; ok {
		b.dupes++
		return wrapErr("create", spec.Label, fmt.Errorf("a window labelled %q already exists", spec.Label))
	}

	drops, ok := b.pendingDrops[spec.Label]
	if ok {
		delete(b.pendingDrops, spec.Label)
	}
	w := &memWindow{
		spec:      spec,
		visible:   true,
		width:     b.toPhysical(spec.Width),
		height:    b.toPhysical(spec.Height),
		dropsLeft: drops,
		ready:     drops == 0,
	}
	b.windows[spec.Label] = w
	b.creates[spec.Label]++
	b.focused = spec.Label
	return nil
}

func (b *MemoryBackend) Show(label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("show", label)
	if err != nil {
		return err
	}
	w.visible = true
	return nil
}

func (b *MemoryBackend) Hide(label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("hide", label)
	if err != nil {
		return err
	}
	w.visible = false
	if b.focused == label {
		b.focused = ""
	}
	return nil
}

func (b *MemoryBackend) IsVisible(label Label) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("visible", label)
	if err != nil {
		return false, err
	}
	return w.visible, nil
}

func (b *MemoryBackend) SetSize(label Label, size LogicalSize) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("resize", label)
	if err != nil {
		return err
	}
	w.width = b.toPhysical(size.Width)
	w.height = b.toPhysical(size.Height)
	return nil
}

func (b *MemoryBackend) Size(label Label) (LogicalSize, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("size", label)
	if err != nil {
		return LogicalSize{}, err
	}
	return LogicalSize{
		Width:  float64(w.width) / b.scale,
		Height: float64(w.height) / b.scale,
	}, nil
}

func (b *MemoryBackend) Close(label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.lookup("close", label); err != nil {
		return err
	}
	delete(b.windows, label)
	if b.focused == label {
		b.focused = ""
	}
	return nil
}

func (b *MemoryBackend) Focus(label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("focus", label)
	if err != nil {
		return err
	}
	w.visible = true
	b.focused = label
	return nil
}

func (b *MemoryBackend) Emit(label Label, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return wrapErr("emit", label, fmt.Errorf("failed to marshal %s payload: %w", event, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup("emit", label)
	if err != nil {
		return err
	}

	if !w.ready && w.dropsLeft > 0 {
		w.dropsLeft--
		w.dropped++
		if w.dropsLeft == 0 {
			w.ready = true
		}
		return b.unready(label)
	}
	if !w.ready {
		w.dropped++
		return b.unready(label)
	}

	w.received = append(w.received, Event{Name: event, Payload: data})
	return nil
}

func (b *MemoryBackend) unready(label Label) error {
	if b.refuseUnready {
		return wrapErr("emit", label, ErrContentNotReady)
	}
	return nil
}

func (b *MemoryBackend) toPhysical(logical float64) int {
	return int(math.Round(logical * b.scale))
}
