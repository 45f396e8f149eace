package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/rs/zerolog"
)

// ErrUnsupportedBackend is returned when the backend has no X11 connection
// to grab keys on.
var ErrUnsupportedBackend = errors.New("hotkeys require an X11 backend")

// toggleTimeout bounds one hotkey-triggered toggle.
const toggleTimeout = 5 * time.Second

// Toggler flips the primary window's visibility.
type Toggler interface {
	TogglePrimaryVisibility(ctx context.Context) (bool, error)
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu      *xgbutil.XUtil
	root    xproto.Window
	toggler Toggler
	log     zerolog.Logger

	mu         sync.Mutex
	registered []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(backend platform.Backend, toggler Toggler, log zerolog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, ErrUnsupportedBackend
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:      xu,
		root:    accessor.RootWindow(),
		toggler: toggler,
		log:     log.With().Str("component", "hotkeys").Logger(),
	}, nil
}

// RegisterToggle registers the hotkey that toggles the primary window.
func (h *Handler) RegisterToggle(keySequence string) error {
	if err := h.RegisterFunc(keySequence, func() {
		ctx, cancel := context.WithTimeout(context.Background(), toggleTimeout)
		defer cancel()
		visible, err := h.toggler.TogglePrimaryVisibility(ctx)
		if err != nil {
			h.log.Error().Err(err).Str("op", "toggle_window").Msg("hotkey toggle failed")
			return
		}
		h.log.Debug().Bool("visible", visible).Msg("hotkey toggled primary window")
	}); err != nil {
		return fmt.Errorf("failed to register toggle hotkey %q: %w", keySequence, err)
	}
	h.log.Info().Str("hotkey", keySequence).Msg("toggle hotkey registered")
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.registered = append(h.registered, keySequence)
	h.mu.Unlock()
	return nil
}

// UnregisterAll releases every key grab on the root window, so a reload can
// register the configured hotkey again.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	keybind.Detach(h.xu, h.root)
	h.registered = nil
}

// Registered returns the registered key sequences.
func (h *Handler) Registered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.registered...)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
