package pluginwin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of the plugin window.
type State int32

const (
	StateAbsent State = iota
	StateCreating
	StateVisible
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCreating:
		return "creating"
	case StateVisible:
		return "visible"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DeliveryMode selects how a payload reaches a freshly created window.
type DeliveryMode string

const (
	// ModeHandshake waits for the content's ready signal and delivers once,
	// falling back to the retry schedule after ReadyTimeout.
	ModeHandshake DeliveryMode = "handshake"
	// ModeRetry runs the fixed retry schedule only.
	ModeRetry DeliveryMode = "retry"
)

const (
	DefaultWidth        = 600
	DefaultHeight       = 500
	DefaultViewURL      = "plugin.html"
	DefaultAttempts     = 3
	DefaultDelay        = 300 * time.Millisecond
	DefaultReadyTimeout = 2 * time.Second
)

// Options controls how the plugin window is presented and fed.
type Options struct {
	Width       float64
	Height      float64
	Resizable   bool
	Decorated   bool
	AlwaysOnTop bool
	Center      bool
	ViewURL     string

	Mode         DeliveryMode
	Attempts     int
	Delay        time.Duration
	ReadyTimeout time.Duration
}

// DefaultOptions returns the standard plugin window presentation.
func DefaultOptions() Options {
	return Options{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Resizable:    true,
		Decorated:    true,
		AlwaysOnTop:  true,
		Center:       true,
		ViewURL:      DefaultViewURL,
		Mode:         ModeHandshake,
		Attempts:     DefaultAttempts,
		Delay:        DefaultDelay,
		ReadyTimeout: DefaultReadyTimeout,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.ViewURL == "" {
		o.ViewURL = def.ViewURL
	}
	if o.Mode != ModeRetry {
		o.Mode = ModeHandshake
	}
	if o.Attempts < 1 {
		o.Attempts = def.Attempts
	}
	if o.Delay <= 0 {
		o.Delay = def.Delay
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = def.ReadyTimeout
	}
	return o
}

// readinessMarker is implemented by backends that model content readiness
// themselves and want to hear about the ready signal.
type readinessMarker interface {
	MarkContentReady(label platform.Label) error
}

// Snapshot describes the coordinator for status output.
type Snapshot struct {
	State        string `json:"state"`
	PluginID     string `json:"plugin_id,omitempty"`
	PluginName   string `json:"plugin_name,omitempty"`
	DeliveryID   string `json:"delivery_id,omitempty"`
	Delivering   bool   `json:"delivering"`
	ContentReady bool   `json:"content_ready"`
	Mode         string `json:"mode"`
}

// Coordinator owns the singleton plugin window and the delivery of payloads
// to it. All window mutations happen under mu; the state field is atomic so
// State can be read while a create is in progress.
type Coordinator struct {
	backend platform.Backend
	log     zerolog.Logger

	state atomic.Int32

	mu       sync.Mutex
	opts     Options
	ready    bool
	latest   *Payload
	inflight *delivery

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator with no plugin window.
func NewCoordinator(backend platform.Backend, opts Options, log zerolog.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		backend: backend,
		log:     log.With().Str("component", "pluginwin").Logger(),
		opts:    opts.normalized(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetOptions replaces the options. They apply to the next window and the
// next delivery.
func (c *Coordinator) SetOptions(opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts = opts.normalized()
}

// Options returns the current options.
func (c *Coordinator) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// State returns the current window state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// Snapshot returns the coordinator status.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:        c.State().String(),
		ContentReady: c.ready,
		Mode:         string(c.opts.Mode),
	}
	if c.latest != nil {
		snap.PluginID = c.latest.PluginID
		snap.PluginName = c.latest.PluginName
	}
	if c.inflight != nil && !c.inflight.finished() {
		snap.DeliveryID = c.inflight.id
		snap.Delivering = true
	}
	return snap
}

// DisplayResult shows payload in the plugin window. An existing window is
// focused and receives the payload synchronously. Otherwise a window titled
// after the plugin is created and the payload is delivered in the
// background once its content can receive it.
func (c *Coordinator) DisplayResult(ctx context.Context, payload Payload) error {
	log := c.log.With().
		Str("op", "display_result").
		Str("window", string(platform.PluginLabel)).
		Str("plugin_id", payload.PluginID).
		Logger()
	log.Debug().Str("result", payload.Summary()).Msg("display requested")

	if err := payload.Validate(); err != nil {
		log.Error().Err(err).Msg("display rejected")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	if c.State() == StateVisible {
		return c.reuseLocked(log, payload)
	}

	c.cancelInflightLocked("superseded")
	p := payload
	c.latest = &p
	return c.createLocked(log, p)
}

// reuseLocked hands p to the open window. A failed focus or emit leaves the
// previous payload and its delivery in place; attempts need the lock, so the
// older delivery cannot emit before it is cancelled here.
func (c *Coordinator) reuseLocked(log zerolog.Logger, p Payload) error {
	if err := c.backend.Focus(platform.PluginLabel); err != nil {
		log.Error().Err(err).Msg("focus plugin window failed")
		return fmt.Errorf("failed to focus plugin window: %w", err)
	}

	err := c.backend.Emit(platform.PluginLabel, platform.PluginDataEvent, p)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrContentNotReady) && !c.ready:
		log.Debug().Err(err).Msg("content not ready, delivering in background")
	default:
		log.Error().Err(err).Msg("deliver to plugin window failed")
		return fmt.Errorf("failed to deliver plugin data: %w", err)
	}

	c.cancelInflightLocked("superseded")
	c.latest = &p

	// Until the content has said it is ready, a synchronous emit may have
	// gone nowhere.
	if !c.ready {
		c.startDeliveryLocked(p, false)
	}
	log.Info().Msg("plugin window reused")
	return nil
}

func (c *Coordinator) createLocked(log zerolog.Logger, p Payload) error {
	c.setState(StateCreating)
	c.ready = false

	spec := platform.WindowSpec{
		Label:       platform.PluginLabel,
		Title:       p.PluginName,
		URL:         c.opts.ViewURL,
		Width:       c.opts.Width,
		Height:      c.opts.Height,
		Resizable:   c.opts.Resizable,
		Decorated:   c.opts.Decorated,
		AlwaysOnTop: c.opts.AlwaysOnTop,
		Center:      c.opts.Center,
	}
	if err := c.backend.Create(spec); err != nil {
		c.setState(StateAbsent)
		c.latest = nil
		log.Error().Err(err).Msg("create plugin window failed")
		return fmt.Errorf("failed to create plugin window: %w", err)
	}
	c.setState(StateVisible)

	c.startDeliveryLocked(p, false)
	log.Info().Str("title", p.PluginName).Msg("plugin window created")
	return nil
}

// Dismiss closes the plugin window, if any, and focuses the primary window.
// A missing plugin window or primary window is not an error.
func (c *Coordinator) Dismiss(ctx context.Context) error {
	log := c.log.With().Str("op", "dismiss").Str("window", string(platform.PluginLabel)).Logger()
	log.Debug().Msg("dismiss requested")
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.reconcileLocked()
	c.cancelInflightLocked("dismissed")
	if c.State() == StateVisible {
		if err := c.backend.Close(platform.PluginLabel); err != nil && !errors.Is(err, platform.ErrWindowNotFound) {
			c.mu.Unlock()
			log.Error().Err(err).Msg("close plugin window failed")
			return fmt.Errorf("failed to close plugin window: %w", err)
		}
		log.Info().Msg("plugin window closed")
	} else {
		log.Debug().Msg("no plugin window to close")
	}
	c.setState(StateAbsent)
	c.ready = false
	c.latest = nil
	c.mu.Unlock()

	if !c.backend.Exists(platform.PrimaryLabel) {
		log.Debug().Msg("no primary window to focus")
		return nil
	}
	if err := c.backend.Focus(platform.PrimaryLabel); err != nil {
		if errors.Is(err, platform.ErrWindowNotFound) {
			return nil
		}
		log.Error().Err(err).Msg("focus primary window failed")
		return fmt.Errorf("failed to focus primary window: %w", err)
	}
	return nil
}

// MarkReady records the content's ready signal. An in-flight delivery
// delivers immediately; otherwise the latest payload is delivered once if it
// may not have arrived. Repeated signals deliver nothing.
func (c *Coordinator) MarkReady(ctx context.Context) error {
	log := c.log.With().Str("op", "plugin_ready").Str("window", string(platform.PluginLabel)).Logger()
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	if c.State() != StateVisible {
		log.Warn().Msg("ready signal without a plugin window")
		return fmt.Errorf("plugin window: %w", platform.ErrWindowNotFound)
	}
	if m, ok := c.backend.(readinessMarker); ok {
		if err := m.MarkContentReady(platform.PluginLabel); err != nil {
			return err
		}
	}

	wasReady := c.ready
	c.ready = true
	switch {
	case c.inflight != nil && !c.inflight.finished():
		c.inflight.signalReady()
	case !wasReady && c.latest != nil:
		c.startDeliveryLocked(*c.latest, true)
	default:
		log.Debug().Msg("content already ready")
		return nil
	}
	log.Info().Msg("plugin content ready")
	return nil
}

// Reconcile notices a plugin window the toolkit tore down on its own and
// returns the coordinator to StateAbsent. It reports whether anything changed.
func (c *Coordinator) Reconcile() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconcileLocked()
}

func (c *Coordinator) reconcileLocked() bool {
	if c.State() != StateVisible || c.backend.Exists(platform.PluginLabel) {
		return false
	}
	c.cancelInflightLocked("window gone")
	c.setState(StateAbsent)
	c.ready = false
	c.latest = nil
	c.log.Info().Str("op", "reconcile").Str("window", string(platform.PluginLabel)).Msg("plugin window closed externally")
	return true
}

// Wait blocks until no delivery is running.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels all deliveries and waits for them to stop. The plugin
// window itself is left alone.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}
