package pluginwin

import (
	"context"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// delivery is one background attempt to get a payload to the plugin
// window's content.
type delivery struct {
	id      string
	payload Payload
	cancel  context.CancelFunc

	// readyAtStart is set when the content was already ready when the
	// delivery began.
	readyAtStart bool
	readyOnce    sync.Once
	ready        chan struct{}
	done         chan struct{}
}

func (d *delivery) signalReady() {
	d.readyOnce.Do(func() { close(d.ready) })
}

func (d *delivery) finished() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// startDeliveryLocked starts a background delivery of p. With readyNow the
// content has already signalled and a single emit is made.
func (c *Coordinator) startDeliveryLocked(p Payload, readyNow bool) {
	ctx, cancel := context.WithCancel(c.ctx)
	d := &delivery{
		id:      uuid.NewString(),
		payload: p,
		cancel:  cancel,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	if readyNow || c.ready {
		d.readyAtStart = true
		d.signalReady()
	}
	c.inflight = d

	opts := c.opts
	log := c.log.With().
		Str("op", "deliver").
		Str("window", string(platform.PluginLabel)).
		Str("plugin_id", p.PluginID).
		Str("delivery_id", d.id).
		Logger()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(d.done)
		defer cancel()
		c.runDelivery(ctx, d, opts, log)
	}()
}

func (c *Coordinator) cancelInflightLocked(reason string) {
	if c.inflight == nil {
		return
	}
	if !c.inflight.finished() {
		c.log.Debug().
			Str("op", "deliver").
			Str("delivery_id", c.inflight.id).
			Str("reason", reason).
			Msg("delivery cancelled")
	}
	c.inflight.cancel()
	c.inflight = nil
}

func (c *Coordinator) runDelivery(ctx context.Context, d *delivery, opts Options, log zerolog.Logger) {
	// Retry mode ignores ready signals that arrive mid-schedule, but a
	// delivery started by one emits once like the handshake.
	ready := d.ready
	if opts.Mode == ModeRetry && !d.readyAtStart {
		ready = nil
	}

	if ready != nil {
		timer := time.NewTimer(opts.ReadyTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-ready:
			timer.Stop()
			if c.attempt(ctx, d, 1, log) {
				log.Info().Msg("payload delivered after ready signal")
				return
			}
			// The signal was seen; the schedule below must not wait on it again.
			ready = nil
		case <-timer.C:
			log.Warn().Dur("timeout", opts.ReadyTimeout).Msg("no ready signal, falling back to retries")
		}
	}

	// Every attempt runs: a dropped event is indistinguishable from a
	// delivered one.
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		timer := time.NewTimer(opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-ready:
			timer.Stop()
			if c.attempt(ctx, d, attempt, log) {
				log.Info().Int("attempt", attempt).Msg("payload delivered after ready signal")
				return
			}
			ready = nil
			continue
		case <-timer.C:
		}
		c.attempt(ctx, d, attempt, log)
	}
	log.Debug().Int("attempts", opts.Attempts).Msg("retry schedule finished")
}

// attempt emits the payload once. It holds the coordinator lock so a
// cancelled delivery can never emit after a newer one has started.
func (c *Coordinator) attempt(ctx context.Context, d *delivery, n int, log zerolog.Logger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	if err := c.backend.Emit(platform.PluginLabel, platform.PluginDataEvent, d.payload); err != nil {
		log.Warn().Err(&DeliveryError{Attempt: n, Err: err}).Int("attempt", n).Msg("delivery attempt failed")
		return false
	}
	log.Debug().Int("attempt", n).Msg("payload emitted")
	return true
}
