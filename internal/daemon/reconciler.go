package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReconcileInterval is used when the configured interval is not
// positive.
const DefaultReconcileInterval = time.Second

// Reconcilable is implemented by components whose recorded state can drift
// from the windowing toolkit. Reconcile reports whether it corrected drift.
type Reconcilable interface {
	Reconcile() bool
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   zerolog.Logger
}

// Reconciler periodically checks for state drift and corrects it.
type Reconciler struct {
	interval time.Duration
	target   Reconcilable
	logger   zerolog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, target Reconcilable) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	return &Reconciler{
		interval: interval,
		target:   target,
		logger:   cfg.Logger.With().Str("component", "reconciler").Logger(),
	}
}

// Interval returns the polling interval.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() (corrected bool) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("reconciler panic recovered")
			corrected = false
		}
	}()

	if r.target.Reconcile() {
		r.logger.Info().Msg("window state drift corrected")
		return true
	}
	return false
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() bool {
	return r.reconcile()
}
