package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/pluginwin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct {
	calls atomic.Int32
	panic bool
}

func (c *countingTarget) Reconcile() bool {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
	return false
}

func TestNewReconcilerDefaultsInterval(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{Logger: zerolog.Nop()}, &countingTarget{})
	assert.Equal(t, DefaultReconcileInterval, r.Interval())
}

func TestReconcilerRunsUntilCancelled(t *testing.T) {
	target := &countingTarget{}
	r := NewReconciler(ReconcilerConfig{Interval: time.Millisecond, Logger: zerolog.Nop()}, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestReconcilerRecoversFromPanic(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{Logger: zerolog.Nop()}, &countingTarget{panic: true})
	assert.NotPanics(t, func() {
		assert.False(t, r.ReconcileNow())
	})
}

func TestReconcilerNoticesClosedPluginWindow(t *testing.T) {
	backend := platform.NewMemoryBackend()
	opts := pluginwin.DefaultOptions()
	opts.Delay = time.Millisecond
	opts.ReadyTimeout = time.Millisecond
	coord := pluginwin.NewCoordinator(backend, opts, zerolog.Nop())
	defer coord.Close()

	require.NoError(t, coord.DisplayResult(context.Background(), pluginwin.Payload{PluginName: "Calculator"}))
	r := NewReconciler(ReconcilerConfig{Logger: zerolog.Nop()}, coord)
	assert.False(t, r.ReconcileNow())

	// The user closed the window through the window manager.
	backend.Destroy(platform.PluginLabel)
	assert.True(t, r.ReconcileNow())
	assert.Equal(t, pluginwin.StateAbsent, coord.State())
}
