package pluginwin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(mode DeliveryMode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.Attempts = 3
	opts.Delay = 5 * time.Millisecond
	opts.ReadyTimeout = 20 * time.Millisecond
	return opts
}

func newTestCoordinator(t *testing.T, opts Options) (*Coordinator, *platform.MemoryBackend) {
	t.Helper()
	backend := platform.NewMemoryBackend()
	c := NewCoordinator(backend, opts, zerolog.Nop())
	t.Cleanup(c.Close)
	return c, backend
}

func testPayload(id, name string) Payload {
	return Payload{
		PluginID:   id,
		PluginName: name,
		Input:      "2+2",
		Result:     json.RawMessage(`{"type":"text","content":"4"}`),
	}
}

func receivedIDs(t *testing.T, backend *platform.MemoryBackend) []string {
	t.Helper()
	var ids []string
	for _, ev := range backend.Received(platform.PluginLabel) {
		require.Equal(t, platform.PluginDataEvent, ev.Name)
		var p Payload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		ids = append(ids, p.PluginID)
	}
	return ids
}

func TestDisplayResultCreatesWindowTitledAfterPlugin(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))

	require.NoError(t, c.DisplayResult(context.Background(), testPayload("calc", "Calculator")))

	assert.Equal(t, 1, backend.CreateCount(platform.PluginLabel))
	assert.Equal(t, StateVisible, c.State())
	title, ok := backend.Title(platform.PluginLabel)
	require.True(t, ok)
	assert.Equal(t, "Calculator", title)

	spec, ok := backend.Spec(platform.PluginLabel)
	require.True(t, ok)
	assert.True(t, spec.Resizable)
	assert.True(t, spec.Decorated)
	assert.True(t, spec.AlwaysOnTop)
	assert.True(t, spec.Center)
	assert.Equal(t, DefaultViewURL, spec.URL)
	assert.Equal(t, platform.PluginLabel, backend.Focused())
}

func TestDisplayResultReusesExistingWindow(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeHandshake))
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("first", "Calculator")))
	require.NoError(t, backend.Focus(platform.PrimaryLabel))
	require.NoError(t, c.DisplayResult(ctx, testPayload("second", "Translate")))
	c.Wait()

	assert.Equal(t, 1, backend.CreateCount(platform.PluginLabel))
	assert.Zero(t, backend.DuplicateCreates())
	assert.Equal(t, platform.PluginLabel, backend.Focused())

	last, ok := backend.LastReceived(platform.PluginLabel)
	require.True(t, ok)
	var got Payload
	require.NoError(t, json.Unmarshal(last.Payload, &got))
	assert.Equal(t, "second", got.PluginID)
}

func TestDeliverySurvivesDroppedAttempts(t *testing.T) {
	for _, mode := range []DeliveryMode{ModeRetry, ModeHandshake} {
		t.Run(string(mode), func(t *testing.T) {
			c, backend := newTestCoordinator(t, fastOptions(mode))
			backend.SetContentReadyAfter(platform.PluginLabel, 2)

			require.NoError(t, c.DisplayResult(context.Background(), testPayload("calc", "Calculator")))
			c.Wait()

			assert.Equal(t, 2, backend.Dropped(platform.PluginLabel))
			assert.Equal(t, []string{"calc"}, receivedIDs(t, backend))
		})
	}
}

func TestDeliveryFailuresDoNotAbortSchedule(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	backend.FailNext("emit", errors.New("bridge unavailable"))

	require.NoError(t, c.DisplayResult(context.Background(), testPayload("calc", "Calculator")))
	c.Wait()

	assert.Equal(t, []string{"calc", "calc"}, receivedIDs(t, backend))
}

func TestHandshakeDeliversExactlyOnce(t *testing.T) {
	opts := fastOptions(ModeHandshake)
	opts.ReadyTimeout = 5 * time.Second
	c, backend := newTestCoordinator(t, opts)
	backend.SetContentReadyAfter(platform.PluginLabel, -1)
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
	assert.True(t, c.Snapshot().Delivering)

	require.NoError(t, c.MarkReady(ctx))
	c.Wait()
	require.NoError(t, c.MarkReady(ctx))
	c.Wait()

	assert.Zero(t, backend.Dropped(platform.PluginLabel))
	assert.Equal(t, []string{"calc"}, receivedIDs(t, backend))
	assert.True(t, c.Snapshot().ContentReady)
}

func TestReadyAfterFallbackRedeliversLatestOnce(t *testing.T) {
	for _, mode := range []DeliveryMode{ModeHandshake, ModeRetry} {
		t.Run(string(mode), func(t *testing.T) {
			c, backend := newTestCoordinator(t, fastOptions(mode))
			backend.SetContentReadyAfter(platform.PluginLabel, -1)
			ctx := context.Background()

			require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
			c.Wait()
			assert.Empty(t, backend.Received(platform.PluginLabel))

			require.NoError(t, c.MarkReady(ctx))
			c.Wait()
			assert.Equal(t, []string{"calc"}, receivedIDs(t, backend))

			require.NoError(t, c.MarkReady(ctx))
			c.Wait()
			assert.Equal(t, []string{"calc"}, receivedIDs(t, backend))
		})
	}
}

func TestNewPayloadCancelsStaleDelivery(t *testing.T) {
	opts := fastOptions(ModeRetry)
	opts.Delay = 50 * time.Millisecond
	c, backend := newTestCoordinator(t, opts)
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("stale", "Calculator")))
	require.NoError(t, c.DisplayResult(ctx, testPayload("fresh", "Calculator")))
	c.Wait()

	ids := receivedIDs(t, backend)
	require.NotEmpty(t, ids)
	assert.NotContains(t, ids, "stale")
	assert.Equal(t, "fresh", ids[len(ids)-1])
}

func TestDismissCancelsDelivery(t *testing.T) {
	opts := fastOptions(ModeRetry)
	opts.Delay = 50 * time.Millisecond
	c, backend := newTestCoordinator(t, opts)
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("old", "Calculator")))
	require.NoError(t, c.Dismiss(ctx))
	require.NoError(t, c.DisplayResult(ctx, testPayload("new", "Calculator")))
	c.Wait()

	assert.Equal(t, 2, backend.CreateCount(platform.PluginLabel))
	assert.NotContains(t, receivedIDs(t, backend), "old")
}

func TestDismissWithoutWindowFocusesPrimary(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	require.NoError(t, backend.Create(platform.WindowSpec{Label: "settings", Title: "Settings"}))
	require.Equal(t, platform.Label("settings"), backend.Focused())

	require.NoError(t, c.Dismiss(context.Background()))

	assert.Equal(t, platform.PrimaryLabel, backend.Focused())
	assert.Equal(t, StateAbsent, c.State())
}

func TestDismissWithoutPrimaryIsNotAnError(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	backend.Destroy(platform.PrimaryLabel)

	assert.NoError(t, c.Dismiss(context.Background()))
}

func TestDismissClosesWindowAndNextDisplayCreatesFresh(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
	require.NoError(t, c.Dismiss(ctx))

	assert.False(t, backend.Exists(platform.PluginLabel))
	assert.Equal(t, platform.PrimaryLabel, backend.Focused())
	visible, err := backend.IsVisible(platform.PrimaryLabel)
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, c.DisplayResult(ctx, testPayload("translate", "Translate")))
	c.Wait()

	assert.Equal(t, 2, backend.CreateCount(platform.PluginLabel))
	title, _ := backend.Title(platform.PluginLabel)
	assert.Equal(t, "Translate", title)
	assert.Equal(t, []string{"translate", "translate", "translate"}, receivedIDs(t, backend))
}

func TestDismissReportsCloseFailure(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))

	boom := errors.New("close refused")
	backend.FailNext("close", boom)
	err := c.Dismiss(ctx)

	require.ErrorIs(t, err, boom)
	var te *platform.ToolkitError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "close", te.Op)
	assert.Equal(t, StateVisible, c.State())
}

func TestDismissReportsPrimaryFocusFailure(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	boom := errors.New("focus refused")
	backend.FailNext("focus", boom)

	assert.ErrorIs(t, c.Dismiss(context.Background()), boom)
}

func TestCreateFailureReturnsToAbsent(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	boom := errors.New("out of resources")
	backend.FailNext("create", boom)

	err := c.DisplayResult(ctx, testPayload("calc", "Calculator"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateAbsent, c.State())
	assert.False(t, backend.Exists(platform.PluginLabel))

	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
	assert.Equal(t, 1, backend.CreateCount(platform.PluginLabel))
}

func TestReuseFocusFailureIsReported(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))

	boom := errors.New("focus refused")
	backend.FailNext("focus", boom)
	assert.ErrorIs(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")), boom)
	assert.Equal(t, StateVisible, c.State())
}

func TestReuseFocusFailureKeepsEarlierDelivery(t *testing.T) {
	opts := fastOptions(ModeRetry)
	opts.Delay = 30 * time.Millisecond
	c, backend := newTestCoordinator(t, opts)
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("first", "Calculator")))
	backend.FailNext("focus", errors.New("focus refused"))
	require.Error(t, c.DisplayResult(ctx, testPayload("second", "Translate")))

	snap := c.Snapshot()
	assert.Equal(t, "first", snap.PluginID)
	assert.True(t, snap.Delivering)

	c.Wait()
	ids := receivedIDs(t, backend)
	require.NotEmpty(t, ids)
	for _, id := range ids {
		assert.Equal(t, "first", id)
	}
}

func TestReuseEmitFailureKeepsLatestPayload(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	require.NoError(t, c.DisplayResult(ctx, testPayload("first", "Calculator")))
	c.Wait()

	backend.FailNext("emit", errors.New("bridge closed"))
	require.Error(t, c.DisplayResult(ctx, testPayload("second", "Translate")))
	assert.Equal(t, "first", c.Snapshot().PluginID)
}

func TestReuseEmitFailureIsReported(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
	c.Wait()

	boom := errors.New("bridge closed")
	backend.FailNext("emit", boom)
	assert.ErrorIs(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")), boom)
	assert.True(t, backend.Exists(platform.PluginLabel))
}

func TestReuseToleratesUnreadyContent(t *testing.T) {
	opts := fastOptions(ModeHandshake)
	c, backend := newTestCoordinator(t, opts)
	backend.SetRefuseUnready(true)
	backend.SetContentReadyAfter(platform.PluginLabel, -1)
	ctx := context.Background()

	require.NoError(t, c.DisplayResult(ctx, testPayload("first", "Calculator")))
	require.NoError(t, c.DisplayResult(ctx, testPayload("second", "Calculator")))
	require.NoError(t, c.MarkReady(ctx))
	c.Wait()

	assert.Equal(t, []string{"second"}, receivedIDs(t, backend))
}

func TestDisplayResultRejectsInvalidPayload(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))

	err := c.DisplayResult(context.Background(), testPayload("calc", "  "))

	require.ErrorIs(t, err, ErrInvalidPayload)
	assert.Zero(t, backend.CreateCount(platform.PluginLabel))
	assert.Equal(t, StateAbsent, c.State())
}

func TestReconcileDetectsExternallyClosedWindow(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()
	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))

	assert.False(t, c.Reconcile())
	backend.Destroy(platform.PluginLabel)
	assert.True(t, c.Reconcile())
	assert.Equal(t, StateAbsent, c.State())

	require.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
	assert.Equal(t, 2, backend.CreateCount(platform.PluginLabel))
}

func TestMarkReadyWithoutWindow(t *testing.T) {
	c, _ := newTestCoordinator(t, fastOptions(ModeHandshake))

	assert.ErrorIs(t, c.MarkReady(context.Background()), platform.ErrWindowNotFound)
}

func TestConcurrentDisplayCreatesSingleWindow(t *testing.T) {
	c, backend := newTestCoordinator(t, fastOptions(ModeRetry))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.DisplayResult(ctx, testPayload("calc", "Calculator")))
		}()
	}
	wg.Wait()
	c.Wait()

	assert.Equal(t, 1, backend.CreateCount(platform.PluginLabel))
	assert.Zero(t, backend.DuplicateCreates())
}

func TestSnapshotReportsPluginAndMode(t *testing.T) {
	c, _ := newTestCoordinator(t, fastOptions(ModeRetry))
	require.NoError(t, c.DisplayResult(context.Background(), testPayload("calc", "Calculator")))

	snap := c.Snapshot()
	assert.Equal(t, "visible", snap.State)
	assert.Equal(t, "calc", snap.PluginID)
	assert.Equal(t, "Calculator", snap.PluginName)
	assert.Equal(t, "retry", snap.Mode)
}

func TestOptionsNormalized(t *testing.T) {
	opts := Options{Mode: "bogus"}.normalized()

	assert.Equal(t, ModeHandshake, opts.Mode)
	assert.Equal(t, DefaultAttempts, opts.Attempts)
	assert.Equal(t, DefaultDelay, opts.Delay)
	assert.Equal(t, float64(DefaultWidth), opts.Width)
	assert.Equal(t, DefaultViewURL, opts.ViewURL)
}
