package pluginwin

import (
	"context"
	"testing"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCoordinator_PropertyBased_SingleWindow drives random command sequences
// and checks that the plugin window is never duplicated and always matches
// the coordinator state.
func TestCoordinator_PropertyBased_SingleWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		backend := platform.NewMemoryBackend()
		opts := DefaultOptions()
		opts.Mode = DeliveryMode(rapid.SampledFrom([]string{string(ModeHandshake), string(ModeRetry)}).Draw(t, "mode"))
		opts.Attempts = 3
		opts.Delay = time.Millisecond
		opts.ReadyTimeout = time.Millisecond
		c := NewCoordinator(backend, opts, zerolog.Nop())
		defer c.Close()
		ctx := context.Background()

		creates := 0
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.SampledFrom([]string{"display", "dismiss", "ready", "destroy", "reconcile"}).Draw(t, "op") {
			case "display":
				name := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,11}`).Draw(t, "name")
				existed := c.State() == StateVisible && backend.Exists(platform.PluginLabel)
				require.NoError(t, c.DisplayResult(ctx, testPayload("p", name)))
				if !existed {
					creates++
					title, ok := backend.Title(platform.PluginLabel)
					require.True(t, ok)
					assert.Equal(t, name, title)
				}
				assert.Equal(t, platform.PluginLabel, backend.Focused())
			case "dismiss":
				require.NoError(t, c.Dismiss(ctx))
				assert.False(t, backend.Exists(platform.PluginLabel))
				assert.Equal(t, platform.PrimaryLabel, backend.Focused())
			case "ready":
				_ = c.MarkReady(ctx)
			case "destroy":
				backend.Destroy(platform.PluginLabel)
			case "reconcile":
				c.Reconcile()
			}

			assert.Zero(t, backend.DuplicateCreates())
			assert.Equal(t, creates, backend.CreateCount(platform.PluginLabel))
			if c.State() == StateVisible {
				c.Reconcile()
			}
			assert.Equal(t, c.State() == StateVisible, backend.Exists(platform.PluginLabel))
		}
	})
}
