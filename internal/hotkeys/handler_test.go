package hotkeys

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/winhost/internal/platform"
	"github.com/rs/zerolog"
)

type noopToggler struct{}

func (noopToggler) TogglePrimaryVisibility(context.Context) (bool, error) { return true, nil }

func TestNewHandlerRequiresX11Backend(t *testing.T) {
	_, err := NewHandler(platform.NewMemoryBackend(), noopToggler{}, zerolog.Nop())
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("NewHandler() error = %v, want ErrUnsupportedBackend", err)
	}
}
