package platform

import (
	"errors"
	"math"
	"testing"
)

func TestMemoryBackendStartsWithPrimary(t *testing.T) {
	b := NewMemoryBackend()

	if !b.Exists(PrimaryLabel) {
		t.Fatalf("primary window missing")
	}
	if b.Exists(PluginLabel) {
		t.Fatalf("plugin window should not exist yet")
	}
	if got := b.Focused(); got != PrimaryLabel {
		t.Fatalf("Focused() = %q, want %q", got, PrimaryLabel)
	}
}

func TestMemoryBackendCreateRejectsDuplicates(t *testing.T) {
	b := NewMemoryBackend()
	spec := WindowSpec{Label: PluginLabel, Title: "Calculator", Width: 600, Height: 500}

	if err := b.Create(spec); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := b.Create(spec); err == nil {
		t.Fatalf("second Create() should fail")
	}
	if got := b.DuplicateCreates(); got != 1 {
		t.Fatalf("DuplicateCreates() = %d, want 1", got)
	}
	if got := b.CreateCount(PluginLabel); got != 1 {
		t.Fatalf("CreateCount() = %d, want 1", got)
	}
}

func TestMemoryBackendSizeRoundTripsThroughScale(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		size  LogicalSize
	}{
		{name: "unscaled", scale: 1, size: LogicalSize{Width: 800, Height: 600}},
		{name: "hidpi", scale: 2, size: LogicalSize{Width: 800, Height: 600}},
		{name: "fractional", scale: 1.25, size: LogicalSize{Width: 801.5, Height: 600.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewMemoryBackend()
			b.SetScaleFactor(tt.scale)
			if err := b.SetSize(PrimaryLabel, tt.size); err != nil {
				t.Fatalf("SetSize() unexpected error: %v", err)
			}
			got, err := b.Size(PrimaryLabel)
			if err != nil {
				t.Fatalf("Size() unexpected error: %v", err)
			}
			// One physical pixel of rounding is allowed.
			eps := 1 / tt.scale
			if math.Abs(got.Width-tt.size.Width) > eps || math.Abs(got.Height-tt.size.Height) > eps {
				t.Fatalf("Size() = %+v, want %+v", got, tt.size)
			}
		})
	}
}

func TestMemoryBackendContentReadiness(t *testing.T) {
	b := NewMemoryBackend()
	b.SetContentReadyAfter(PluginLabel, 1)
	if err := b.Create(WindowSpec{Label: PluginLabel, Title: "x"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := b.Emit(PluginLabel, PluginDataEvent, map[string]int{"n": i}); err != nil {
			t.Fatalf("Emit() unexpected error: %v", err)
		}
	}

	if got := b.Dropped(PluginLabel); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
	ev, ok := b.LastReceived(PluginLabel)
	if !ok || string(ev.Payload) != `{"n":1}` {
		t.Fatalf("LastReceived() = %s, %v", ev.Payload, ok)
	}
}

func TestMemoryBackendRefusesUnreadyContent(t *testing.T) {
	b := NewMemoryBackend()
	b.SetRefuseUnready(true)
	b.SetContentReadyAfter(PluginLabel, -1)
	if err := b.Create(WindowSpec{Label: PluginLabel}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	err := b.Emit(PluginLabel, PluginDataEvent, "x")
	if !errors.Is(err, ErrContentNotReady) {
		t.Fatalf("Emit() error = %v, want ErrContentNotReady", err)
	}

	if err := b.MarkContentReady(PluginLabel); err != nil {
		t.Fatalf("MarkContentReady() unexpected error: %v", err)
	}
	if err := b.Emit(PluginLabel, PluginDataEvent, "x"); err != nil {
		t.Fatalf("Emit() after ready unexpected error: %v", err)
	}
}

func TestMemoryBackendFailNext(t *testing.T) {
	b := NewMemoryBackend()
	boom := errors.New("boom")
	b.FailNext("hide", boom)

	err := b.Hide(PrimaryLabel)
	var te *ToolkitError
	if !errors.As(err, &te) || te.Op != "hide" || te.Window != PrimaryLabel {
		t.Fatalf("Hide() error = %v, want ToolkitError for hide main", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Hide() error should wrap injected failure")
	}
	if err := b.Hide(PrimaryLabel); err != nil {
		t.Fatalf("failure should only apply once: %v", err)
	}
}

func TestMemoryBackendMissingWindow(t *testing.T) {
	b := NewMemoryBackend()

	if err := b.Focus(PluginLabel); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("Focus() error = %v, want ErrWindowNotFound", err)
	}
	if _, err := b.IsVisible(PluginLabel); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("IsVisible() error = %v, want ErrWindowNotFound", err)
	}
}

func TestToolkitErrorIsNotDoubleWrapped(t *testing.T) {
	inner := wrapErr("emit", PluginLabel, ErrContentNotReady)
	outer := wrapErr("show", PluginLabel, inner)

	var te *ToolkitError
	if !errors.As(outer, &te) || te.Op != "emit" {
		t.Fatalf("wrapErr() = %v, want original emit error", outer)
	}
	if wrapErr("show", PluginLabel, nil) != nil {
		t.Fatalf("wrapErr(nil) should be nil")
	}
}

func TestExpandViewCommand(t *testing.T) {
	spec := WindowSpec{Label: PluginLabel, Title: "Calculator", URL: "plugin.html"}
	got := ExpandViewCommand([]string{"webview", "--title={title}", "--class={class}", "{url}#{label}"}, spec)
	want := []string{"webview", "--title=Calculator", "--class=winhost-plugin-window", "plugin.html#plugin-window"}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExpandViewCommand()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
