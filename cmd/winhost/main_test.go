package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/daemon"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/runtimepath"
)

func startTestDaemon(t *testing.T) *platform.MemoryBackend {
	t.Helper()
	dir, err := os.MkdirTemp("", "winhostcli")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	socketPath := filepath.Join(dir, "cli.sock")
	t.Setenv(runtimepath.SocketEnv, socketPath)

	cfg := config.DefaultConfig()
	cfg.Delivery.Mode = config.DeliveryModeRetry
	cfg.Delivery.DelayMS = 1
	backend := platform.NewMemoryBackend()
	d := daemon.New(cfg, backend, daemon.Options{SocketPath: socketPath, Logger: zerolog.Nop()})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return backend
}

func TestRunWindowCommands(t *testing.T) {
	backend := startTestDaemon(t)

	if rc := runWindow([]string{"hide"}); rc != 0 {
		t.Fatalf("window hide rc=%d, want 0", rc)
	}
	if visible, _ := backend.IsVisible(platform.PrimaryLabel); visible {
		t.Fatalf("primary window still visible after hide")
	}
	if rc := runWindow([]string{"toggle"}); rc != 0 {
		t.Fatalf("window toggle rc=%d, want 0", rc)
	}
	if visible, _ := backend.IsVisible(platform.PrimaryLabel); !visible {
		t.Fatalf("primary window hidden after toggle")
	}
	if rc := runWindow([]string{"resize", "1024", "640"}); rc != 0 {
		t.Fatalf("window resize rc=%d, want 0", rc)
	}
	size, err := backend.Size(platform.PrimaryLabel)
	if err != nil || size.Width != 1024 || size.Height != 640 {
		t.Fatalf("size=%+v err=%v, want 1024x640", size, err)
	}
}

func TestRunWindowRejectsBadArguments(t *testing.T) {
	startTestDaemon(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing height", []string{"resize", "800"}, 2},
		{"not a number", []string{"resize", "wide", "600"}, 2},
		{"negative size", []string{"resize", "-1", "600"}, 1},
		{"unknown", []string{"maximize"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := runWindow(tt.args); rc != tt.want {
				t.Fatalf("runWindow(%v) rc=%d, want %d", tt.args, rc, tt.want)
			}
		})
	}
}

func TestRunPluginShowAndClose(t *testing.T) {
	backend := startTestDaemon(t)

	stdin := strings.NewReader(`{"type":"text","content":"4"}` + "\n")
	rc := runPlugin([]string{"show", "--id", "calc", "--name", "Calculator", "--input", "2+2", "--result", "-"}, stdin)
	if rc != 0 {
		t.Fatalf("plugin show rc=%d, want 0", rc)
	}
	if title, ok := backend.Title(platform.PluginLabel); !ok || title != "Calculator" {
		t.Fatalf("plugin window title=%q ok=%v", title, ok)
	}

	if rc := runPlugin([]string{"close"}, nil); rc != 0 {
		t.Fatalf("plugin close rc=%d, want 0", rc)
	}
	if backend.Exists(platform.PluginLabel) {
		t.Fatalf("plugin window still exists after close")
	}
}

func TestParsePluginShowValidates(t *testing.T) {
	if _, rc := parsePluginShow([]string{"--id", "calc"}, nil); rc != 2 {
		t.Fatalf("missing name rc=%d, want 2", rc)
	}
	if _, rc := parsePluginShow([]string{"--name", "Calc", "--result", "{broken"}, nil); rc != 2 {
		t.Fatalf("broken result rc=%d, want 2", rc)
	}
	p, rc := parsePluginShow([]string{"--name", "Calc", "--result", `{"type":"list","content":[]}`}, nil)
	if rc != -1 || p.PluginName != "Calc" {
		t.Fatalf("valid payload rc=%d payload=%+v", rc, p)
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceDefault}, "default"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRunConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("delivery:\n  mode: retry\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("delivery:\n  mode: sometimes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if rc := runConfig([]string{"validate", "--path", good}); rc != 0 {
		t.Fatalf("validate good rc=%d, want 0", rc)
	}
	if rc := runConfig([]string{"validate", "--path", bad}); rc != 1 {
		t.Fatalf("validate bad rc=%d, want 1", rc)
	}
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winhost", "config.yaml")

	if rc := runConfig([]string{"init", "--path", path}); rc != 0 {
		t.Fatalf("config init rc = %d, want 0", rc)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Fatalf("written config does not validate (rc %d)", rc)
	}
	if rc := runConfig([]string{"init", "--path", path}); rc != 1 {
		t.Fatalf("config init over existing file rc = %d, want 1", rc)
	}
	if rc := runConfig([]string{"init", "--path", path, "--force"}); rc != 0 {
		t.Fatalf("config init --force rc = %d, want 0", rc)
	}
}
