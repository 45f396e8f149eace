package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesConsoleWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("op", "show_window").Msg("window shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "window shown") || !strings.Contains(out, "op=show_window") {
		t.Fatalf("missing info line: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("non-terminal output should not be colored: %q", out)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "winhost.log")
	logger, closer, err := New(Options{Level: "debug", File: path, MaxSizeMB: 1, MaxFiles: 2, Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	logger.Info().Str("plugin_id", "calc").Msg("plugin window created")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["plugin_id"] != "calc" || entry["message"] != "plugin window created" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestRotatingFileRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winhost.log")
	r, err := OpenRotatingFile(path, 1, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile() unexpected error: %v", err)
	}
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 512*1024)
	for i := 0; i < 5; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected at most 2 rotated files, stat .3 err = %v", err)
	}
}

func TestLevelVarChangesLevelOfExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	lv := &LevelVar{}
	logger, closer, err := New(Options{Level: "info", Console: &buf, LevelVar: lv})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer closer.Close()
	child := logger.With().Str("component", "daemon").Logger()

	child.Debug().Msg("first debug")
	if strings.Contains(buf.String(), "first debug") {
		t.Fatalf("debug line should be filtered at info: %q", buf.String())
	}

	lv.Set(zerolog.DebugLevel)
	child.Debug().Msg("second debug")
	if !strings.Contains(buf.String(), "second debug") {
		t.Fatalf("debug line missing after raising verbosity: %q", buf.String())
	}

	lv.Set(zerolog.ErrorLevel)
	child.Info().Msg("quiet info")
	if strings.Contains(buf.String(), "quiet info") {
		t.Fatalf("info line should be filtered at error: %q", buf.String())
	}
}
