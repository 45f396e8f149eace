// Package logging builds the zerolog logger shared by the daemon and CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options configures New.
type Options struct {
	Level     string
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Console receives human-readable output. Defaults to os.Stderr.
	Console io.Writer
	// LevelVar, when set, gates the logger instead of a fixed level so the
	// level can be changed later. It is initialised from Level.
	LevelVar *LevelVar
}

// LevelVar is a minimum level that can change while loggers built on it
// are in use. It implements zerolog.Hook.
type LevelVar struct {
	v atomic.Int32
}

// Set changes the minimum level.
func (l *LevelVar) Set(level zerolog.Level) {
	l.v.Store(int32(level))
}

// Level returns the minimum level.
func (l *LevelVar) Level() zerolog.Level {
	return zerolog.Level(l.v.Load())
}

// Run drops events below the current level.
func (l *LevelVar) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < l.Level() {
		e.Discard()
	}
}

// ParseLevel converts a config string to a zerolog level. Unknown values
// fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to the console and, when opts.File is set,
// to a size-rotated JSON log file. The returned closer releases the file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(console),
	}

	var out io.Writer = consoleWriter
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file, err := OpenRotatingFile(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out = zerolog.MultiLevelWriter(consoleWriter, file)
		closer = file
	}

	logger := zerolog.New(out).Level(ParseLevel(opts.Level))
	if opts.LevelVar != nil {
		opts.LevelVar.Set(ParseLevel(opts.Level))
		logger = logger.Level(zerolog.TraceLevel).Hook(opts.LevelVar)
	}
	logger = logger.With().Timestamp().Logger()
	return logger, closer, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
