package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/daemon"
	"github.com/1broseidon/winhost/internal/logging"
	"github.com/1broseidon/winhost/internal/platform"
)

// displayBackend is a connected windowing backend with an event loop.
type displayBackend struct {
	platform.Backend
	run  func()
	stop func()
}

func newLogger(cfg *config.Config, level *logging.LevelVar) (zerolog.Logger, func(), error) {
	logCfg := cfg.GetLoggingConfig()
	logger, closer, err := logging.New(logging.Options{
		Level:     logCfg.Level,
		File:      logCfg.File,
		MaxSizeMB: logCfg.MaxSizeMB,
		MaxFiles:  logCfg.MaxFiles,
		LevelVar:  level,
	})
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	return logger, func() { closer.Close() }, nil
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	headless := fs.Bool("headless", false, "Use the in-memory window backend instead of X11")
	path := fs.String("config", "", "Config file path (default: ~/.config/winhost/config.yaml)")
	noWatch := fs.Bool("no-watch", false, "Do not reload the config when the file changes")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winhost daemon [--headless] [--config PATH] [--no-watch]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfgPath := *path
	if cfgPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve config path: %v\n", err)
			return 1
		}
		cfgPath = p
	}
	res, err := config.LoadFromPath(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	logLevel := &logging.LevelVar{}
	logger, closeLog, err := newLogger(cfg, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return 1
	}
	defer closeLog()

	var backend displayBackend
	if *headless {
		mem := platform.NewMemoryBackend()
		mem.SetScaleFactor(cfg.ScaleFactor)
		backend = displayBackend{Backend: mem}
		logger.Info().Msg("using headless window backend")
	} else {
		backend, err = openDisplayBackend(cfg)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to display")
			return 1
		}
	}
	if backend.stop != nil {
		defer backend.stop()
	}

	d := daemon.New(cfg, backend.Backend, daemon.Options{
		ConfigPath: cfgPath,
		Watch:      !*noWatch,
		Logger:     logger,
		LogLevel:   logLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start daemon")
		return 1
	}
	defer d.Stop()

	if backend.run != nil {
		go backend.run()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			logger.Info().Msg("received SIGHUP, reloading config")
			if err := d.Reload(); err != nil {
				logger.Error().Err(err).Msg("config reload failed")
			}
			continue
		}
		logger.Info().Str("signal", sig.String()).Msg("shutting down winhost daemon")
		break
	}
	return 0
}
