package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/1broseidon/winhost/internal/commands"
	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/hotkeys"
	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/logging"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/pluginwin"
)

// Options configures a Daemon.
type Options struct {
	// ConfigPath is reloaded on RELOAD, SIGHUP and file changes. Empty
	// disables reloading from disk.
	ConfigPath string
	// SocketPath overrides the runtime IPC socket path.
	SocketPath string
	// Watch enables fsnotify-based config reloading.
	Watch  bool
	Logger zerolog.Logger
	// LogLevel, when set, is updated from logging.level on reload.
	LogLevel *logging.LevelVar
}

// Daemon wires the window backend, the plugin window coordinator, the IPC
// server, hotkeys and the reconciler together.
type Daemon struct {
	opts    Options
	log     zerolog.Logger
	backend platform.Backend
	coord   *pluginwin.Coordinator
	handler *commands.Handler

	server     *ipc.Server
	reconciler *Reconciler
	hotkeys    *hotkeys.Handler

	mu  sync.Mutex
	cfg *config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CoordinatorOptions maps the plugin window and delivery config sections.
func CoordinatorOptions(cfg *config.Config) pluginwin.Options {
	return pluginwin.Options{
		Width:        cfg.PluginWindow.Width,
		Height:       cfg.PluginWindow.Height,
		Resizable:    cfg.PluginWindow.Resizable,
		Decorated:    cfg.PluginWindow.Decorated,
		AlwaysOnTop:  cfg.PluginWindow.AlwaysOnTop,
		Center:       cfg.PluginWindow.Center,
		ViewURL:      cfg.PluginWindow.ViewURL,
		Mode:         pluginwin.DeliveryMode(cfg.Delivery.Mode),
		Attempts:     cfg.Delivery.Attempts,
		Delay:        cfg.DeliveryDelay(),
		ReadyTimeout: cfg.ReadyTimeout(),
	}
}

// New creates a daemon around an already connected backend.
func New(cfg *config.Config, backend platform.Backend, opts Options) *Daemon {
	log := opts.Logger.With().Str("component", "daemon").Logger()
	coord := pluginwin.NewCoordinator(backend, CoordinatorOptions(cfg), opts.Logger)
	d := &Daemon{
		opts:    opts,
		log:     log,
		backend: backend,
		coord:   coord,
		handler: commands.NewHandler(backend, coord, opts.Logger),
		cfg:     cfg,
	}
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.ReconcileInterval(),
		Logger:   opts.Logger,
	}, coord)
	return d
}

// Handler returns the command handler.
func (d *Daemon) Handler() *commands.Handler {
	return d.handler
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Start starts the IPC server, hotkeys, reconciler and config watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.opts.SocketPath != "" {
		d.server = ipc.NewServerAt(d.opts.SocketPath, d.handler, d.Reload, d.opts.Logger)
	} else {
		srv, err := ipc.NewServer(d.handler, d.Reload, d.opts.Logger)
		if err != nil {
			return err
		}
		d.server = srv
	}
	if err := d.server.Start(); err != nil {
		return err
	}

	d.setupHotkeys(d.Config())

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.reconciler.ReconcileNow()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.reconciler.Run(ctx)
	}()

	if d.opts.Watch && d.opts.ConfigPath != "" {
		d.startWatcher(ctx)
	}

	d.log.Info().Str("socket", d.server.SocketPath()).Msg("daemon started")
	return nil
}

func (d *Daemon) setupHotkeys(cfg *config.Config) {
	if d.hotkeys == nil {
		h, err := hotkeys.NewHandler(d.backend, d.handler, d.opts.Logger)
		if err != nil {
			if errors.Is(err, hotkeys.ErrUnsupportedBackend) {
				d.log.Debug().Msg("hotkeys unavailable on this backend")
			} else {
				d.log.Warn().Err(err).Msg("failed to set up hotkeys")
			}
			return
		}
		d.hotkeys = h
	}
	d.hotkeys.UnregisterAll()
	if cfg.PrimaryWindow.ToggleHotkey == "" {
		return
	}
	if err := d.hotkeys.RegisterToggle(cfg.PrimaryWindow.ToggleHotkey); err != nil {
		d.log.Warn().Err(err).Msg("failed to register toggle hotkey")
	}
}

func (d *Daemon) startWatcher(ctx context.Context) {
	files := []string{d.opts.ConfigPath}
	if res, err := config.LoadFromPath(d.opts.ConfigPath); err == nil && len(res.Files) > 0 {
		files = res.Files
	}
	w, err := config.NewWatcher(files)
	if err != nil {
		d.log.Warn().Err(err).Msg("config watching disabled")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer w.Close()
		w.Run(ctx, func() {
			d.log.Info().Msg("config file changed, reloading")
			if err := d.Reload(); err != nil {
				d.log.Error().Err(err).Msg("config reload failed")
			}
		}, func(err error) {
			d.log.Warn().Err(err).Msg("config watcher error")
		})
	}()
}

// Reload reloads the configuration from disk and applies it. An invalid
// config is rejected and the running one kept.
func (d *Daemon) Reload() error {
	if d.opts.ConfigPath == "" {
		return fmt.Errorf("no config path to reload from")
	}
	res, err := config.LoadFromPath(d.opts.ConfigPath)
	if err != nil {
		return err
	}
	d.Apply(res.Config)
	return nil
}

// Apply switches to cfg. Plugin window options apply to the next window,
// the toggle hotkey is re-registered, and the log level, scale factor and
// primary window match take effect at once. The log file, view command and
// reconcile interval are fixed at startup and need a restart.
func (d *Daemon) Apply(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	if d.opts.LogLevel != nil {
		d.opts.LogLevel.Set(logging.ParseLevel(cfg.GetLoggingConfig().Level))
	}
	if r, ok := d.backend.(platform.Reconfigurer); ok {
		r.SetScaleFactor(cfg.ScaleFactor)
		r.SetPrimaryMatch(cfg.PrimaryWindow.Title, cfg.PrimaryWindow.Class)
	}
	d.coord.SetOptions(CoordinatorOptions(cfg))
	if d.hotkeys != nil {
		d.setupHotkeys(cfg)
	}
	d.log.Info().
		Str("mode", cfg.Delivery.Mode).
		Int("attempts", cfg.Delivery.Attempts).
		Msg("configuration applied")
}

// Stop shuts the daemon down. The plugin window is left as it is.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.server != nil {
		d.server.Stop()
	}
	if d.hotkeys != nil {
		d.hotkeys.UnregisterAll()
	}
	d.wg.Wait()
	d.coord.Close()
	d.log.Info().Msg("daemon stopped")
}
