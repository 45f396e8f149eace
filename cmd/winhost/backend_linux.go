//go:build linux

package main

import (
	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/runtimepath"
)

func openDisplayBackend(cfg *config.Config) (displayBackend, error) {
	var env []string
	if socket, err := runtimepath.SocketPath(); err == nil {
		env = append(env, runtimepath.SocketEnv+"="+socket)
	}
	b, err := platform.NewLinuxBackendFromDisplay(platform.LinuxOptions{
		Display:      cfg.Display,
		PrimaryTitle: cfg.PrimaryWindow.Title,
		PrimaryClass: cfg.PrimaryWindow.Class,
		ViewCommand:  cfg.PluginWindow.Command,
		SpawnTimeout: cfg.SpawnTimeout(),
		ScaleFactor:  cfg.ScaleFactor,
		Env:          env,
	})
	if err != nil {
		return displayBackend{}, err
	}
	return displayBackend{
		Backend: b,
		run:     b.EventLoop,
		stop: func() {
			b.StopEventLoop()
			b.Disconnect()
		},
	}, nil
}
