//go:build !linux

package main

import (
	"errors"

	"github.com/1broseidon/winhost/internal/config"
)

func openDisplayBackend(*config.Config) (displayBackend, error) {
	return displayBackend{}, errors.New("the X11 backend is only available on linux; use --headless")
}
