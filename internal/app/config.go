package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/starmirror/internal/config"
	"github.com/vk/starmirror/internal/transport"
	"github.com/vk/starmirror/internal/viewfilter"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Device config.Device
	UI     config.UI

	LogFormat       string
	LogLevel        string
	LogFile         string
	HealthcheckPort int

	// Interactive shows the terminal viewer.
	Interactive bool
	// Snapshot prints the surface as a table when the run ends.
	Snapshot bool
	// Duration ends the run after the given time; zero runs until cancelled.
	Duration time.Duration
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Device.URL == "" {
		return nil, errors.New("device URL is a required configuration field and cannot be empty")
	}
	switch cfg.Device.Transport {
	case "":
		cfg.Device.Transport = transport.KindWebSocket
	case transport.KindWebSocket, transport.KindSocketIO:
	default:
		return nil, fmt.Errorf("invalid transport %q: must be %q or %q", cfg.Device.Transport, transport.KindWebSocket, transport.KindSocketIO)
	}
	if cfg.UI.DefaultView != "" {
		view, ok := viewfilter.NormalizeView(cfg.UI.DefaultView)
		if !ok {
			return nil, fmt.Errorf("invalid default view %q", cfg.UI.DefaultView)
		}
		cfg.UI.DefaultView = view
	}
	if cfg.Duration < 0 {
		return nil, errors.New("duration cannot be negative")
	}
	return &cfg, nil
}
