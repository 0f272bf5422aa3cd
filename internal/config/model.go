package config

import (
	"fmt"
	"time"
)

// Defaults applied to attributes left unset.
const (
	DefaultTransport       = "websocket"
	DefaultReconnectDelay  = 1500 * time.Millisecond
	DefaultWatchdogTimeout = 3 * time.Second
	DefaultComputeKey      = "uiCompute"
	DefaultView            = "vApp"
	DefaultTheme           = "dark"
	DefaultStateDir        = "~/.starmirror"
)

// Config is the resolved configuration.
type Config struct {
	Device Device
	UI     UI
}

// Device describes the channel to the device.
type Device struct {
	URL             string
	Transport       string
	ReconnectDelay  time.Duration
	WatchdogTimeout time.Duration
	FileBaseURL     string
	ComputeKey      string
}

// UI holds surface preferences.
type UI struct {
	DefaultView string
	Theme       string
	StateDir    string
}

// Default returns a configuration with every default filled in and no
// device URL.
func Default() *Config {
	return &Config{
		Device: Device{
			Transport:       DefaultTransport,
			ReconnectDelay:  DefaultReconnectDelay,
			WatchdogTimeout: DefaultWatchdogTimeout,
			ComputeKey:      DefaultComputeKey,
		},
		UI: UI{
			DefaultView: DefaultView,
			Theme:       DefaultTheme,
			StateDir:    DefaultStateDir,
		},
	}
}

// deviceBlock and uiBlock mirror the HCL blocks. Every attribute is optional
// so files can be layered.
type deviceBlock struct {
	URL             *string `hcl:"url,optional"`
	Transport       *string `hcl:"transport,optional"`
	ReconnectDelay  *string `hcl:"reconnect_delay,optional"`
	WatchdogTimeout *string `hcl:"watchdog_timeout,optional"`
	FileBaseURL     *string `hcl:"file_base_url,optional"`
	ComputeKey      *string `hcl:"compute_key,optional"`
}

type uiBlock struct {
	DefaultView *string `hcl:"default_view,optional"`
	Theme       *string `hcl:"theme,optional"`
	StateDir    *string `hcl:"state_dir,optional"`
}

func (b *deviceBlock) apply(d *Device) error {
	set(&d.URL, b.URL)
	set(&d.Transport, b.Transport)
	set(&d.FileBaseURL, b.FileBaseURL)
	set(&d.ComputeKey, b.ComputeKey)
	if err := setDuration(&d.ReconnectDelay, b.ReconnectDelay, "reconnect_delay"); err != nil {
		return err
	}
	return setDuration(&d.WatchdogTimeout, b.WatchdogTimeout, "watchdog_timeout")
}

func (b *uiBlock) apply(u *UI) {
	set(&u.DefaultView, b.DefaultView)
	set(&u.Theme, b.Theme)
	set(&u.StateDir, b.StateDir)
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be positive", name, *v)
	}
	*dst = d
	return nil
}
