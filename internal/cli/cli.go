package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vk/starmirror/internal/app"
	"github.com/vk/starmirror/internal/config"
)

// Version is set at build time.
var Version = "dev"

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "STARMIRROR"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Flag names double as viper keys.
const (
	flagConfig          = "config"
	flagURL             = "url"
	flagTransport       = "transport"
	flagReconnectDelay  = "reconnect-delay"
	flagWatchdogTimeout = "watchdog-timeout"
	flagFileBaseURL     = "file-base-url"
	flagComputeKey      = "compute-key"
	flagView            = "view"
	flagTheme           = "theme"
	flagStateDir        = "state-dir"
	flagLogFormat       = "log-format"
	flagLogLevel        = "log-level"
	flagLogFile         = "log-file"
	flagHealthPort      = "healthcheck-port"
	flagTUI             = "tui"
	flagSnapshot        = "snapshot"
	flagDuration        = "duration"
)

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var parsed *app.Config
	root := newRootCommand(v, output, func(cfg *app.Config) { parsed = cfg })
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if parsed == nil {
		// Help, version or a bare invocation.
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "url", parsed.Device.URL)
	return parsed, false, nil
}

func newRootCommand(v *viper.Viper, output io.Writer, done func(*app.Config)) *cobra.Command {
	root := &cobra.Command{
		Use:   "starmirror",
		Short: "Live mirror of a StarMod device's variable tree.",
		Long: `starmirror connects to a StarMod device, mirrors the variable tree it
announces into a live surface and sends your edits back.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(output)
	root.SetErr(output)
	root.AddCommand(newRunCommand(v, done), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "starmirror %s\n", Version)
		},
	}
}

func newRunCommand(v *viper.Viper, done func(*app.Config)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [URL]",
		Short: "Connect to a device and mirror it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd.Context(), v, args)
			if err != nil {
				return err
			}
			done(cfg)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceP(flagConfig, "c", nil, "HCL config file or directory; may be repeated.")
	f.String(flagURL, "", "Device URL, e.g. ws://starmod.local/ws.")
	f.String(flagTransport, config.DefaultTransport, "Transport: 'websocket' or 'socketio'.")
	f.Duration(flagReconnectDelay, config.DefaultReconnectDelay, "Pause before reconnecting after a channel failure.")
	f.Duration(flagWatchdogTimeout, config.DefaultWatchdogTimeout, "How long the device may stay silent after a send.")
	f.String(flagFileBaseURL, "", "Base URL that file payload names are appended to.")
	f.String(flagComputeKey, config.DefaultComputeKey, "Key of the deferred-compute request.")
	f.String(flagView, config.DefaultView, "Initial view: vApp, vStage, vUser, vSys or vAll.")
	f.String(flagTheme, config.DefaultTheme, "Initial theme.")
	f.String(flagStateDir, config.DefaultStateDir, "Directory persisting the last theme and view.")
	f.String(flagLogFormat, "json", "Log output format. Options: 'text' or 'json'.")
	f.String(flagLogLevel, "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.String(flagLogFile, "", "Append logs to this file instead of standard output.")
	f.Int(flagHealthPort, 0, "Port for the HTTP health check server. 0 is disabled.")
	f.Bool(flagTUI, false, "Show the terminal viewer.")
	f.Bool(flagSnapshot, false, "Print the surface as a table when the run ends.")
	f.Duration(flagDuration, 0, "Stop after this long. 0 runs until interrupted.")
	_ = v.BindPFlags(f)
	return cmd
}

// buildConfig layers the configuration: defaults, then HCL files, then
// environment variables and flags that were explicitly set.
func buildConfig(ctx context.Context, v *viper.Viper, args []string) (*app.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := config.Load(ctx, v.GetStringSlice(flagConfig)...)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	device, ui := file.Device, file.UI
	overrideString(v, flagURL, &device.URL)
	if len(args) > 0 {
		device.URL = args[0]
	}
	overrideString(v, flagTransport, &device.Transport)
	overrideDuration(v, flagReconnectDelay, &device.ReconnectDelay)
	overrideDuration(v, flagWatchdogTimeout, &device.WatchdogTimeout)
	overrideString(v, flagFileBaseURL, &device.FileBaseURL)
	overrideString(v, flagComputeKey, &device.ComputeKey)
	overrideString(v, flagView, &ui.DefaultView)
	overrideString(v, flagTheme, &ui.Theme)
	overrideString(v, flagStateDir, &ui.StateDir)

	logFormat := strings.ToLower(v.GetString(flagLogFormat))
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(v.GetString(flagLogLevel))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		Device:          device,
		UI:              ui,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		LogFile:         v.GetString(flagLogFile),
		HealthcheckPort: v.GetInt(flagHealthPort),
		Interactive:     v.GetBool(flagTUI),
		Snapshot:        v.GetBool(flagSnapshot),
		Duration:        v.GetDuration(flagDuration),
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func overrideDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			*dst = d
		}
	}
}
