package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tvremote/config"
	"tvremote/internal/application"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	logOut   io.Writer
	registry application.DeviceRegistry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "tvremote",
		Short:         "Network TV remote control",
		Long:          "tvremote sends remote control commands to network TVs over a websocket\ncontrol channel or an HTTP command backend, and can simulate a TV.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			out := cmd.ErrOrStderr()
			if cfg.Log.File != "" {
				f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				out = f
			}

			a.cfg = cfg
			a.logOut = out
			a.logger = setupLogger(cfg.Log, out)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file (.yaml or .toml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json, auto")

	cmd.AddCommand(
		newServeCmd(a),
		newDevicesCmd(a),
		newSendCmd(a),
		newHistoryCmd(a),
		newRemoteCmd(a),
	)

	return cmd
}

// loadConfig falls back to defaults when the default config file is
// missing. An explicitly named file must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logFormat(cfg.Format, w) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// logFormat resolves "auto" to text on a terminal and json elsewhere.
func logFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if isTerminal(w) {
		return "text"
	}
	return "json"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
