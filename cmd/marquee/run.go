package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/marquee/internal/appconfig"
	"pkt.systems/marquee/internal/tui"
	"pkt.systems/pslog"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var logPath string
	var theme string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Show the display in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if theme != "" {
				cfg.Display.Theme = theme
				if err := appconfig.Validate(cfg); err != nil {
					return err
				}
			}
			if logPath == "" {
				logPath = filepath.Join(cfg.StateDir, "marquee.log")
			}
			logFile, err := openLogFile(logPath)
			if err != nil {
				return err
			}
			defer func() { _ = logFile.Close() }()
			logger := pslog.LoggerFromEnv(
				pslog.WithEnvWriter(logFile),
				pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, NoColor: true}),
			)

			ctx := pslog.ContextWithLogger(cmd.Context(), logger)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
			defer stop()

			d, err := buildDisplay(ctx, cfg, displayOptions{PopupOut: logFile})
			if err != nil {
				return err
			}
			return runUntil(ctx, d, func(ctx context.Context) error {
				return tui.Run(ctx, d.manager, d.bus, tui.Options{Theme: cfg.ThemeName(), Logger: logger})
			})
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&logPath, "log-file", "", "write logs here instead of <state_dir>/marquee.log")
	cmd.Flags().StringVar(&theme, "theme", "", "display theme (amber, green, blue)")
	return cmd
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
