package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pkt.systems/marquee/internal/appconfig"
	"pkt.systems/marquee/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the display over SSH",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := buildDisplay(ctx, cfg, displayOptions{PopupOut: os.Stderr})
			if err != nil {
				return err
			}
			srv := sshserver.NewServer(toSSHConfig(cfg), d.manager, d.bus, logger)
			if err := runUntil(ctx, d, srv.ListenAndServe); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("serve stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for tray invocations")
	return cmd
}

func toSSHConfig(cfg appconfig.Config) sshserver.Config {
	return sshserver.Config{
		Addr:               cfg.SSH.Addr,
		HostKeyPath:        cfg.SSH.HostKeyPath,
		AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
		IdleTimeout:        time.Duration(cfg.SSH.IdleTimeoutMinutes) * time.Minute,
		Theme:              cfg.ThemeName(),
		DisableAuditTrails: cfg.Logging.DisableAuditTrails,
	}
}

// runUntil runs fn and cancels the display once fn returns.
func runUntil(ctx context.Context, d *display, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.manager.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}
