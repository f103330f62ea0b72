package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/marquee/internal/appconfig"
	"pkt.systems/marquee/internal/music"
	"pkt.systems/pslog"
)

func newLogoutCmd() *cobra.Command {
	var cfgPath string
	var clearBrowser bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored music service login",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := forgetRefreshToken(cfg, logger); err != nil {
				return err
			}
			logger.Info("logout credentials cleared", "dir", cfg.Credentials.Dir)
			if !clearBrowser {
				return nil
			}
			browser, err := newPopupBrowser(cfg, cmd.ErrOrStderr(), logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := browser.ClearStorage(ctx, cfg.Music.AuthOrigin); err != nil {
				return err
			}
			logger.Info("logout browser storage cleared", "origin", cfg.Music.AuthOrigin)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&clearBrowser, "clear-browser", false, "also clear cookies and site data for the login origin")
	return cmd
}

func forgetRefreshToken(cfg appconfig.Config, logger pslog.Logger) error {
	store, err := openCredentials(cfg, logger)
	if err != nil {
		return err
	}
	store.Set(music.KeyRefreshToken, "")
	return store.Persist(music.NamespaceUser)
}
