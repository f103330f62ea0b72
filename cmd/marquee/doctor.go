package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/marquee/internal/appconfig"
	"pkt.systems/marquee/internal/music"
	"pkt.systems/marquee/internal/perf"
	"pkt.systems/marquee/internal/popup"
	"pkt.systems/marquee/internal/version"
	"pkt.systems/marquee/sshserver"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run marquee diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			info := version.Info()
			logger.Info("doctor start", "config", configPath, "version", info.Version, "go", info.GoVersion)

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			logger.Info("doctor config ok", "screens", strings.Join(cfg.Display.Screens, ","), "theme", string(cfg.ThemeName()))

			var failed []error
			check := func(name string, err error) {
				if err != nil {
					logger.Warn("doctor check failed", "check", name, "err", err)
					failed = append(failed, err)
					return
				}
				logger.Info("doctor check ok", "check", name)
			}

			if cfg.UsesScreen(perf.ScreenName) {
				check("perf sampler", samplePerf(cmd.Context()))
			}
			if cfg.UsesScreen(music.ScreenName) {
				check("music client", checkMusicClient(cfg))
				_, err := openCredentials(cfg, logger)
				check("credential store", err)
				check("popup browser", checkPopup(cfg, logger))
			}
			_, err = sshserver.LoadAuthorizedKeys(cfg.SSH.AuthorizedKeysPath)
			check("ssh authorized keys", err)

			if len(failed) > 0 {
				return errors.Join(failed...)
			}
			logger.Info("doctor ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func samplePerf(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := perf.SystemSampler{}.Sample(ctx)
	return err
}

func checkMusicClient(cfg appconfig.Config) error {
	clientCfg := cfg.ClientSettings()
	clientCfg.UserAgent = version.UserAgent()
	_, err := music.NewClient(clientCfg)
	return err
}

func checkPopup(cfg appconfig.Config, logger pslog.Logger) error {
	if cfg.Popup.Mode == appconfig.PopupModeChrome {
		path, err := popup.FindChrome(cfg.Popup.ChromePath)
		if err != nil {
			return err
		}
		logger.Info("doctor chrome found", "path", path)
		return nil
	}
	_, err := newPopupBrowser(cfg, nil, logger)
	return err
}
