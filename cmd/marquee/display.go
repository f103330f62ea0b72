package main

import (
	"context"
	"fmt"
	"io"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/internal/appconfig"
	"pkt.systems/marquee/internal/credstore"
	"pkt.systems/marquee/internal/eventbus"
	"pkt.systems/marquee/internal/music"
	"pkt.systems/marquee/internal/perf"
	"pkt.systems/marquee/internal/popup"
	"pkt.systems/marquee/internal/version"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// display is the wired screen manager and the bus its hosts subscribe to.
type display struct {
	manager *core.Manager
	bus     *eventbus.Bus
}

// displayOptions carries what differs between the ssh and local hosts.
type displayOptions struct {
	// PopupOut receives loopback login prompts.
	PopupOut io.Writer
	// Sampler overrides the perf sampler.
	Sampler perf.Sampler
}

func buildDisplay(ctx context.Context, cfg appconfig.Config, opts displayOptions) (*display, error) {
	logger := pslog.Ctx(ctx)
	factories, err := screenFactories(cfg, opts, logger)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(logger)
	manager, err := core.NewManager(factories, core.Args{
		Display: cfg.DisplaySettings(),
		Logger:  logger,
	}, bus)
	if err != nil {
		return nil, err
	}
	bus.Attach(manager)
	logger.Info("display ready", "screens", len(factories), "theme", string(cfg.ThemeName()))
	return &display{manager: manager, bus: bus}, nil
}

func screenFactories(cfg appconfig.Config, opts displayOptions, logger pslog.Logger) ([]core.Factory, error) {
	factories := make([]core.Factory, 0, len(cfg.Display.Screens))
	for _, raw := range cfg.Display.Screens {
		name, err := schema.NormalizeScreenName(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, raw)
		}
		switch name {
		case perf.ScreenName:
			factories = append(factories, perf.NewFactory(opts.Sampler))
		case music.ScreenName:
			deps, err := musicDeps(cfg, opts, logger)
			if err != nil {
				return nil, err
			}
			factories = append(factories, music.NewFactory(deps, cfg.ScreenSettings()))
		default:
			return nil, fmt.Errorf("%w: %q", schema.ErrInvalidScreen, raw)
		}
	}
	if len(factories) == 0 {
		return nil, schema.ErrNoScreens
	}
	return factories, nil
}

func musicDeps(cfg appconfig.Config, opts displayOptions, logger pslog.Logger) (music.Deps, error) {
	clientCfg := cfg.ClientSettings()
	clientCfg.UserAgent = version.UserAgent()
	clientCfg.Logger = logger
	client, err := music.NewClient(clientCfg)
	if err != nil {
		return music.Deps{}, err
	}
	store, err := openCredentials(cfg, logger)
	if err != nil {
		return music.Deps{}, err
	}
	browser, err := newPopupBrowser(cfg, opts.PopupOut, logger)
	if err != nil {
		return music.Deps{}, err
	}
	return music.Deps{API: client, Store: store, Browser: browser}, nil
}

func openCredentials(cfg appconfig.Config, logger pslog.Logger) (*credstore.Store, error) {
	return credstore.Open(credstore.Config{
		Dir:          cfg.Credentials.Dir,
		KeyStorePath: cfg.Credentials.KeyStorePath,
		Namespaces:   []string{music.NamespaceUser},
		Logger:       logger,
	})
}

func newPopupBrowser(cfg appconfig.Config, out io.Writer, logger pslog.Logger) (music.PopupBrowser, error) {
	switch cfg.Popup.Mode {
	case appconfig.PopupModeLoopback:
		return popup.NewLoopback(popup.LoopbackConfig{
			RedirectURI: cfg.Music.RedirectURI,
			Out:         out,
			Logger:      logger,
		})
	case appconfig.PopupModeChrome:
		return popup.NewChrome(popup.ChromeConfig{
			ExecPath:    cfg.Popup.ChromePath,
			UserDataDir: cfg.Popup.UserDataDir,
			Headless:    cfg.Popup.Headless,
			Logger:      logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported popup.mode %q", cfg.Popup.Mode)
	}
}
