package popup

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/marquee/internal/music"
	"pkt.systems/pslog"
)

var (
	_ music.PopupBrowser = (*Chrome)(nil)
	_ music.Popup        = (*chromePopup)(nil)
)

// ChromeConfig configures the Chrome popup browser.
type ChromeConfig struct {
	// ExecPath overrides the Chrome binary; empty lets chromedp search.
	ExecPath string
	// UserDataDir holds the login profile so cookies survive restarts.
	UserDataDir string
	Headless    bool
	Logger      pslog.Logger
}

// Chrome opens login popups as Chrome app windows driven over the DevTools
// protocol.
type Chrome struct {
	cfg ChromeConfig
	log pslog.Logger

	mu      sync.Mutex
	current *chromePopup
}

// NewChrome returns a Chrome popup browser.
func NewChrome(cfg ChromeConfig) *Chrome {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Chrome{cfg: cfg, log: logger.With("popup", "chrome")}
}

// FindChrome resolves the Chrome binary the popup browser would launch.
func FindChrome(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return exec.LookPath(path)
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome", "headless-shell"} {
		if found, err := exec.LookPath(name); err == nil {
			return found, nil
		}
	}
	return "", errors.New("chrome not found in PATH")
}

func (c *Chrome) allocatorOptions(width, height int) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", c.cfg.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", false),
	)
	if width > 0 && height > 0 {
		opts = append(opts, chromedp.WindowSize(width, height))
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.cfg.UserDataDir))
	}
	return opts
}

// Open launches a Chrome window. ctx bounds the launch only.
func (c *Chrome) Open(ctx context.Context, opts music.PopupOptions) (music.Popup, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), c.allocatorOptions(opts.Width, opts.Height)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	p := &chromePopup{
		owner:  c,
		ctx:    tabCtx,
		cancel: func() { tabCancel(); allocCancel() },
		log:    c.log,
	}
	if err := runBounded(ctx, tabCtx); err != nil {
		p.cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	p.watch()
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()
	c.log.Info("chrome popup opened", "width", opts.Width, "height", opts.Height)
	return p, nil
}

// ClearStorage removes cookies and site data for origin. It reuses the open
// popup when there is one, since Chrome locks the profile directory.
func (c *Chrome) ClearStorage(ctx context.Context, origin string) error {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p != nil && !p.life.isClosed() {
		return p.run(ctx, clearActions(origin)...)
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), append(c.allocatorOptions(0, 0), chromedp.Headless)...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()
	if err := runBounded(ctx, tabCtx, clearActions(origin)...); err != nil {
		c.log.Warn("chrome storage clear failed", "origin", origin, "err", err)
		return fmt.Errorf("clear storage for %s: %w", origin, err)
	}
	c.log.Info("chrome storage cleared", "origin", origin)
	return nil
}

func (c *Chrome) forget(p *chromePopup) {
	c.mu.Lock()
	if c.current == p {
		c.current = nil
	}
	c.mu.Unlock()
}

func clearActions(origin string) []chromedp.Action {
	return []chromedp.Action{
		storage.ClearDataForOrigin(origin, "all"),
		network.ClearBrowserCookies(),
	}
}

// runBounded runs actions on the chromedp context tab while honouring the
// caller's ctx. The tab context is not derived from ctx because the first
// Run ties the browser lifetime to its context.
func runBounded(ctx, tab context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tab, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type chromePopup struct {
	owner  *Chrome
	ctx    context.Context
	cancel context.CancelFunc
	log    pslog.Logger
	life   lifecycle
	match  oneShot

	interceptOnce sync.Once
	closeOnce     sync.Once
}

// watch marks the popup closed when its tab or browser goes away.
func (p *chromePopup) watch() {
	var targetID target.ID
	if c := chromedp.FromContext(p.ctx); c != nil && c.Target != nil {
		targetID = c.Target.TargetID
	}
	chromedp.ListenBrowser(p.ctx, func(ev any) {
		if ev, ok := ev.(*target.EventTargetDestroyed); ok && ev.TargetID == targetID {
			go p.gone("tab closed")
		}
	})
	go func() {
		<-p.ctx.Done()
		p.gone("browser exited")
	}()
}

func (p *chromePopup) gone(reason string) {
	p.owner.forget(p)
	if p.life.markClosed() {
		p.log.Info("chrome popup closed", "reason", reason)
	}
	p.cancel()
}

func (p *chromePopup) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.life.isClosed() {
		return errors.New("popup is closed")
	}
	return runBounded(ctx, p.ctx, actions...)
}

func (p *chromePopup) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (p *chromePopup) Intercept(pattern string, onMatch func(string)) error {
	if onMatch == nil {
		return errors.New("intercept callback is required")
	}
	p.match.set(pattern, onMatch)
	var err error
	p.interceptOnce.Do(func() {
		chromedp.ListenTarget(p.ctx, func(ev any) {
			if ev, ok := ev.(*fetch.EventRequestPaused); ok {
				go p.handlePaused(ev)
			}
		})
		err = p.run(context.Background(), fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
			URLPattern:   pattern,
			RequestStage: fetch.RequestStageRequest,
		}}))
	})
	if err != nil {
		return fmt.Errorf("enable fetch interception: %w", err)
	}
	return nil
}

func (p *chromePopup) handlePaused(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(p.ctx, c.Target)
	url := ""
	if ev.Request != nil {
		url = ev.Request.URL
	}
	fn := p.match.take(url)
	if fn == nil {
		if err := fetch.ContinueRequest(ev.RequestID).Do(execCtx); err != nil {
			p.log.Debug("chrome continue request failed", "err", err)
		}
		return
	}
	body := base64.StdEncoding.EncodeToString([]byte(callbackPage))
	err := fetch.FulfillRequest(ev.RequestID, 200).
		WithResponseHeaders([]*fetch.HeaderEntry{{Name: "Content-Type", Value: "text/html; charset=utf-8"}}).
		WithBody(body).
		Do(execCtx)
	if err != nil {
		p.log.Debug("chrome fulfill request failed", "err", err)
	}
	p.log.Debug("chrome redirect intercepted")
	fn(url)
}

func (p *chromePopup) Close() error {
	p.closeOnce.Do(func() {
		p.owner.forget(p)
		if err := chromedp.Cancel(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Debug("chrome graceful close failed", "err", err)
		}
		p.cancel()
	})
	if p.life.markClosed() {
		p.log.Info("chrome popup closed", "reason", "programmatic")
	}
	return nil
}

func (p *chromePopup) OnClosed(fn func()) {
	p.life.OnClosed(fn)
}
