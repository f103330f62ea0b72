package popup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"

	"pkt.systems/marquee/internal/music"
	"pkt.systems/pslog"
)

const callbackPage = `<!doctype html><html><head><title>marquee</title></head><body><p>Login received. You can close this window.</p></body></html>`

var (
	_ music.PopupBrowser = (*Loopback)(nil)
	_ music.Popup        = (*loopbackPopup)(nil)
)

// LoopbackConfig configures the loopback login flow.
type LoopbackConfig struct {
	// RedirectURI is served locally; its host and port are the listen
	// address.
	RedirectURI string
	// Out receives the login URL and its QR code. Defaults to stderr.
	Out    io.Writer
	Logger pslog.Logger
}

// Loopback is a PopupBrowser for headless hosts. Instead of opening a
// window it prints the login URL and serves the redirect URI itself, so the
// user can finish the login in any browser that reaches this machine.
type Loopback struct {
	cfg LoopbackConfig
	log pslog.Logger
}

// NewLoopback returns a loopback browser.
func NewLoopback(cfg LoopbackConfig) (*Loopback, error) {
	if _, err := listenAddr(cfg.RedirectURI); err != nil {
		return nil, err
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Loopback{cfg: cfg, log: logger.With("popup", "loopback")}, nil
}

// Open starts the redirect listener.
func (b *Loopback) Open(ctx context.Context, opts music.PopupOptions) (music.Popup, error) {
	addr, err := listenAddr(b.cfg.RedirectURI)
	if err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	p := &loopbackPopup{
		title: opts.Title,
		out:   b.cfg.Out,
		log:   b.log.With("addr", ln.Addr().String()),
	}
	p.srv = &http.Server{
		Handler:           http.HandlerFunc(p.serveHTTP),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := p.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Warn("loopback serve failed", "err", err)
		}
		p.life.markClosed()
	}()
	p.log.Info("loopback listener ready")
	return p, nil
}

// ClearStorage is a no-op: the loopback flow keeps no browser state.
func (b *Loopback) ClearStorage(ctx context.Context, origin string) error {
	b.log.Debug("loopback storage clear skipped", "origin", origin)
	return nil
}

type loopbackPopup struct {
	title string
	out   io.Writer
	log   pslog.Logger
	srv   *http.Server
	life  lifecycle
	match oneShot

	closeOnce sync.Once
	closeErr  error
}

func (p *loopbackPopup) serveHTTP(w http.ResponseWriter, r *http.Request) {
	full := requestURL(r)
	fn := p.match.take(full)
	if fn == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, callbackPage)
	go fn(full)
}

func (p *loopbackPopup) Navigate(ctx context.Context, target string) error {
	if p.life.isClosed() {
		return errors.New("popup is closed")
	}
	if p.title != "" {
		_, _ = fmt.Fprintln(p.out, p.title)
	}
	_, _ = fmt.Fprintf(p.out, "open this url to continue:\n%s\n", target)
	qrterminal.GenerateHalfBlock(target, qrterminal.L, p.out)
	return nil
}

func (p *loopbackPopup) Intercept(pattern string, onMatch func(string)) error {
	if onMatch == nil {
		return errors.New("intercept callback is required")
	}
	p.match.set(pattern, onMatch)
	return nil
}

func (p *loopbackPopup) Close() error {
	p.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.closeErr = p.srv.Shutdown(ctx)
		p.log.Debug("loopback listener closed")
	})
	p.life.markClosed()
	return p.closeErr
}

func (p *loopbackPopup) OnClosed(fn func()) {
	p.life.OnClosed(fn)
}

func requestURL(r *http.Request) string {
	u := url.URL{
		Scheme:   "http",
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}

// listenAddr derives host:port from a redirect URI.
func listenAddr(redirect string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("loopback redirect uri must use http, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.New("loopback redirect uri has no host")
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(host, port), nil
}
