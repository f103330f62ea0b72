package music

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// ScreenName is the registered name of the music screen.
const ScreenName schema.ScreenName = "music"

const (
	// DefaultRedirectURI is where the authorization server sends the code.
	DefaultRedirectURI = "http://localhost/spotifyCallback"
	// DefaultLoginTimeout bounds how long a login popup stays open.
	DefaultLoginTimeout = 5 * time.Minute
	// DefaultPopupWidth is the login popup width in pixels.
	DefaultPopupWidth = 500
	// DefaultPopupHeight is the login popup height in pixels.
	DefaultPopupHeight = 900

	labelLogin  = "Log in to music service"
	labelLogout = "Log out of music service"
)

// Config tunes the music screen.
type Config struct {
	RedirectURI  string
	AuthOrigin   string
	LoginTimeout time.Duration
	PopupWidth   int
	PopupHeight  int
}

// Deps are the collaborators of the music screen.
type Deps struct {
	API     API
	Store   CredentialStore
	Browser PopupBrowser
}

// session is one open login popup. It is owned by Screen.session and
// released exactly once.
type session struct {
	popup    Popup
	state    string
	verifier string
	claimed  bool
	timer    *time.Timer
}

// Screen shows the current track of the music service and runs the login
// flow that keeps its credentials valid.
type Screen struct {
	*core.Looper

	api     API
	store   CredentialStore
	browser PopupBrowser
	cfg     Config
	timeout time.Duration
	log     pslog.Logger

	// redrawMu orders render and SetLines so an older frame never replaces
	// a newer one.
	redrawMu sync.Mutex

	mu             sync.Mutex
	state          schema.ConnectionState
	song           *Playback
	accessToken    string
	session        *session
	opening        bool
	closedManually bool
	epoch          uint64
}

// NewFactory returns a core.Factory building a music screen.
func NewFactory(deps Deps, cfg Config) core.Factory {
	return func(args core.Args, hooks core.Hooks) (core.Screen, error) {
		return New(args, hooks, deps, cfg)
	}
}

// New builds a music screen in the booting state.
func New(args core.Args, hooks core.Hooks, deps Deps, cfg Config) (*Screen, error) {
	if deps.API == nil {
		return nil, errors.New("music api is required")
	}
	if deps.Store == nil {
		return nil, errors.New("music credential store is required")
	}
	if deps.Browser == nil {
		return nil, errors.New("music popup browser is required")
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if cfg.AuthOrigin == "" {
		cfg.AuthOrigin = DefaultAccountsURL
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if cfg.PopupWidth <= 0 {
		cfg.PopupWidth = DefaultPopupWidth
	}
	if cfg.PopupHeight <= 0 {
		cfg.PopupHeight = DefaultPopupHeight
	}
	display, err := schema.NormalizeDisplayConfig(args.Display)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		api:     deps.API,
		store:   deps.Store,
		browser: deps.Browser,
		cfg:     cfg,
		timeout: display.PollTimeout,
		state:   schema.StateBooting,
	}
	s.Looper = core.NewLooper(ScreenName, args, hooks, s.poll, s.redraw)
	s.log = s.Looper.Logger()
	s.publishTray()
	s.Redraw()
	return s, nil
}

// State returns the current connection state.
func (s *Screen) State() schema.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PopupOpen reports whether a login popup is live.
func (s *Screen) PopupOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

func (s *Screen) poll(ctx context.Context) {
	refresh := s.store.Get(KeyRefreshToken)
	s.mu.Lock()
	epoch := s.epoch
	access := s.accessToken
	s.mu.Unlock()

	if refresh == "" {
		s.apply(epoch, evNoToken, nil)
		return
	}
	playback, err := s.api.CurrentPlayback(ctx, access)
	if err == nil {
		ev := evNotPlaying
		if playback != nil && playback.IsPlaying {
			ev = evPlaying
		}
		s.apply(epoch, ev, playback)
		return
	}

	s.mu.Lock()
	suppressed := s.session != nil || s.opening
	s.mu.Unlock()
	if suppressed {
		s.log.Debug("music poll failure ignored", "reason", "login popup open", "err", err)
		return
	}
	s.log.Warn("music poll failed", "err", err)
	if !s.apply(epoch, evPollFailed, nil) {
		return
	}

	tokens, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		s.log.Warn("music refresh failed", "err", err)
		if !s.apply(epoch, evRefreshFailed, nil) {
			return
		}
		s.mu.Lock()
		manual := s.closedManually
		s.mu.Unlock()
		if manual {
			s.log.Info("music login prompt skipped", "reason", "popup closed by user")
			return
		}
		if err := s.Login(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("music login prompt failed", "err", err)
		}
		return
	}

	s.mu.Lock()
	current := s.epoch == epoch
	if current {
		s.accessToken = tokens.AccessToken
	}
	s.mu.Unlock()
	if current && tokens.RefreshToken != "" {
		s.saveRefreshToken(tokens.RefreshToken)
	}
	if s.apply(epoch, evRefreshOK, nil) {
		s.log.Info("music access token refreshed")
	}
}

// apply runs the state machine for ev. Results from before the latest
// logout are dropped. It reports whether the transition happened.
func (s *Screen) apply(epoch uint64, ev event, playback *Playback) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.log.Debug("music stale result dropped", "event", ev.String())
		return false
	}
	prev := s.state
	next, err := transition(prev, ev)
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("music transition rejected", "event", ev.String(), "state", prev.String(), "err", err)
		return false
	}
	s.state = next
	if playback != nil {
		s.song = playback
	}
	s.mu.Unlock()

	if prev != next {
		s.log.Debug("music state changed", "from", prev.String(), "to", next.String(), "event", ev.String())
	}
	if (prev == schema.StateLoggedOut) != (next == schema.StateLoggedOut) {
		s.publishTray()
	}
	return true
}

func (s *Screen) redraw() {
	s.redrawMu.Lock()
	defer s.redrawMu.Unlock()
	prev := s.Looper.Lines()
	tick := s.Looper.Tick()
	s.mu.Lock()
	lines := render(s.state, s.song, prev, s.Looper.Width(), tick)
	s.mu.Unlock()
	s.Looper.SetLines(lines)
}

func (s *Screen) publishTray() {
	s.mu.Lock()
	loggedOut := s.state == schema.StateLoggedOut
	s.mu.Unlock()
	if loggedOut {
		s.Looper.SetTrayMenu([]schema.MenuItem{{Label: labelLogin, Action: s.loginAction}})
		return
	}
	s.Looper.SetTrayMenu([]schema.MenuItem{{Label: labelLogout, Action: s.logoutAction}})
}

func (s *Screen) loginAction() {
	go func() {
		if err := s.Login(context.Background()); err != nil {
			s.log.Warn("music login failed", "err", err)
		}
	}()
}

func (s *Screen) logoutAction() {
	go s.Logout(context.Background())
}

// Login opens the login popup unless one is already open. It returns once
// the popup is showing the authorization page; the rest of the flow runs
// from the popup's callbacks.
func (s *Screen) Login(ctx context.Context) error {
	s.mu.Lock()
	if s.session != nil || s.opening {
		s.mu.Unlock()
		s.log.Debug("music login skipped", "reason", "popup already open")
		return nil
	}
	s.opening = true
	s.mu.Unlock()

	sess := &session{state: rand.Text(), verifier: oauth2.GenerateVerifier()}
	openCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	popup, err := s.browser.Open(openCtx, PopupOptions{
		Title:  "Log in to music service",
		Width:  s.cfg.PopupWidth,
		Height: s.cfg.PopupHeight,
	})
	s.mu.Lock()
	s.opening = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("open login popup: %w", err)
	}
	sess.popup = popup
	s.session = sess
	s.mu.Unlock()

	popup.OnClosed(func() { s.popupClosed(sess) })
	pattern := s.cfg.RedirectURI + "*"
	if err := popup.Intercept(pattern, func(raw string) { s.handleCallback(sess, raw) }); err != nil {
		s.release(sess)
		return fmt.Errorf("intercept %s: %w", pattern, err)
	}
	if err := popup.Navigate(openCtx, s.api.AuthorizeURL(sess.state, sess.verifier)); err != nil {
		s.release(sess)
		return fmt.Errorf("navigate login popup: %w", err)
	}
	s.mu.Lock()
	if s.session == sess {
		sess.timer = time.AfterFunc(s.cfg.LoginTimeout, func() { s.loginExpired(sess) })
	}
	s.mu.Unlock()
	s.log.Info("music login popup opened")
	return nil
}

func (s *Screen) handleCallback(sess *session, raw string) {
	s.mu.Lock()
	if s.session != sess || sess.claimed {
		s.mu.Unlock()
		return
	}
	sess.claimed = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	epoch := s.epoch
	s.mu.Unlock()
	defer s.release(sess)

	code, err := parseCallback(raw, sess.state)
	if err == nil {
		err = s.finishLogin(epoch, sess, code)
	}
	if err != nil {
		s.log.Warn("music login failed", "err", err)
		s.apply(epoch, evLoginFailed, nil)
	}
	s.Redraw()
}

func (s *Screen) finishLogin(epoch uint64, sess *session, code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	tokens, err := s.api.ExchangeCode(ctx, code, sess.verifier)
	if err != nil {
		return err
	}
	if tokens.RefreshToken == "" {
		return errors.New("token response has no refresh token")
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return errors.New("logged out during login")
	}
	s.accessToken = tokens.AccessToken
	s.closedManually = false
	s.mu.Unlock()
	s.saveRefreshToken(tokens.RefreshToken)
	if s.apply(epoch, evLoginOK, nil) {
		s.log.Info("music logged in")
	}
	return nil
}

// parseCallback extracts the authorization code from the redirect URL.
func parseCallback(raw, wantState string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse callback: %w", err)
	}
	q := u.Query()
	if reason := q.Get("error"); reason != "" {
		return "", fmt.Errorf("%w: %s", schema.ErrAuthDenied, reason)
	}
	if q.Get("state") != wantState {
		return "", schema.ErrStateMismatch
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return "", errors.New("callback has no code")
	}
	return code, nil
}

func (s *Screen) saveRefreshToken(token string) {
	s.store.Set(KeyRefreshToken, token)
	if err := s.store.Persist(NamespaceUser); err != nil {
		s.log.Warn("music credentials persist failed", "err", err)
	}
}

// release detaches sess and closes its popup. Only the first call for a
// session has any effect.
func (s *Screen) release(sess *session) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	if sess.timer != nil {
		sess.timer.Stop()
	}
	s.mu.Unlock()
	if err := sess.popup.Close(); err != nil {
		s.log.Warn("music popup close failed", "err", err)
	}
}

func (s *Screen) popupClosed(sess *session) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	if sess.timer != nil {
		sess.timer.Stop()
	}
	s.closedManually = true
	s.mu.Unlock()
	s.log.Info("music login popup closed by user")
}

func (s *Screen) loginExpired(sess *session) {
	s.mu.Lock()
	if s.session != sess || sess.claimed {
		s.mu.Unlock()
		return
	}
	s.closedManually = true
	epoch := s.epoch
	s.mu.Unlock()
	s.log.Warn("music login timed out", "timeout", s.cfg.LoginTimeout)
	s.release(sess)
	s.apply(epoch, evLoginFailed, nil)
	s.Redraw()
}

// Logout forgets all credentials, closes any login popup and suppresses
// automatic login prompts until the next explicit login. Calling it again
// has no further effect.
func (s *Screen) Logout(ctx context.Context) {
	go func() {
		clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.browser.ClearStorage(clearCtx, s.cfg.AuthOrigin); err != nil {
			s.log.Warn("music browser storage clear failed", "err", err)
		}
	}()
	s.store.Set(KeyRefreshToken, "")
	if err := s.store.Persist(NamespaceUser); err != nil {
		s.log.Warn("music credentials persist failed", "err", err)
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.accessToken = ""
	s.song = nil
	s.closedManually = true
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		s.release(sess)
	}
	s.apply(epoch, evLogout, nil)
	s.log.Info("music logged out")
	s.Redraw()
}
