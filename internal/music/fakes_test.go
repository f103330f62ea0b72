package music

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
)

type fakeAPI struct {
	mu           sync.Mutex
	playback     *Playback
	playbackErr  error
	refreshErr   error
	refreshed    Tokens
	exchangeErr  error
	exchanged    Tokens
	refreshCalls int
	pollCalls    int
	codes        []string
	lastState    string
	lastAccess   string
}

func (f *fakeAPI) AuthorizeURL(state, verifier string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastState = state
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeAPI) ExchangeCode(_ context.Context, code, _ string) (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return Tokens{}, f.exchangeErr
	}
	return f.exchanged, nil
}

func (f *fakeAPI) Refresh(_ context.Context, _ string) (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return Tokens{}, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeAPI) CurrentPlayback(_ context.Context, access string) (*Playback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	f.lastAccess = access
	if f.playbackErr != nil {
		return nil, f.playbackErr
	}
	return f.playback, nil
}

func (f *fakeAPI) state() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastState
}

func (f *fakeAPI) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

type memStore struct {
	mu       sync.Mutex
	values   map[string]string
	persists []string
}

func newMemStore(values map[string]string) *memStore {
	if values == nil {
		values = map[string]string{}
	}
	return &memStore{values: values}
}

func (m *memStore) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func (m *memStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *memStore) Persist(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists = append(m.persists, namespace)
	return nil
}

type fakePopup struct {
	mu        sync.Mutex
	navigated []string
	pattern   string
	onMatch   func(string)
	onClosed  func()
	closes    int
	closed    bool
}

func (p *fakePopup) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePopup) Intercept(pattern string, onMatch func(string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pattern = pattern
	p.onMatch = onMatch
	return nil
}

func (p *fakePopup) Close() error {
	p.mu.Lock()
	p.closes++
	already := p.closed
	p.closed = true
	fn := p.onClosed
	p.mu.Unlock()
	if !already && fn != nil {
		fn()
	}
	return nil
}

func (p *fakePopup) OnClosed(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClosed = fn
}

// redirect simulates the browser requesting the redirect URI.
func (p *fakePopup) redirect(url string) {
	p.mu.Lock()
	fn := p.onMatch
	p.mu.Unlock()
	if fn != nil {
		fn(url)
	}
}

// userClose simulates the user closing the window.
func (p *fakePopup) userClose() {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	fn := p.onClosed
	p.mu.Unlock()
	if !already && fn != nil {
		fn()
	}
}

func (p *fakePopup) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

type fakeBrowser struct {
	mu      sync.Mutex
	popups  []*fakePopup
	gate    chan struct{}
	openErr error
	cleared chan string
}

func (b *fakeBrowser) Open(ctx context.Context, _ PopupOptions) (Popup, error) {
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	p := &fakePopup{}
	b.popups = append(b.popups, p)
	return p, nil
}

func (b *fakeBrowser) ClearStorage(_ context.Context, origin string) error {
	if b.cleared != nil {
		b.cleared <- origin
	}
	return nil
}

func (b *fakeBrowser) opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.popups)
}

func (b *fakeBrowser) last() *fakePopup {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.popups) == 0 {
		return nil
	}
	return b.popups[len(b.popups)-1]
}

var errNetwork = errors.New("network down")

func newTestScreen(api *fakeAPI, store *memStore, browser *fakeBrowser, cfg Config) (*Screen, error) {
	args := core.Args{Display: schema.DisplayConfig{Height: 4, Width: 21}}
	return New(args, core.Hooks{}, Deps{API: api, Store: store, Browser: browser}, cfg)
}

// hookAPI calls before at the start of every playback request.
type hookAPI struct {
	*fakeAPI
	before func()
}

func (h *hookAPI) CurrentPlayback(ctx context.Context, access string) (*Playback, error) {
	if h.before != nil {
		h.before()
	}
	return h.fakeAPI.CurrentPlayback(ctx, access)
}

func testArgs() core.Args {
	return core.Args{Display: schema.DisplayConfig{Height: 4, Width: 21}}
}

func testHooks() core.Hooks {
	return core.Hooks{}
}
