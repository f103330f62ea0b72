package music

import (
	"context"
	"time"
)

// KeyRefreshToken is the credential store key holding the refresh token.
const KeyRefreshToken = "refresh_token"

// NamespaceUser is the credential store namespace persisted after login and
// logout.
const NamespaceUser = "user"

// CredentialStore is a durable key/value store for account secrets.
type CredentialStore interface {
	Get(key string) string
	Set(key, value string)
	Persist(namespace string) error
}

// PopupOptions describes the window opened for an interactive login.
type PopupOptions struct {
	Title  string
	Width  int
	Height int
}

// PopupBrowser opens login popups and manages their browser storage.
type PopupBrowser interface {
	// Open creates a popup. ctx bounds the open itself, not the popup's
	// lifetime.
	Open(ctx context.Context, opts PopupOptions) (Popup, error)
	// ClearStorage removes cookies and site data for origin.
	ClearStorage(ctx context.Context, origin string) error
}

// Popup is a single login window.
type Popup interface {
	// Navigate loads url in the popup.
	Navigate(ctx context.Context, url string) error
	// Intercept calls onMatch with the full URL of the first request that
	// matches pattern. A trailing '*' matches any suffix.
	Intercept(pattern string, onMatch func(url string)) error
	// Close closes the popup. Closing twice is a no-op.
	Close() error
	// OnClosed registers fn to run once when the popup goes away, whether
	// closed by the user or by Close.
	OnClosed(fn func())
}

// Tokens is the result of a code exchange or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Track is the item currently loaded in the player.
type Track struct {
	Name       string
	Artists    []string
	DurationMs int64
}

// Playback is a snapshot of the player state.
type Playback struct {
	IsPlaying  bool
	ProgressMs int64
	Item       *Track
}

// API is the remote music service.
type API interface {
	// AuthorizeURL returns the URL the login popup navigates to. verifier is
	// the PKCE code verifier for this login.
	AuthorizeURL(state, verifier string) string
	ExchangeCode(ctx context.Context, code, verifier string) (Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
	// CurrentPlayback returns nil without error when nothing is playing.
	CurrentPlayback(ctx context.Context, accessToken string) (*Playback, error)
}
