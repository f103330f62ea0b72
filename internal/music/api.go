package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"pkt.systems/pslog"
)

const (
	// DefaultAccountsURL is the authorization server base URL.
	DefaultAccountsURL = "https://accounts.spotify.com"
	// DefaultAPIURL is the Web API base URL.
	DefaultAPIURL = "https://api.spotify.com"
	// DefaultHTTPTimeout bounds every request made by Client.
	DefaultHTTPTimeout = 15 * time.Second
)

// DefaultScopes are the permissions requested at login.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// StatusError reports a non-2xx response from the Web API.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s failed: %d %s; body=%s", e.URL, e.Status, http.StatusText(e.Status), e.Body)
}

// Unauthorized reports whether the access token was rejected.
func (e *StatusError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// ClientConfig configures Client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AccountsURL  string
	APIURL       string
	HTTPTimeout  time.Duration
	// UserAgent is sent on Web API requests when set.
	UserAgent string
	Logger    pslog.Logger
}

// Client talks to the Spotify accounts service and Web API.
type Client struct {
	oauth     *oauth2.Config
	apiURL    string
	userAgent string
	http      *http.Client
	log       pslog.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("music client id is required")
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return nil, errors.New("music redirect uri is required")
	}
	accounts := strings.TrimRight(strings.TrimSpace(cfg.AccountsURL), "/")
	if accounts == "" {
		accounts = DefaultAccountsURL
	}
	api := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if api == "" {
		api = DefaultAPIURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	style := oauth2.AuthStyleInHeader
	if cfg.ClientSecret == "" {
		style = oauth2.AuthStyleInParams
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       append([]string(nil), scopes...),
			Endpoint: oauth2.Endpoint{
				AuthURL:   accounts + "/authorize",
				TokenURL:  accounts + "/api/token",
				AuthStyle: style,
			},
		},
		apiURL:    api,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      &http.Client{Timeout: timeout},
		log:       logger,
	}, nil
}

// AuthorizeURL returns the login URL carrying state and the PKCE challenge
// derived from verifier.
func (c *Client) AuthorizeURL(state, verifier string) string {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (Tokens, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	started := time.Now()
	tok, err := c.oauth.Exchange(c.withClient(ctx), code, opts...)
	if err != nil {
		c.log.Warn("music code exchange failed", "err", err, "duration_ms", time.Since(started).Milliseconds())
		return Tokens{}, fmt.Errorf("exchange code: %w", err)
	}
	c.log.Debug("music code exchange ok", "duration_ms", time.Since(started).Milliseconds())
	return toTokens(tok), nil
}

// Refresh obtains a new access token. The returned refresh token is empty
// when the server did not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, errors.New("refresh token is empty")
	}
	started := time.Now()
	tok, err := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		c.log.Warn("music token refresh failed", "err", err, "duration_ms", time.Since(started).Milliseconds())
		return Tokens{}, fmt.Errorf("refresh token: %w", err)
	}
	out := toTokens(tok)
	if out.RefreshToken == refreshToken {
		out.RefreshToken = ""
	}
	c.log.Debug("music token refresh ok", "rotated", out.RefreshToken != "", "duration_ms", time.Since(started).Milliseconds())
	return out, nil
}

type playbackPayload struct {
	IsPlaying  bool         `json:"is_playing"`
	ProgressMs int64        `json:"progress_ms"`
	Item       *itemPayload `json:"item"`
}

type itemPayload struct {
	Name       string         `json:"name"`
	DurationMs int64          `json:"duration_ms"`
	Artists    []namedPayload `json:"artists"`
	Show       *namedPayload  `json:"show"`
}

type namedPayload struct {
	Name string `json:"name"`
}

// CurrentPlayback fetches the player state. A 204 response means nothing is
// loaded and yields nil.
func (c *Client) CurrentPlayback(ctx context.Context, accessToken string) (*Playback, error) {
	if accessToken == "" {
		return nil, errNoAccessToken
	}
	url := c.apiURL + "/v1/me/player"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload playbackPayload
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toPlayback(payload), nil
}

func (c *Client) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

var errNoAccessToken = errors.New("no access token")

func toTokens(tok *oauth2.Token) Tokens {
	if tok == nil {
		return Tokens{}
	}
	return Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}

func toPlayback(p playbackPayload) *Playback {
	out := &Playback{IsPlaying: p.IsPlaying, ProgressMs: p.ProgressMs}
	if p.Item == nil {
		return out
	}
	track := &Track{Name: p.Item.Name, DurationMs: p.Item.DurationMs}
	for _, artist := range p.Item.Artists {
		if artist.Name != "" {
			track.Artists = append(track.Artists, artist.Name)
		}
	}
	if len(track.Artists) == 0 && p.Item.Show != nil && p.Item.Show.Name != "" {
		track.Artists = []string{p.Item.Show.Name}
	}
	out.Item = track
	return out
}
