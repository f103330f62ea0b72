package music

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{
		ClientID:    "cid",
		RedirectURI: DefaultRedirectURI,
		AccountsURL: srv.URL,
		APIURL:      srv.URL,
		UserAgent:   "marquee/test",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresClientID(t *testing.T) {
	if _, err := NewClient(ClientConfig{RedirectURI: DefaultRedirectURI}); err == nil {
		t.Fatalf("expected error for missing client id")
	}
}

func TestAuthorizeURL(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	raw := client.AuthorizeURL("st", "verifier-verifier-verifier-verifier-verifier-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if !strings.HasSuffix(u.Path, "/authorize") {
		t.Fatalf("unexpected path %q", u.Path)
	}
	if q.Get("client_id") != "cid" || q.Get("state") != "st" || q.Get("redirect_uri") != DefaultRedirectURI {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Fatalf("expected pkce challenge, got %v", q)
	}
	if !strings.Contains(q.Get("scope"), "user-read-playback-state") {
		t.Fatalf("expected scopes, got %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != "abc" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		if r.PostForm.Get("code_verifier") != "v" || r.PostForm.Get("client_id") != "cid" {
			t.Errorf("expected verifier and client id, got %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","refresh_token":"rt","expires_in":3600}`)
	}))
	tokens, err := client.ExchangeCode(context.Background(), "abc", "v")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
}

func TestRefresh(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "rt" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at2","token_type":"Bearer","expires_in":3600}`)
	}))
	tokens, err := client.Refresh(context.Background(), "rt")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tokens.AccessToken != "at2" || tokens.RefreshToken != "" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
}

func TestRefreshRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	if _, err := client.Refresh(context.Background(), "rt"); err == nil {
		t.Fatalf("expected refresh error")
	}
}

func TestCurrentPlayback(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("User-Agent"); got != "marquee/test" {
			t.Errorf("unexpected user agent %q", got)
		}
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"is_playing":true,"progress_ms":1000,"item":{"name":"Song","duration_ms":2000,"artists":[{"name":"A"},{"name":"B"}]}}`)
	}))
	pb, err := client.CurrentPlayback(context.Background(), "at")
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if !pb.IsPlaying || pb.ProgressMs != 1000 || pb.Item == nil {
		t.Fatalf("unexpected playback %+v", pb)
	}
	if pb.Item.Name != "Song" || strings.Join(pb.Item.Artists, ",") != "A,B" || pb.Item.DurationMs != 2000 {
		t.Fatalf("unexpected item %+v", pb.Item)
	}

	_, err = client.CurrentPlayback(context.Background(), "expired")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || !statusErr.Unauthorized() {
		t.Fatalf("expected unauthorized status error, got %v", err)
	}
}

func TestCurrentPlaybackNoContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	pb, err := client.CurrentPlayback(context.Background(), "at")
	if err != nil || pb != nil {
		t.Fatalf("expected nil playback, got %+v %v", pb, err)
	}
}

func TestCurrentPlaybackEpisodeUsesShowName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"is_playing":false,"progress_ms":5,"item":{"name":"Ep","duration_ms":10,"show":{"name":"Pod"}}}`)
	}))
	pb, err := client.CurrentPlayback(context.Background(), "at")
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if len(pb.Item.Artists) != 1 || pb.Item.Artists[0] != "Pod" {
		t.Fatalf("expected show name as artist, got %+v", pb.Item)
	}
}

func TestCurrentPlaybackWithoutToken(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	if _, err := client.CurrentPlayback(context.Background(), ""); err == nil {
		t.Fatalf("expected error without access token")
	}
}
