package music

import (
	"errors"
	"testing"

	"pkt.systems/marquee/schema"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from schema.ConnectionState
		ev   event
		want schema.ConnectionState
		err  bool
	}{
		{from: schema.StateBooting, ev: evPlaying, want: schema.StatePlaying},
		{from: schema.StateBooting, ev: evNotPlaying, want: schema.StateNotPlaying},
		{from: schema.StateBooting, ev: evNoToken, want: schema.StateLoggedOut},
		{from: schema.StateLoggedOut, ev: evLoginOK, want: schema.StateRefreshing},
		{from: schema.StateRefreshing, ev: evPlaying, want: schema.StatePlaying},
		{from: schema.StateRefreshing, ev: evNotPlaying, want: schema.StateNotPlaying},
		{from: schema.StatePlaying, ev: evNotPlaying, want: schema.StateNotPlaying},
		{from: schema.StateNotPlaying, ev: evPlaying, want: schema.StatePlaying},
		{from: schema.StatePlaying, ev: evPollFailed, want: schema.StateRefreshing},
		{from: schema.StateRefreshing, ev: evRefreshOK, want: schema.StateRefreshing},
		{from: schema.StateRefreshing, ev: evRefreshFailed, want: schema.StateLoggedOut},
		{from: schema.StateNotPlaying, ev: evLoginFailed, want: schema.StateLoggedOut},
		{from: schema.StateLoggedOut, ev: evLogout, want: schema.StateLoggedOut},
		{from: schema.StatePlaying, ev: evLogout, want: schema.StateLoggedOut},
		{from: schema.StateLoggedOut, ev: evRefreshOK, want: schema.StateLoggedOut, err: true},
		{from: schema.StatePlaying, ev: evLoginOK, want: schema.StatePlaying, err: true},
		{from: schema.StateNotPlaying, ev: event(99), want: schema.StateNotPlaying, err: true},
	}
	for _, tc := range cases {
		got, err := transition(tc.from, tc.ev)
		if tc.err {
			if !errors.Is(err, schema.ErrIllegalTransition) {
				t.Fatalf("%s on %s: expected illegal transition, got %v", tc.ev, tc.from, err)
			}
		} else if err != nil {
			t.Fatalf("%s on %s: unexpected error %v", tc.ev, tc.from, err)
		}
		if got != tc.want {
			t.Fatalf("%s on %s: expected %s, got %s", tc.ev, tc.from, tc.want, got)
		}
	}
}
