package music

import (
	"fmt"

	"pkt.systems/marquee/schema"
)

type event int

const (
	evPlaying event = iota
	evNotPlaying
	evNoToken
	evPollFailed
	evRefreshOK
	evRefreshFailed
	evLoginOK
	evLoginFailed
	evLogout
)

func (e event) String() string {
	switch e {
	case evPlaying:
		return "playing"
	case evNotPlaying:
		return "not_playing"
	case evNoToken:
		return "no_token"
	case evPollFailed:
		return "poll_failed"
	case evRefreshOK:
		return "refresh_ok"
	case evRefreshFailed:
		return "refresh_failed"
	case evLoginOK:
		return "login_ok"
	case evLoginFailed:
		return "login_failed"
	case evLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// transition returns the state reached from s on e. Poll results are
// accepted in every state. A refresh only completes while still refreshing,
// and a login only completes from a logged out (or booting) screen, so a
// logout that races either one wins.
func transition(s schema.ConnectionState, e event) (schema.ConnectionState, error) {
	switch e {
	case evPlaying:
		return schema.StatePlaying, nil
	case evNotPlaying:
		return schema.StateNotPlaying, nil
	case evNoToken, evRefreshFailed, evLoginFailed, evLogout:
		return schema.StateLoggedOut, nil
	case evPollFailed:
		return schema.StateRefreshing, nil
	case evRefreshOK:
		if s == schema.StateRefreshing {
			return schema.StateRefreshing, nil
		}
	case evLoginOK:
		if s == schema.StateLoggedOut || s == schema.StateBooting {
			return schema.StateRefreshing, nil
		}
	}
	return s, fmt.Errorf("%w: %s on %s", schema.ErrIllegalTransition, e, s)
}
