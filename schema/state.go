package schema

// ConnectionState is the lifecycle state of a screen backed by a remote account.
type ConnectionState int

const (
	// StateBooting is the state before the first poll resolves.
	StateBooting ConnectionState = iota
	// StateLoggedOut means no usable credentials are stored.
	StateLoggedOut
	// StateNotPlaying means the account is reachable and idle.
	StateNotPlaying
	// StatePlaying means the account reports active playback.
	StatePlaying
	// StateRefreshing means credentials are being (re)established.
	StateRefreshing
)

// String returns the lower-case state name used in logs.
func (s ConnectionState) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateLoggedOut:
		return "logged_out"
	case StateNotPlaying:
		return "not_playing"
	case StatePlaying:
		return "playing"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Connected reports whether the state implies a reachable account.
func (s ConnectionState) Connected() bool {
	return s == StatePlaying || s == StateNotPlaying
}
