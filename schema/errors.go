package schema

import "errors"

var (
	// ErrInvalidDisplay indicates display dimensions that cannot be rendered.
	ErrInvalidDisplay = errors.New("invalid display size")
	// ErrInvalidScreen indicates an unknown or malformed screen name.
	ErrInvalidScreen = errors.New("invalid screen")
	// ErrNoScreens indicates the manager has no screens to act on.
	ErrNoScreens = errors.New("no screens")
	// ErrMenuItemNotFound indicates a tray-menu index outside the current menu.
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrIllegalTransition indicates a connection state change the machine does not allow.
	ErrIllegalTransition = errors.New("illegal state transition")
	// ErrNotLoggedIn indicates no refresh token is available.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrPopupClosed indicates the popup was closed before the operation finished.
	ErrPopupClosed = errors.New("popup closed")
	// ErrAuthDenied indicates the authorization server rejected the login.
	ErrAuthDenied = errors.New("authorization denied")
	// ErrStateMismatch indicates the OAuth state parameter did not round-trip.
	ErrStateMismatch = errors.New("oauth state mismatch")
)
