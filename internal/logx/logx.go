package logx

import (
	"context"

	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	screenKey contextKey = iota
	sessionKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithScreen annotates the logger with the screen name if present.
func WithScreen(ctx context.Context, name schema.ScreenName) pslog.Logger {
	log := pslog.Ctx(ctx)
	if name != "" {
		if current, ok := ctx.Value(screenKey).(schema.ScreenName); ok && current == name {
			return log
		}
		log = log.With("screen", string(name))
	}
	return log
}

// WithSession annotates the logger with a display session id and remote user.
func WithSession(ctx context.Context, sessionID, user string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(string); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	if user != "" {
		log = log.With("user", user)
	}
	return log
}

// ContextWithScreen stores the screen marker on the context for log de-duplication.
func ContextWithScreen(ctx context.Context, name schema.ScreenName) context.Context {
	if ctx == nil || name == "" {
		return ctx
	}
	return context.WithValue(ctx, screenKey, name)
}

// ContextWithScreenLogger attaches the logger and screen marker to the context.
func ContextWithScreenLogger(ctx context.Context, log pslog.Logger, name schema.ScreenName) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithScreen(ctx, name)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}
