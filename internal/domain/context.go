package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const appSessionKey contextKey = "app_session"

// WithAppSession stores the resolved session state in the context for
// downstream handlers.
func WithAppSession(ctx context.Context, session *AppSession) context.Context {
	return context.WithValue(ctx, appSessionKey, session)
}

// AppSessionFromContext returns the session state placed in the context by
// the auth gate, or nil when the request was not admitted through it.
func AppSessionFromContext(ctx context.Context) *AppSession {
	session, _ := ctx.Value(appSessionKey).(*AppSession)
	return session
}
