package ports

import (
	"context"
	"errors"

	"shopify-auth-layer/internal/domain"
)

// ErrSessionNotFound is returned by session stores when no session exists
// for the given ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore defines the interface for request-scoped session state. Its
// lifetime is tied to the visitor's browser session, not to the record store.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.AppSession, error)
	Put(ctx context.Context, id string, session *domain.AppSession) error
	Delete(ctx context.Context, id string) error
}
