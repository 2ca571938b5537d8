package ports

import (
	"context"

	"shopify-auth-layer/internal/domain"
)

// Repository defines the interface for the durable record store: users,
// installations, and the idempotency markers for post-install provisioning.
// Lookups return (nil, nil) when no record exists.
type Repository interface {
	// User operations
	GetUserByShop(ctx context.Context, shopURL string) (*domain.ShopUser, error)
	// UpsertUser creates the user if absent and returns the stored record.
	// Name and domain fields are first-write-wins: repeat calls never
	// overwrite them.
	UpsertUser(ctx context.Context, user *domain.ShopUser) (*domain.ShopUser, error)

	// Installation operations
	ListInstallations(ctx context.Context, userID string, appName string) ([]*domain.AppInstallation, error)
	// SaveInstallation creates the installation unless an identical
	// (user, app, token, scope) record already exists.
	SaveInstallation(ctx context.Context, inst *domain.AppInstallation) error
	DeleteInstallations(ctx context.Context, userID string, appName string) error

	// Script tag idempotency markers
	ListScriptTags(ctx context.Context, userID string) ([]*domain.ScriptTagRecord, error)
	// SaveScriptTag is an atomic check-and-insert on (user, app).
	SaveScriptTag(ctx context.Context, rec *domain.ScriptTagRecord) error
	DeleteScriptTags(ctx context.Context, userID string, appName string) error

	// Webhook idempotency markers
	ListWebhooks(ctx context.Context, userID string) ([]*domain.WebhookRecord, error)
	// SaveWebhook is an atomic check-and-insert on (user, app).
	SaveWebhook(ctx context.Context, rec *domain.WebhookRecord) error
	DeleteWebhooks(ctx context.Context, userID string, appName string) error
}
