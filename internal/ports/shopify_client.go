package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the platform API operations the auth layer calls.
type ShopifyClient interface {
	// ExchangeToken exchanges an authorization code for a long-lived access
	// token.
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// GetShop retrieves the shop record behind an access token.
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	// CreateScriptTag registers a storefront script tag.
	CreateScriptTag(ctx context.Context, shop string, accessToken string, tag shopify.ScriptTag) (*shopify.ScriptTag, error)

	// CreateWebhook registers a webhook subscription for the given topic.
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*shopify.Webhook, error)
}

// ShopifyClientPool hands out clients per credential pair so each app reuses
// one configured client.
type ShopifyClientPool interface {
	GetClient(ctx context.Context, key string, apiKey string, apiSecret string) (ShopifyClient, error)
}
