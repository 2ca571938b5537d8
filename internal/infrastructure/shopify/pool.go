package shopify

import (
	"context"
	"sync"

	"shopify-auth-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ClientPool caches one client per credential key so every request for the
// same app reuses a configured client.
type ClientPool struct {
	mu      sync.Mutex
	clients map[string]ports.ShopifyClient
	logger  zerolog.Logger
}

// NewClientPool creates a new client pool
func NewClientPool(logger zerolog.Logger) *ClientPool {
	return &ClientPool{
		clients: make(map[string]ports.ShopifyClient),
		logger:  logger,
	}
}

// GetClient returns the pooled client for key, creating it on first use.
func (p *ClientPool) GetClient(_ context.Context, key string, apiKey string, apiSecret string) (ports.ShopifyClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	c := NewClient(apiKey, apiSecret, p.logger)
	p.clients[key] = c

	p.logger.Debug().Str("key", key).Msg("Created Shopify client")
	return c, nil
}
