package session

import (
	"context"
	"testing"

	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	sess := &domain.AppSession{
		ShopURL:     "store.example.com",
		AccessToken: "tok123",
		AppName:     "appX",
	}
	require.NoError(t, store.Put(ctx, "sid-1", sess))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	// The store hands out copies; mutating one must not leak into the other.
	got.AccessToken = "mutated"
	again, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", again.AccessToken)

	require.NoError(t, store.Delete(ctx, "sid-1"))
	_, err = store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}
