package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/models"
)

func TestInMemoryShopStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryShopStore()

	got, err := store.Get(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown shop is nil, not an error")

	creds := &models.ShopCredentials{
		Shop:        "demo.myshopify.com",
		AccessToken: "tok",
		Scope:       "read_orders",
		InstalledAt: time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(ctx, creds))

	got, err = store.Get(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.AccessToken)

	// Stored copy is isolated from the caller's struct.
	creds.AccessToken = "mutated"
	got, err = store.Get(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)

	// Reinstall replaces the token.
	require.NoError(t, store.Upsert(ctx, &models.ShopCredentials{Shop: "demo.myshopify.com", AccessToken: "tok2"}))
	got, err = store.Get(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.AccessToken)

	require.NoError(t, store.Delete(ctx, "demo.myshopify.com"))
	got, err = store.Get(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}
