package shopify

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/models"
)

func TestResolveProducts(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("handle") {
		case "blue-mug":
			w.Write([]byte(`{"products":[{"id":7,"title":"Blue Mug","handle":"blue-mug"}]}`))
		default:
			w.Write([]byte(`{"products":[]}`))
		}
	}))

	pages := []models.PageRequest{
		{URL: "/products/blue-mug", Path: "/products/blue-mug"},
		{URL: "/products/ghost", Path: "/products/ghost"},
		{URL: "/collections/all", Path: "/collections/all"}, // no slug, skipped
	}

	out, err := c.ResolveProducts(context.Background(), testCreds(), pages)
	require.NoError(t, err)
	require.Len(t, out, 1)

	p, ok := out["/products/blue-mug"]
	require.True(t, ok)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "Blue Mug", p.Title)

	_, ok = out["/products/ghost"]
	assert.False(t, ok, "unknown slug is omitted, not an error")
}

func TestResolveProducts_LookupFailureDegrades(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("handle") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"products":[{"id":1,"title":"Fine","handle":"fine"}]}`))
	}))

	pages := []models.PageRequest{
		{URL: "/products/broken", Path: "/products/broken"},
		{URL: "/products/fine", Path: "/products/fine"},
	}

	out, err := c.ResolveProducts(context.Background(), testCreds(), pages)
	require.NoError(t, err, "single lookup failure must not fail the batch")
	require.Len(t, out, 1)
	assert.Equal(t, "Fine", out["/products/fine"].Title)
}

func TestListProducts_PaginatesAndSorts(t *testing.T) {
	var handler http.Handler
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/products.json?limit=250&page_info=p2>; rel="next"`, srv.URL))
			w.Write([]byte(`{"products":[{"id":2,"title":"zeta","handle":"zeta"},{"id":1,"title":"Alpha","handle":"alpha"}]}`))
			return
		}
		w.Write([]byte(`{"products":[{"id":3,"title":"midway","handle":"midway"}]}`))
	})

	products, err := c.ListProducts(context.Background(), testCreds())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Alpha", products[0].Title)
	assert.Equal(t, "midway", products[1].Title)
	assert.Equal(t, "zeta", products[2].Title)
}
