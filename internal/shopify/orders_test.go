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

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"vip", "sale"}, splitTags("vip, sale"))
	assert.Equal(t, []string{"Subscription Recurring Order"}, splitTags(" Subscription Recurring Order "))
	assert.Nil(t, splitTags(""))
	assert.Nil(t, splitTags("  "))
	assert.Equal(t, []string{"a"}, splitTags("a,,"))
}

func TestFetchOrders_Paginates(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	var handler http.Handler
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page_info") {
		case "":
			// First page must carry the range filter.
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("created_at_min"))
			assert.Equal(t, "2024-01-31T23:59:59Z", r.URL.Query().Get("created_at_max"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/orders.json?limit=250&page_info=p2>; rel="next"`, srv.URL))
			w.Write([]byte(`{"orders":[{"id":1,"total_price":"100.00","tags":"vip, sale","created_at":"2024-01-05T10:00:00Z","line_items":[{"product_id":7,"title":"A","price":"100.00","quantity":1}]}]}`))
		case "p2":
			w.Write([]byte(`{"orders":[{"id":2,"total_price":"50.00","tags":"","created_at":"2024-01-06T10:00:00Z","cancelled_at":"2024-01-07T10:00:00Z","line_items":[]}]}`))
		default:
			t.Errorf("unexpected page_info %q", r.URL.Query().Get("page_info"))
		}
	})

	orders, err := c.FetchOrders(context.Background(), testCreds(), dr)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, 100.00, orders[0].TotalPrice)
	assert.Equal(t, []string{"vip", "sale"}, orders[0].Tags)
	assert.False(t, orders[0].Cancelled())
	assert.True(t, orders[0].ContainsProduct(7))

	assert.Equal(t, int64(2), orders[1].ID)
	assert.True(t, orders[1].Cancelled())
}

func TestFetchOrders_PageCap(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	calls := 0
	var handler http.Handler
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/orders.json?limit=250&page_info=p%d>; rel="next"`, srv.URL, calls))
		w.Write([]byte(`{"orders":[{"id":1,"total_price":"1.00","tags":"","created_at":"2024-01-05T10:00:00Z","line_items":[]}]}`))
	})

	orders, err := c.FetchOrders(context.Background(), testCreds(), dr)
	require.NoError(t, err)
	// MaxOrderPages in the test config is 5.
	assert.Equal(t, 5, calls)
	assert.Len(t, orders, 5)
}

func TestFetchOrders_MidPaginationFailureKeepsPartialData(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	var handler http.Handler
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/orders.json?limit=250&page_info=p2>; rel="next"`, srv.URL))
			w.Write([]byte(`{"orders":[{"id":1,"total_price":"10.00","tags":"","created_at":"2024-01-05T10:00:00Z","line_items":[]}]}`))
			return
		}
		http.Error(w, "upstream hiccup", http.StatusInternalServerError)
	})

	orders, err := c.FetchOrders(context.Background(), testCreds(), dr)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestListOrderTags_DedupedSorted(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders":[
			{"id":1,"total_price":"1.00","tags":"VIP, sale","created_at":"2024-01-05T10:00:00Z","line_items":[]},
			{"id":2,"total_price":"1.00","tags":"vip, Wholesale","created_at":"2024-01-06T10:00:00Z","line_items":[]}
		]}`))
	}))

	tags, err := c.ListOrderTags(context.Background(), testCreds(), dr)
	require.NoError(t, err)
	assert.Equal(t, []string{"sale", "VIP", "Wholesale"}, tags)
}
