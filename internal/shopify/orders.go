package shopify

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/models"
)

// orderWire is the REST shape of an order; tags arrive as one
// comma-separated string.
type orderWire struct {
	ID          int64             `json:"id"`
	TotalPrice  float64           `json:"total_price,string"`
	Tags        string            `json:"tags"`
	CreatedAt   time.Time         `json:"created_at"`
	CancelledAt *time.Time        `json:"cancelled_at"`
	LineItems   []models.LineItem `json:"line_items"`
}

type ordersResponse struct {
	Orders []orderWire `json:"orders"`
}

func (w orderWire) toOrder() models.Order {
	return models.Order{
		ID:          w.ID,
		TotalPrice:  w.TotalPrice,
		Tags:        splitTags(w.Tags),
		CreatedAt:   w.CreatedAt,
		CancelledAt: w.CancelledAt,
		LineItems:   w.LineItems,
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// FetchOrders pulls every order in the date range (status=any, so cancelled
// orders are visible to the eligibility filter), paginating via the Link
// header until exhausted or MaxOrderPages is reached. Query-level tag
// negation is not reliable upstream, so rebill exclusion is left entirely to
// the client-side eligibility scan in the metric engine.
// Only the caller's (stage) deadline is returned as an error.
func (c *Client) FetchOrders(ctx context.Context, creds *models.ShopCredentials, dateRange models.DateRange) ([]models.Order, error) {
	var all []models.Order
	pageInfo := ""

	for page := 0; page < c.cfg.MaxOrderPages; page++ {
		q := url.Values{}
		q.Set("limit", "250")
		if pageInfo == "" {
			q.Set("status", "any")
			q.Set("created_at_min", dateRange.Start+"T00:00:00Z")
			q.Set("created_at_max", dateRange.End+"T23:59:59Z")
			q.Set("fields", "id,total_price,tags,created_at,cancelled_at,line_items")
		} else {
			q.Set("page_info", pageInfo)
		}
		rawURL := c.shopURL(creds.Shop, c.apiPath("orders.json")) + "?" + q.Encode()

		var resp ordersResponse
		header, err := c.doJSON(ctx, creds, http.MethodGet, rawURL, nil, &resp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("order fetch failed",
				zap.String("shop", creds.Shop),
				zap.Int("page", page),
				zap.Error(err),
			)
			c.metrics.RecordUpstreamFailure("orders", "fetch")
			// Partial data beats none: whatever pages arrived still count.
			return all, nil
		}

		for _, w := range resp.Orders {
			all = append(all, w.toOrder())
		}

		pageInfo = nextPageInfo(header)
		if pageInfo == "" {
			break
		}
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// ListOrderTags returns the deduplicated, sorted tag universe across orders
// in the date range. Feeds the tag filter picker.
func (c *Client) ListOrderTags(ctx context.Context, creds *models.ShopCredentials, dateRange models.DateRange) ([]string, error) {
	orders, err := c.FetchOrders(ctx, creds, dateRange)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string) // folded -> first-seen original casing
	for i := range orders {
		for _, t := range orders[i].Tags {
			folded := strings.ToLower(t)
			if _, ok := seen[folded]; !ok {
				seen[folded] = t
			}
		}
	}

	tags := make([]string, 0, len(seen))
	for _, t := range seen {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})
	return tags, nil
}
