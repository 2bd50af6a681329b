package shopify

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/matcher"
	"github.com/pagepulse/pagepulse/internal/models"
)

type productsResponse struct {
	Products []models.Product `json:"products"`
}

// ResolveProducts maps each page request to its catalog product by handle.
// Pages whose path carries no product slug, and slugs the catalog does not
// know, are simply omitted from the result; absence is a valid terminal
// state, not an error. Lookups are paced with the fixed inter-call delay.
// Only the caller's (stage) deadline is returned as an error.
func (c *Client) ResolveProducts(ctx context.Context, creds *models.ShopCredentials, pages []models.PageRequest) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(pages))
	first := true

	for _, page := range pages {
		slug := matcher.ExtractSlug(page.Path)
		if slug == "" {
			continue
		}

		if !first {
			if err := c.pace(ctx); err != nil {
				return nil, err
			}
		}
		first = false

		q := url.Values{}
		q.Set("handle", slug)
		q.Set("fields", "id,title,handle")
		rawURL := c.shopURL(creds.Shop, c.apiPath("products.json")) + "?" + q.Encode()

		var resp productsResponse
		if _, err := c.doJSON(ctx, creds, http.MethodGet, rawURL, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("product lookup failed",
				zap.String("shop", creds.Shop),
				zap.String("handle", slug),
				zap.Error(err),
			)
			c.metrics.RecordUpstreamFailure("products", "lookup")
			continue
		}
		if len(resp.Products) == 0 {
			continue
		}
		out[page.URL] = resp.Products[0]
	}

	return out, nil
}

// ListProducts returns the full catalog, paginated server-side until
// exhausted, sorted by title.
func (c *Client) ListProducts(ctx context.Context, creds *models.ShopCredentials) ([]models.Product, error) {
	var all []models.Product
	pageInfo := ""

	for {
		q := url.Values{}
		q.Set("limit", "250")
		if pageInfo == "" {
			q.Set("fields", "id,title,handle")
		} else {
			// With a page_info cursor the API rejects other filter params.
			q.Set("page_info", pageInfo)
		}
		rawURL := c.shopURL(creds.Shop, c.apiPath("products.json")) + "?" + q.Encode()

		var resp productsResponse
		header, err := c.doJSON(ctx, creds, http.MethodGet, rawURL, nil, &resp)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Products...)

		pageInfo = nextPageInfo(header)
		if pageInfo == "" {
			break
		}
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].Title) < strings.ToLower(all[j].Title)
	})
	return all, nil
}
