// Package shopify is the typed gateway to the two upstream data surfaces:
// the Admin REST API (products, orders; Link-header pagination) and the
// GraphQL analytics query surface (ShopifyQL, tabular rows).
//
// Failure semantics: individual calls carry their own timeout and are paced
// with a fixed inter-call delay. Inside a pipeline stage a failed call
// degrades to an empty result and a log line; only the stage-level deadline
// (the caller's context) propagates as an error.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/models"
)

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client talks to the Shopify Admin API for one or more shops. All knobs
// (API version, timeouts, pacing) come from the config struct; there is no
// package-level state.
type Client struct {
	cfg     config.ShopifyConfig
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics

	// baseURL overrides the https://{shop} scheme+host in tests.
	baseURL string
}

// NewClient constructs the gateway client.
func NewClient(cfg config.ShopifyConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		logger:  logger,
		metrics: m,
	}
}

func (c *Client) shopURL(shop, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return "https://" + shop + path
}

func (c *Client) apiPath(resource string) string {
	return fmt.Sprintf("/admin/api/%s/%s", c.cfg.APIVersion, resource)
}

// pace blocks for the fixed inter-call delay, or returns early when the
// context is cancelled. This is the entirety of the upstream rate limiting:
// request volume is low and per-tenant serial, so a fixed delay suffices.
func (c *Client) pace(ctx context.Context) error {
	if c.cfg.CallDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.CallDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// doJSON performs one authenticated call with the per-call timeout, decodes
// the JSON body into out (when non-nil) and returns the response headers for
// pagination. Non-2xx responses are errors.
func (c *Client) doJSON(ctx context.Context, creds *models.ShopCredentials, method, rawURL string, body, out any) (http.Header, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordUpstream(surfaceOf(rawURL), "error", elapsed)
		return nil, fmt.Errorf("upstream call: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstream(surfaceOf(rawURL), strconv.Itoa(resp.StatusCode), elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.Header, fmt.Errorf("upstream status %d: %s", resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// nextPageInfo extracts the page_info cursor from a Link response header,
// or "" when there is no next page.
func nextPageInfo(h http.Header) string {
	link := h.Get("Link")
	if link == "" {
		return ""
	}
	m := linkNextRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}

func surfaceOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "other"
	}
	switch {
	case strings.HasSuffix(u.Path, "graphql.json"):
		return "analytics"
	case strings.HasSuffix(u.Path, "orders.json"):
		return "orders"
	case strings.HasSuffix(u.Path, "products.json"):
		return "products"
	default:
		return "other"
	}
}
