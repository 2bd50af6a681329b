// Package auth implements the OAuth handshake with the storefront platform
// and the signed session cookie the dashboard rides on afterwards.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/errs"
)

// ShopDomainSuffix is the platform storefront domain every installable shop
// must live under.
const ShopDomainSuffix = ".myshopify.com"

var shopNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// ValidShopDomain reports whether the shop parameter looks like a real
// storefront domain. Everything else is rejected before any redirect is
// built from it.
func ValidShopDomain(shop string) bool {
	if !strings.HasSuffix(shop, ShopDomainSuffix) {
		return false
	}
	name := strings.TrimSuffix(shop, ShopDomainSuffix)
	return shopNameRe.MatchString(name)
}

// OAuth drives the authorization-code handshake.
type OAuth struct {
	cfg     config.ShopifyConfig
	baseURL string
	http    *http.Client

	// tokenURLOverride points the exchange at a fake upstream in tests.
	tokenURLOverride string
}

// NewOAuth builds the OAuth helper. baseURL is this app's public base URL,
// used for the callback redirect URI.
func NewOAuth(cfg config.ShopifyConfig, baseURL string) *OAuth {
	return &OAuth{cfg: cfg, baseURL: baseURL, http: &http.Client{}}
}

// AuthorizeURL returns the upstream authorization URL for a shop.
func (o *OAuth) AuthorizeURL(shop, state string) string {
	q := url.Values{}
	q.Set("client_id", o.cfg.APIKey)
	q.Set("scope", o.cfg.Scopes)
	q.Set("redirect_uri", o.baseURL+"/auth/callback")
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

// VerifyHMAC checks the signature over the callback query parameters:
// every parameter except hmac itself, as key=value pairs sorted by key and
// joined with &, signed with HMAC-SHA256 under the shared app secret.
// Comparison is constant time.
func (o *OAuth) VerifyHMAC(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(o.cfg.APISecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(provided))) == 1
}

type tokenExchangeRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

type tokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ExchangeToken trades the authorization code for a permanent access token.
func (o *OAuth) ExchangeToken(ctx context.Context, shop, code string) (accessToken, scope string, err error) {
	endpoint := o.tokenURLOverride
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	}

	body := tokenExchangeRequest{
		ClientID:     o.cfg.APIKey,
		ClientSecret: o.cfg.APISecret,
		Code:         code,
	}

	var resp tokenExchangeResponse
	if err := postJSON(ctx, o.http, endpoint, body, &resp); err != nil {
		return "", "", errs.Wrap(err, "token exchange")
	}
	if resp.AccessToken == "" {
		return "", "", fmt.Errorf("token exchange returned no access token")
	}
	return resp.AccessToken, resp.Scope, nil
}
