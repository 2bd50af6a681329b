package models

import "time"

// ShopCredentials is the persisted per-tenant record: which shop installed
// the app and the access token granted during the OAuth handshake. The core
// pipeline only ever consumes Shop and AccessToken.
type ShopCredentials struct {
	Shop        string    `json:"shop"`
	AccessToken string    `json:"access_token"`
	Scope       string    `json:"scope"`
	Timezone    string    `json:"timezone"`
	InstalledAt time.Time `json:"installed_at"`
}
