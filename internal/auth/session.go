package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/errs"
)

// SessionClaims carries the shop identity inside the session token.
type SessionClaims struct {
	Shop string `json:"shop"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies the signed session cookie.
type Sessions struct {
	cfg    config.SessionConfig
	secure bool
}

// NewSessions builds the session manager. secure controls the cookie's
// Secure flag and should be true in production.
func NewSessions(cfg config.SessionConfig, secure bool) *Sessions {
	return &Sessions{cfg: cfg, secure: secure}
}

// Issue signs a session token for the shop.
func (s *Sessions) Issue(shop string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Shop: shop,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pagepulse",
			Subject:   shop,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns the shop it belongs to.
func (s *Sessions) Verify(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid || claims.Shop == "" {
		return "", errs.ErrAuthRequired
	}
	return claims.Shop, nil
}

// Cookie wraps a signed token in the session cookie: HTTP-only, SameSite
// Lax, Secure outside development, expiring with the token.
func (s *Sessions) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.cfg.TTL),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ShopFromRequest extracts and verifies the session cookie on a request.
func (s *Sessions) ShopFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return "", errs.ErrAuthRequired
	}
	return s.Verify(c.Value)
}
