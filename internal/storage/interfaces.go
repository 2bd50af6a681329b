package storage

import (
	"context"
	"time"

	"github.com/pagepulse/pagepulse/internal/models"
)

// ShopStore persists per-tenant OAuth credentials. The pipeline only reads;
// writes happen during the OAuth callback.
type ShopStore interface {
	Get(ctx context.Context, shop string) (*models.ShopCredentials, error)
	Upsert(ctx context.Context, creds *models.ShopCredentials) error
	Delete(ctx context.Context, shop string) error
}

// RunRecord is one row of the comparison-run audit history.
type RunRecord struct {
	RunID      string
	Shop       string
	URLCount   int
	RangeStart string
	RangeEnd   string
	Strategy   string
	Outcome    string
	CacheHit   bool
	Elapsed    time.Duration
	RanAt      time.Time
}

// RunHistory records comparison runs for offline analysis. Implementations
// are best-effort: failures are logged, never surfaced.
type RunHistory interface {
	Record(ctx context.Context, rec RunRecord) error
}
