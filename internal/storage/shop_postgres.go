package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagepulse/pagepulse/internal/models"
)

// PostgresShopStore implements ShopStore using PostgreSQL.
type PostgresShopStore struct {
	pool *pgxpool.Pool
}

func NewPostgresShopStore(pool *pgxpool.Pool) *PostgresShopStore {
	return &PostgresShopStore{pool: pool}
}

// Migrate creates the shops table if it does not exist.
func (s *PostgresShopStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS shops (
			shop         TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			scope        TEXT NOT NULL DEFAULT '',
			timezone     TEXT NOT NULL DEFAULT '',
			installed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate shops table: %w", err)
	}
	return nil
}

func (s *PostgresShopStore) Get(ctx context.Context, shop string) (*models.ShopCredentials, error) {
	var c models.ShopCredentials
	err := s.pool.QueryRow(ctx, `
		SELECT shop, access_token, scope, timezone, installed_at
		FROM shops WHERE shop = $1
	`, shop).Scan(&c.Shop, &c.AccessToken, &c.Scope, &c.Timezone, &c.InstalledAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &c, nil
}

func (s *PostgresShopStore) Upsert(ctx context.Context, creds *models.ShopCredentials) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shops (shop, access_token, scope, timezone, installed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shop) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			scope        = EXCLUDED.scope,
			timezone     = EXCLUDED.timezone
	`, creds.Shop, creds.AccessToken, creds.Scope, creds.Timezone, creds.InstalledAt)
	if err != nil {
		return fmt.Errorf("failed to upsert shop: %w", err)
	}
	return nil
}

func (s *PostgresShopStore) Delete(ctx context.Context, shop string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM shops WHERE shop = $1`, shop)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return nil
}
