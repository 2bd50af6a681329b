package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseRunHistory appends comparison-run records to ClickHouse.
type ClickHouseRunHistory struct {
	conn driver.Conn
}

func NewClickHouseRunHistory(conn driver.Conn) *ClickHouseRunHistory {
	return &ClickHouseRunHistory{conn: conn}
}

// Migrate creates the run history table if it does not exist.
func (h *ClickHouseRunHistory) Migrate(ctx context.Context) error {
	err := h.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS comparison_runs (
			run_id      String,
			shop        String,
			url_count   UInt32,
			range_start Date,
			range_end   Date,
			strategy    LowCardinality(String),
			outcome     LowCardinality(String),
			cache_hit   UInt8,
			elapsed_ms  UInt64,
			ran_at      DateTime
		) ENGINE = MergeTree()
		ORDER BY (shop, ran_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate comparison_runs table: %w", err)
	}
	return nil
}

func (h *ClickHouseRunHistory) Record(ctx context.Context, rec RunRecord) error {
	cacheHit := uint8(0)
	if rec.CacheHit {
		cacheHit = 1
	}
	err := h.conn.Exec(ctx, `
		INSERT INTO comparison_runs
			(run_id, shop, url_count, range_start, range_end, strategy, outcome, cache_hit, elapsed_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.Shop,
		uint32(rec.URLCount),
		rec.RangeStart,
		rec.RangeEnd,
		rec.Strategy,
		rec.Outcome,
		cacheHit,
		uint64(rec.Elapsed.Milliseconds()),
		rec.RanAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record comparison run: %w", err)
	}
	return nil
}

// NopRunHistory discards run records. Used when the history sink is disabled.
type NopRunHistory struct{}

func (NopRunHistory) Record(context.Context, RunRecord) error { return nil }
