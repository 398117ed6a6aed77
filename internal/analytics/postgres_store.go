package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope labels for counter rows.
const (
	scopeGlobal = "global"
	scopeDaily  = "daily"
	scopeBrand  = "brand"
)

type PostgresStore struct {
	pool       *pgxpool.Pool
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("pool is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS analytics_counters (
    scope TEXT NOT NULL,
    bucket TEXT NOT NULL,
    event TEXT NOT NULL,
    count BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (scope, bucket, event)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Record(ctx context.Context, ev Event) error {
	event := strings.TrimSpace(ev.Type)
	if event == "" {
		return ErrEventRequired
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	rows := [][3]string{
		{scopeGlobal, "all", event},
		{scopeDaily, dayKey(time.Now()), event},
	}
	if brand := strings.TrimSpace(ev.Brand); brand != "" {
		rows = append(rows, [3]string{scopeBrand, brand, event})
	}
	for _, r := range rows {
		_, err := s.pool.Exec(ctx, `
INSERT INTO analytics_counters (scope, bucket, event, count)
VALUES ($1, $2, $3, 1)
ON CONFLICT (scope, bucket, event) DO UPDATE SET count = analytics_counters.count + 1
`, r[0], r[1], r[2])
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Global: make(map[string]int64),
		Today:  make(map[string]int64),
		Brands: make(map[string]map[string]int64),
	}

	rows, err := s.pool.Query(ctx, `SELECT scope, bucket, event, count FROM analytics_counters`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	today := dayKey(time.Now())
	for rows.Next() {
		var scope, bucket, event string
		var count int64
		if err := rows.Scan(&scope, &bucket, &event, &count); err != nil {
			return Snapshot{}, err
		}
		switch scope {
		case scopeGlobal:
			snap.Global[event] = count
		case scopeDaily:
			if bucket == today {
				snap.Today[event] = count
			}
		case scopeBrand:
			if snap.Brands[bucket] == nil {
				snap.Brands[bucket] = make(map[string]int64)
			}
			snap.Brands[bucket][event] = count
		}
	}
	return snap, rows.Err()
}
