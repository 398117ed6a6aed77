package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists contacts in one table with JSONB counters/notes.
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
CREATE TABLE IF NOT EXISTS crm_contacts (
    email TEXT PRIMARY KEY,
    first_seen TIMESTAMP WITH TIME ZONE NOT NULL,
    last_seen TIMESTAMP WITH TIME ZONE NOT NULL,
    counters JSONB NOT NULL DEFAULT '{}'::jsonb,
    notes JSONB NOT NULL DEFAULT '[]'::jsonb
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Sync(ctx context.Context, req SyncRequest) (Contact, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return Contact{}, ErrEmailRequired
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Contact{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Contact{}, err
	}
	defer tx.Rollback(ctx)

	c := Contact{Email: email, Counters: make(map[string]int64)}
	var countersRaw, notesRaw []byte
	err = tx.QueryRow(ctx,
		`SELECT first_seen, last_seen, counters, notes FROM crm_contacts WHERE email=$1 FOR UPDATE`,
		email,
	).Scan(&c.FirstSeen, &c.LastSeen, &countersRaw, &notesRaw)
	switch {
	case err == nil:
		if err := json.Unmarshal(countersRaw, &c.Counters); err != nil {
			c.Counters = make(map[string]int64)
		}
		_ = json.Unmarshal(notesRaw, &c.Notes)
	case errors.Is(err, pgx.ErrNoRows):
		// new contact
	default:
		return Contact{}, err
	}

	apply(&c, req, time.Now())

	countersRaw, err = json.Marshal(c.Counters)
	if err != nil {
		return Contact{}, err
	}
	notesRaw, err = json.Marshal(c.Notes)
	if err != nil {
		return Contact{}, err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO crm_contacts (email, first_seen, last_seen, counters, notes)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email)
DO UPDATE SET last_seen=EXCLUDED.last_seen, counters=EXCLUDED.counters, notes=EXCLUDED.notes
`, email, c.FirstSeen, c.LastSeen, countersRaw, notesRaw)
	if err != nil {
		return Contact{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Contact{}, err
	}
	return c, nil
}
