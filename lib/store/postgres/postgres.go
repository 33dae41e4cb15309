// Package postgres implements the cache on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS panel_cache (
	source TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
)`
	selectEntry = `SELECT payload, fetched_at FROM panel_cache WHERE source = $1`
	upsertEntry = `INSERT INTO panel_cache (source, payload, fetched_at) VALUES ($1, $2, $3)
ON CONFLICT (source) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`
	deleteAll = `DELETE FROM panel_cache`
)

type Postgres struct {
	db  *sql.DB
	clk clock.Clock
}

// New returns a postgres client connection to the specified database in 'connection' and creates the cache table.
func New(connection string, clk clock.Clock) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	p := NewWithDB(db, clk)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = p.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return p, nil
}

// NewWithDB uses an open database handle.
func NewWithDB(db *sql.DB, clk clock.Clock) *Postgres {
	if clk == nil {
		clk = clock.Real
	}

	return &Postgres{db: db, clk: clk}
}

// Migrate creates the cache table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("cannot create cache table: %w", err)
	}

	return nil
}

// Get implements store.Cache.
func (p *Postgres) Get(ctx context.Context, source string, fresh time.Duration) (store.Entry, error) {
	var (
		payload []byte
		at      time.Time
	)

	err := p.db.QueryRowContext(ctx, selectEntry, source).Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, store.ErrDataNotFound
	}

	if err != nil {
		return store.Entry{}, fmt.Errorf("postgres get %s: %w", source, err)
	}

	e := store.Entry{Payload: payload, FetchedAt: at}
	if !e.Fresh(p.clk.Now(), fresh) {
		return store.Entry{}, store.ErrDataNotFound
	}

	return e, nil
}

// Put implements store.Cache.
func (p *Postgres) Put(ctx context.Context, source string, payload []byte) (store.Entry, error) {
	if source == "" {
		return store.Entry{}, store.ErrNoSource
	}

	now := p.clk.Now().UTC()

	if _, err := p.db.ExecContext(ctx, upsertEntry, source, string(payload), now); err != nil {
		return store.Entry{}, fmt.Errorf("postgres put %s: %w", source, err)
	}

	return store.Entry{Payload: payload, FetchedAt: now}, nil
}

// Purge implements store.Cache.
func (p *Postgres) Purge(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, deleteAll)

	return err
}

// Close will close any database connection. Must be called at termination time.
func (p *Postgres) Close() error {
	return p.db.Close()
}
