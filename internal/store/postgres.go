package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-router/internal/db"
)

// PostgresStore implements Store on a shared Postgres table. Admission is a
// single upsert that only overwrites expired rows, so concurrent callers race
// on the primary key rather than on application logic.
type PostgresStore struct {
	pool  db.Pool
	table string
}

// NewPostgres opens a pool for connString. The server is not contacted until
// Ping or the first query.
func NewPostgres(ctx context.Context, connString, table string) (*PostgresStore, error) {
	table, err := validTable(table)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, connString, nil)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (s *PostgresStore) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	t := s.ident()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key         TEXT PRIMARY KEY,
	admitted_at TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s (expires_at);`,
		t, pgx.Identifier{"idx_" + s.table + "_expires_at"}.Sanitize(), t))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %[1]s (key, admitted_at, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET admitted_at = EXCLUDED.admitted_at, expires_at = EXCLUDED.expires_at
WHERE %[1]s.expires_at <= EXCLUDED.admitted_at`, s.ident()),
		key, now, now.Add(ttl),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set key %s", key)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AdmittedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT admitted_at FROM %s WHERE key = $1 AND expires_at > now()`, s.ident()),
		key,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "postgres: get key %s", key)
	}
	return at.UTC(), true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.ident()), key)
	return eris.Wrapf(err, "postgres: delete key %s", key)
}

// DeleteExpired removes expired rows and returns how many were dropped.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= now()`, s.ident()))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
