package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is shared only
// between processes on the same host that open the same file.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	table, err := validTable(table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per-connection; a single connection keeps them applied.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, table: table}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	key         TEXT PRIMARY KEY,
	admitted_at INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_expires_at ON %[1]s(expires_at);`, s.table))
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %[1]s (key, admitted_at, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET admitted_at = excluded.admitted_at, expires_at = excluded.expires_at
WHERE %[1]s.expires_at <= excluded.admitted_at`, s.table),
		key, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set key %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) AdmittedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var ns int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT admitted_at FROM %s WHERE key = ? AND expires_at > ?`, s.table),
		key, time.Now().UTC().UnixNano(),
	).Scan(&ns)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "sqlite: get key %s", key)
	}
	return time.Unix(0, ns).UTC(), true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table), key)
	return eris.Wrapf(err, "sqlite: delete key %s", key)
}

// DeleteExpired removes expired rows and returns how many were dropped.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, s.table), time.Now().UTC().UnixNano())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
