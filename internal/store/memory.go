package store

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rotisserie/eris"
)

// MemoryStore implements Store on an in-memory badger database. Each value
// holds the admission and expiry instants in nanoseconds, and expiry is checked
// against them on every read. Badger's native TTL only has second granularity,
// so it is rounded up and used to reclaim space. Concurrent admissions of the
// same key are serialized by badger's transaction conflict detection.
type MemoryStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewMemory opens a process-local in-memory store.
func NewMemory() (*MemoryStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, eris.Wrap(err, "memory: open badger")
	}
	return &MemoryStore{db: db, now: time.Now}, nil
}

// Values are admitted_at then expires_at, both big-endian Unix nanoseconds.
const memoryEntrySize = 16

func encodeEntry(at, expires time.Time) []byte {
	val := make([]byte, memoryEntrySize)
	binary.BigEndian.PutUint64(val[:8], uint64(at.UnixNano()))
	binary.BigEndian.PutUint64(val[8:], uint64(expires.UnixNano()))
	return val
}

func decodeEntry(key string, val []byte) (at, expires time.Time, err error) {
	if len(val) != memoryEntrySize {
		return time.Time{}, time.Time{}, eris.Errorf("memory: corrupt value for %s", key)
	}
	at = time.Unix(0, int64(binary.BigEndian.Uint64(val[:8]))).UTC()
	expires = time.Unix(0, int64(binary.BigEndian.Uint64(val[8:]))).UTC()
	return at, expires, nil
}

// live returns the admission time of an unexpired entry for key.
func live(txn *badger.Txn, key string, now time.Time) (time.Time, bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var at, expires time.Time
	err = item.Value(func(val []byte) error {
		var derr error
		at, expires, derr = decodeEntry(key, val)
		return derr
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if !now.Before(expires) {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (s *MemoryStore) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	admitted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		now := s.now().UTC()
		_, ok, err := live(txn, key, now)
		if err != nil || ok {
			return err
		}

		val := encodeEntry(now, now.Add(ttl))
		if err := txn.SetEntry(badger.NewEntry([]byte(key), val).WithTTL(ttl.Truncate(time.Second) + time.Second)); err != nil {
			return err
		}
		admitted = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent transaction wrote the key first.
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "memory: set key %s", key)
	}
	return admitted, nil
}

func (s *MemoryStore) AdmittedAt(_ context.Context, key string) (time.Time, bool, error) {
	var (
		at time.Time
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		at, ok, err = live(txn, key, s.now().UTC())
		return err
	})
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "memory: get key %s", key)
	}
	return at, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return eris.Wrapf(err, "memory: delete key %s", key)
}

func (s *MemoryStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return eris.New("memory: store closed")
	}
	return nil
}

// Migrate is a no-op; the in-memory store has no schema.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	return s.db.Close()
}
