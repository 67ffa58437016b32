// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNoAlerts is returned by Latest when the history is empty.
var ErrNoAlerts = errors.New("no alerts recorded")

// Store is the durable alert history.
type Store interface {
	// Append persists one alert record.
	Append(ctx context.Context, rec Record) error

	// List returns up to limit records, newest first. limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]Record, error)

	// Latest returns the most recent record, or ErrNoAlerts.
	Latest(ctx context.Context) (Record, error)

	// Close releases the store.
	Close() error
}

// Key prefix for BadgerDB storage. The timestamp segment is zero-padded
// unix nanoseconds so the lexicographic key order is the time order.
const alertKeyPrefix = "alert:"

// BadgerStore implements Store on BadgerDB, persisting alert history
// across restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed alert store over an open db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a BadgerDB at dir and wraps it in a
// store. The returned store owns the db and closes it on Close.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open alert store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) key(rec Record) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", alertKeyPrefix, rec.Timestamp.UnixNano(), rec.ID))
}

// Append persists one alert record.
func (s *BadgerStore) Append(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.key(rec), data); err != nil {
			return fmt.Errorf("set alert: %w", err)
		}
		return nil
	})
}

// List returns up to limit records, newest first.
func (s *BadgerStore) List(_ context.Context, limit int) ([]Record, error) {
	var out []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(alertKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts just past the prefix range.
		seek := append([]byte(alertKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(alertKeyPrefix)); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode alert: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent record.
func (s *BadgerStore) Latest(ctx context.Context) (Record, error) {
	recs, err := s.List(ctx, 1)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNoAlerts
	}
	return recs[0], nil
}

// Close closes the underlying db.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// MemoryStore implements Store in memory for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

// NewMemoryStore creates an empty in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append persists one alert record.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// List returns up to limit records, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.recs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := len(s.recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.recs[i])
	}
	return out, nil
}

// Latest returns the most recent record.
func (s *MemoryStore) Latest(_ context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.recs) == 0 {
		return Record{}, ErrNoAlerts
	}
	return s.recs[len(s.recs)-1], nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
