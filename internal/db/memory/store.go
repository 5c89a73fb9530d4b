// Package memory provides an embedded in-process db.Store used for local
// development and tests. Vector search is brute-force cosine over the
// document set, keyword search is token-overlap scoring.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scholarmesh/paperdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store implements db.Store entirely in memory.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string]kvEntry
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty memory store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string]kvEntry),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately: the store is always available.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// --- HashStore ---

// HSet sets hash fields, merging with any existing fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HSetMulti stores multiple hashes.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, item := range items {
		if err := s.HSet(ctx, item.Key, item.Fields); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", item.Key, err)}
		}
	}
	return nil
}

// HGetAll returns a copy of all fields of a hash. Missing keys yield an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// HGetAllMulti fetches all fields for multiple hashes.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		m, err := s.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes a key from both the hash and kv spaces.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.kv, key)
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	e, ok := s.kv[key]
	if ok && !expired(e) {
		return true, nil
	}
	return false, nil
}

// Scan returns keys matching a glob pattern. Only trailing-star patterns are
// supported, which is all the repositories use.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for k, e := range s.kv {
		if strings.HasPrefix(k, prefix) && !expired(e) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// --- KVStore ---

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.kv[key]
	if !ok || expired(e) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: append([]byte(nil), value...)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	return nil
}

// IncrBy atomically increments a numeric key by the given amount.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	var cur int64
	if ok && !expired(e) {
		if _, err := fmt.Sscanf(string(e.value), "%d", &cur); err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: fmt.Errorf("key %s holds non-integer value", key)}
		}
	}
	e.value = []byte(fmt.Sprintf("%d", cur+val))
	s.kv[key] = e
	return nil
}

// Expire sets TTL on a key. When nx=true, sets TTL only if the key has no expiry yet.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok || expired(e) {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = time.Now().Add(ttl)
	s.kv[key] = e
	return nil
}

// --- IndexManager ---

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = def
	return nil
}

// DropIndex removes an index definition. Documents are untouched.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether the index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SupportsTextSearch returns true: keyword scoring is always available.
func (s *Store) SupportsTextSearch(_ context.Context) bool { return true }

func expired(e kvEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
