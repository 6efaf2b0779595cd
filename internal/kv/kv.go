// Package kv provides a flat key→value store over the backing store.
//
// Values are arbitrary JSON-shaped structures. Writes upsert by key with
// last-write-wins semantics; reads hand out deep copies so callers cannot
// mutate stored state.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/agentfs/agentfs/internal/store"
)

// ErrKeyNotFound is returned by Get for absent keys.
var ErrKeyNotFound = errors.New("kv: key not found")

// Entry is one stored key/value pair.
type Entry struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the key-value store.
type Store struct {
	coll  store.Collection
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates a key-value store over the given store handle.
func New(st store.Store, opts ...Option) *Store {
	s := &Store{
		coll:  st.Collection(store.KVCollection),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under key, overwriting any previous value. The creation
// time of an existing key is preserved.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return fmt.Errorf("kv: key must not be empty")
	}

	now := s.clock().UnixMilli()
	existing, err := s.coll.FindOne(ctx, store.Eq("key", key))
	if err != nil && !errors.Is(err, store.ErrNoDocuments) {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}

	set := store.Document{
		"value":      store.CloneValue(value),
		"updated_at": now,
	}
	if existing == nil {
		set["created_at"] = now
	}

	_, err = s.coll.UpdateOne(ctx, store.Eq("key", key), set,
		(&store.UpdateOptions{}).SetUpsert(true))
	if err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	doc, err := s.coll.FindOne(ctx, store.Eq("key", key))
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, fmt.Errorf("kv: get %q: %w", key, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return store.CloneValue(doc["value"]), nil
}

// GetEntry returns the full entry stored under key, or ErrKeyNotFound.
func (s *Store) GetEntry(ctx context.Context, key string) (*Entry, error) {
	doc, err := s.coll.FindOne(ctx, store.Eq("key", key))
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, fmt.Errorf("kv: get %q: %w", key, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return decodeEntry(doc), nil
}

// Has reports whether key exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.coll.Count(ctx, store.Eq("key", key))
	if err != nil {
		return false, fmt.Errorf("kv: has %q: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.coll.DeleteOne(ctx, store.Eq("key", key))
	if err != nil {
		return false, fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return n > 0, nil
}

// Keys returns every stored key, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	docs, err := s.coll.Find(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if k, ok := doc["key"].(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every entry, returning how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	n, err := s.coll.DeleteMany(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("kv: clear: %w", err)
	}
	return n, nil
}

func decodeEntry(doc store.Document) *Entry {
	entry := &Entry{
		Value: store.CloneValue(doc["value"]),
	}
	entry.Key, _ = doc["key"].(string)
	entry.CreatedAt = docTime(doc, "created_at")
	entry.UpdatedAt = docTime(doc, "updated_at")
	return entry
}

func docTime(doc store.Document, field string) time.Time {
	switch v := doc[field].(type) {
	case int64:
		return time.UnixMilli(v)
	case float64:
		return time.UnixMilli(int64(v))
	default:
		return time.Time{}
	}
}
