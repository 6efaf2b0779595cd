// Package memory provides an in-memory document store.
//
// It backs defaults and tests; the caller constructs an explicit handle and
// threads it through every component. Writes are last-write-wins under one
// per-collection lock, matching the semantics the remote store provides.
package memory

import (
	"context"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/agentfs/agentfs/internal/shared/id"
	"github.com/agentfs/agentfs/internal/store"
)

// Store is an in-memory store.Store implementation.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	closed      bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{store: s, name: name}
		s.collections[name] = c
	}
	return c
}

// Close marks the store closed; subsequent operations fail ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type collection struct {
	store *Store
	name  string
	mu    sync.RWMutex
	docs  []store.Document
}

func (c *collection) Name() string { return c.name }

func (c *collection) guard(ctx context.Context) error {
	if c.store.isClosed() {
		return store.ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return doc.Clone(), nil
		}
	}
	return nil, store.ErrNoDocuments
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts ...*store.FindOptions) ([]store.Document, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	var out []store.Document
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			c.mu.RUnlock()
			return nil, err
		}
		if ok {
			out = append(out, doc.Clone())
		}
	}
	c.mu.RUnlock()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.SortField != "" {
			sortDocs(out, opt.SortField, opt.SortDesc)
		}
		if opt.Skip != nil {
			skip := *opt.Skip
			if skip >= int64(len(out)) {
				out = nil
			} else {
				out = out[skip:]
			}
		}
		if opt.Limit != nil && *opt.Limit < int64(len(out)) {
			out = out[:*opt.Limit]
		}
	}
	return out, nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	if err := c.guard(ctx); err != nil {
		return "", err
	}

	stored := doc.Clone()
	docID, ok := stored["_id"].(string)
	if !ok || docID == "" {
		docID = id.NewDocID().String()
		stored["_id"] = docID
	}

	c.mu.Lock()
	c.docs = append(c.docs, stored)
	c.mu.Unlock()
	return docID, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document, opts ...*store.UpdateOptions) (*store.UpdateResult, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}

	upsert := false
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil {
			upsert = *opt.Upsert
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			for k, v := range set {
				doc[k] = store.CloneValue(v)
			}
			return &store.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}

	if !upsert {
		return &store.UpdateResult{}, nil
	}

	// Upserted documents start from the filter's equality fields, the way
	// the wire protocol builds them.
	stored := store.Document{}
	for _, pred := range filter {
		if eq, ok := pred.(store.ExactMatch); ok {
			stored[eq.Field] = store.CloneValue(eq.Value)
		}
	}
	for k, v := range set {
		stored[k] = store.CloneValue(v)
	}
	docID, ok := stored["_id"].(string)
	if !ok || docID == "" {
		docID = id.NewDocID().String()
		stored["_id"] = docID
	}
	c.docs = append(c.docs, stored)
	return &store.UpdateResult{UpsertedCount: 1, UpsertedID: docID}, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	if err := c.guard(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	if err := c.guard(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0]
	var removed int64
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
		} else {
			kept = append(kept, doc)
		}
	}
	c.docs = kept
	return removed, nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if err := c.guard(ctx); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func matches(doc store.Document, filter store.Filter) (bool, error) {
	for _, pred := range filter {
		switch p := pred.(type) {
		case store.ExactMatch:
			if !valueEq(doc[p.Field], p.Value) {
				return false, nil
			}
		case store.RegexMatch:
			str, ok := doc[p.Field].(string)
			if !ok {
				return false, nil
			}
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return false, err
			}
			if !re.MatchString(str) {
				return false, nil
			}
		}
	}
	return true, nil
}

// valueEq compares field values, treating all numeric types as one domain
// so that codec round-trips do not break equality.
func valueEq(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func sortDocs(docs []store.Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		less := valueLess(docs[i][field], docs[j][field])
		eq := valueEq(docs[i][field], docs[j][field])
		if eq {
			// ULID ids are k-sortable, giving a stable tie-break.
			ii, _ := docs[i]["_id"].(string)
			jj, _ := docs[j]["_id"].(string)
			less = strings.Compare(ii, jj) < 0
		}
		if desc {
			return !less && !eq
		}
		return less
	})
}

func valueLess(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}
