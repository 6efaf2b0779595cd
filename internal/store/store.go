// Package store defines the narrow document-store contract every core
// component persists through.
//
// A store holds named collections of documents addressed by an opaque id.
// Queries are deliberately restricted to a small tagged predicate (exact
// field match or regex field match) rather than a general query language,
// mirroring the operator subset the wire-protocol database exposes.
package store

import (
	"context"
	"errors"
)

// Standard errors that can be checked with errors.Is.
var (
	// ErrNoDocuments is returned when no documents match the query.
	ErrNoDocuments = errors.New("store: no documents in result")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store: store is closed")
)

// Document is a single stored record. Timestamps inside documents are kept
// as epoch milliseconds so every adapter serializes them identically.
type Document map[string]any

// Predicate is one condition of a filter.
type Predicate interface {
	isPredicate()
}

// ExactMatch requires a field to equal a value.
type ExactMatch struct {
	Field string
	Value any
}

func (ExactMatch) isPredicate() {}

// RegexMatch requires a string field to match an RE2 pattern.
type RegexMatch struct {
	Field   string
	Pattern string
}

func (RegexMatch) isPredicate() {}

// Filter is a conjunction of predicates. An empty filter matches everything.
type Filter []Predicate

// Eq builds an exact-match filter on a single field.
func Eq(field string, value any) Filter {
	return Filter{ExactMatch{Field: field, Value: value}}
}

// Regex builds a regex-match filter on a single field.
func Regex(field, pattern string) Filter {
	return Filter{RegexMatch{Field: field, Pattern: pattern}}
}

// FindOptions configures a Find operation.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     *int64
	Skip      *int64
}

// SetSort sets the sort field and direction.
func (o *FindOptions) SetSort(field string, desc bool) *FindOptions {
	o.SortField = field
	o.SortDesc = desc
	return o
}

// SetLimit sets the maximum number of documents to return.
func (o *FindOptions) SetLimit(limit int64) *FindOptions {
	o.Limit = &limit
	return o
}

// SetSkip sets the number of documents to skip.
func (o *FindOptions) SetSkip(skip int64) *FindOptions {
	o.Skip = &skip
	return o
}

// UpdateOptions configures an UpdateOne operation.
type UpdateOptions struct {
	Upsert *bool
}

// SetUpsert sets the upsert option.
func (o *UpdateOptions) SetUpsert(upsert bool) *UpdateOptions {
	o.Upsert = &upsert
	return o
}

// UpdateResult reports the effect of an UpdateOne.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    string
}

// Collection is one named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// FindOne returns the first matching document or ErrNoDocuments.
	FindOne(ctx context.Context, filter Filter) (Document, error)

	// Find returns every matching document, honoring sort/limit/skip.
	Find(ctx context.Context, filter Filter, opts ...*FindOptions) ([]Document, error)

	// InsertOne stores a new document and returns its id. A missing `_id`
	// field is assigned by the store.
	InsertOne(ctx context.Context, doc Document) (string, error)

	// UpdateOne applies a $set-style partial update to the first matching
	// document, inserting when Upsert is set and nothing matches.
	UpdateOne(ctx context.Context, filter Filter, set Document, opts ...*UpdateOptions) (*UpdateResult, error)

	// DeleteOne removes the first matching document, reporting how many
	// documents were removed (0 or 1).
	DeleteOne(ctx context.Context, filter Filter) (int64, error)

	// DeleteMany removes every matching document.
	DeleteMany(ctx context.Context, filter Filter) (int64, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections. Implementations must be safe for concurrent
// use; writes follow last-write-wins semantics.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// Collections used by the core, namespaced under one logical database.
const (
	FilesCollection = "agentfs.files"
	KVCollection    = "agentfs.kv"
	AuditCollection = "agentfs.audit"
)
