// Package audit keeps the append-only record of tool invocations.
//
// Entries are immutable forever: the write path deep-copies everything it
// stores, the read path deep-copies everything it returns, and every
// mutating operation fails ErrImmutable. The mutators exist only so the log
// can stand in where a store-shaped interface is expected.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentfs/agentfs/internal/shared/id"
	"github.com/agentfs/agentfs/internal/store"
)

// ErrImmutable is returned by every mutating operation.
var ErrImmutable = errors.New("audit: entries are immutable")

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("audit: entry not found")

// Entry is one recorded tool invocation.
type Entry struct {
	ID         id.AuditID     `json:"id"`
	Tool       string         `json:"tool"`
	Inputs     map[string]any `json:"inputs"`
	Outputs    map[string]any `json:"outputs"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMs *int64         `json:"duration_ms,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RecordOptions carries the optional fields of one record call.
type RecordOptions struct {
	StartTime time.Time
	EndTime   time.Time
	Metadata  map[string]any
}

// TimeRange bounds a query; zero endpoints are unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ListOptions filters and pages a List call.
type ListOptions struct {
	Limit     int64
	Offset    int64
	Tool      string
	TimeRange *TimeRange
}

// Log is the append-only audit log.
type Log struct {
	coll  store.Collection
	clock func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) { l.clock = clock }
}

// New creates an audit log over the given store handle.
func New(st store.Store, opts ...Option) *Log {
	l := &Log{
		coll:  st.Collection(store.AuditCollection),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry and returns its id. Inputs, outputs and metadata
// are deep-copied; mutating them afterward does not affect stored history.
func (l *Log) Record(ctx context.Context, tool string, inputs, outputs map[string]any, opts *RecordOptions) (id.AuditID, error) {
	if tool == "" {
		return "", fmt.Errorf("audit: tool name required")
	}

	entryID := id.NewAuditID()
	timestamp := l.clock()

	doc := store.Document{
		"_id":     entryID.String(),
		"tool":    tool,
		"inputs":  store.CloneValue(inputs),
		"outputs": store.CloneValue(outputs),
	}

	if opts != nil {
		if !opts.StartTime.IsZero() {
			timestamp = opts.StartTime
		}
		if !opts.StartTime.IsZero() && !opts.EndTime.IsZero() {
			doc["duration_ms"] = opts.EndTime.Sub(opts.StartTime).Milliseconds()
		}
		if opts.Metadata != nil {
			doc["metadata"] = store.CloneValue(opts.Metadata)
		}
	}
	doc["timestamp"] = timestamp.UnixMilli()

	if _, err := l.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("audit: record: %w", err)
	}
	return entryID, nil
}

// FindByID returns a deep copy of one entry.
func (l *Log) FindByID(ctx context.Context, entryID id.AuditID) (*Entry, error) {
	doc, err := l.coll.FindOne(ctx, store.Eq("_id", entryID.String()))
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, fmt.Errorf("audit: %s: %w", entryID, ErrNotFound)
		}
		return nil, fmt.Errorf("audit: find %s: %w", entryID, err)
	}
	return decodeEntry(doc), nil
}

// List returns entries in ascending timestamp order, optionally filtered by
// tool and time range and paged by offset/limit. Paging applies after the
// time-range filter.
func (l *Log) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	var filter store.Filter
	if opts.Tool != "" {
		filter = store.Eq("tool", opts.Tool)
	}

	docs, err := l.coll.Find(ctx, filter, (&store.FindOptions{}).SetSort("timestamp", false))
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}

	var entries []*Entry
	for _, doc := range docs {
		entry := decodeEntry(doc)
		if opts.TimeRange != nil && !opts.TimeRange.contains(entry.Timestamp) {
			continue
		}
		entries = append(entries, entry)
	}

	if opts.Offset > 0 {
		if opts.Offset >= int64(len(entries)) {
			return nil, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(entries)) {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// FindByTool returns every entry recorded for one tool, ascending.
func (l *Log) FindByTool(ctx context.Context, tool string) ([]*Entry, error) {
	return l.List(ctx, ListOptions{Tool: tool})
}

// FindByTimeRange returns every entry inside the range, ascending.
func (l *Log) FindByTimeRange(ctx context.Context, tr TimeRange) ([]*Entry, error) {
	return l.List(ctx, ListOptions{TimeRange: &tr})
}

// Count returns the total number of entries.
func (l *Log) Count(ctx context.Context) (int64, error) {
	n, err := l.coll.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("audit: count: %w", err)
	}
	return n, nil
}

// Update always fails: audit entries are immutable.
func (l *Log) Update(ctx context.Context, entryID id.AuditID, set map[string]any) error {
	return ErrImmutable
}

// Delete always fails: audit entries are immutable.
func (l *Log) Delete(ctx context.Context, entryID id.AuditID) error {
	return ErrImmutable
}

// DeleteMany always fails: audit entries are immutable.
func (l *Log) DeleteMany(ctx context.Context, tool string) error {
	return ErrImmutable
}

// Clear always fails: audit entries are immutable.
func (l *Log) Clear(ctx context.Context) error {
	return ErrImmutable
}

func decodeEntry(doc store.Document) *Entry {
	entry := &Entry{}
	if s, ok := doc["_id"].(string); ok {
		entry.ID = id.AuditID(s)
	}
	entry.Tool, _ = doc["tool"].(string)
	if m, ok := store.CloneValue(doc["inputs"]).(map[string]any); ok {
		entry.Inputs = m
	}
	if m, ok := store.CloneValue(doc["outputs"]).(map[string]any); ok {
		entry.Outputs = m
	}
	if m, ok := store.CloneValue(doc["metadata"]).(map[string]any); ok {
		entry.Metadata = m
	}
	entry.Timestamp = docTime(doc, "timestamp")
	if ms, ok := docInt(doc, "duration_ms"); ok {
		entry.DurationMs = &ms
	}
	return entry
}

func docTime(doc store.Document, field string) time.Time {
	if v, ok := docInt(doc, field); ok {
		return time.UnixMilli(v)
	}
	return time.Time{}
}

func docInt(doc store.Document, field string) (int64, bool) {
	switch v := doc[field].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
