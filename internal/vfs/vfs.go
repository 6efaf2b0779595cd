// Package vfs emulates a POSIX-flavored filesystem over the document store.
//
// Nodes live in one collection keyed by canonical absolute path. A path is a
// directory either explicitly (a stored directory node) or implicitly (some
// stored path has it as a strict prefix). There is no disk I/O: every
// operation is a handful of store calls, and concurrent writers race with
// last-write-wins semantics at the store layer.
package vfs

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/store"
)

// FS is the virtual filesystem.
type FS struct {
	files  store.Collection
	clock  func() time.Time
	logger *zap.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(fs *FS) { fs.clock = clock }
}

// WithLogger attaches a logger for store-level noise.
func WithLogger(logger *zap.Logger) Option {
	return func(fs *FS) { fs.logger = logger }
}

// New creates a filesystem over the given store handle.
func New(st store.Store, opts ...Option) *FS {
	fs := &FS{
		files:  st.Collection(store.FilesCollection),
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// now returns the current time in epoch milliseconds, the document format.
func (fs *FS) now() int64 {
	return fs.clock().UnixMilli()
}

// findNode fetches the explicit node at a normalized path. A nil document
// with nil error means the path has no explicit node.
func (fs *FS) findNode(ctx context.Context, path string) (store.Document, error) {
	doc, err := fs.files.FindOne(ctx, store.Eq(fieldPath, path))
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, nil
		}
		return nil, ioError(path, err)
	}
	return doc, nil
}

// descendantCount counts stored paths strictly below a normalized path.
func (fs *FS) descendantCount(ctx context.Context, path string) (int64, error) {
	n, err := fs.files.Count(ctx, store.Regex(fieldPath, descendantPattern(path)))
	if err != nil {
		return 0, ioError(path, err)
	}
	return n, nil
}

// descendantPattern anchors a regex at `path + "/"`.
func descendantPattern(path string) string {
	prefix := path
	if prefix == "/" {
		prefix = ""
	}
	return "^" + regexp.QuoteMeta(prefix+"/")
}
