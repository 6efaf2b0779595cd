package vfs

import (
	"context"

	"github.com/agentfs/agentfs/internal/fspath"
)

// Stat returns metadata for the node at path. Implicit directories get a
// synthesized stat carrying the current time; directories always report
// size 0.
func (fs *FS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	path = fspath.Normalize(path)

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return decodeInfo(doc), nil
	}

	descendants, err := fs.descendantCount(ctx, path)
	if err != nil {
		return nil, err
	}
	if descendants > 0 || path == fspath.Root {
		now := fs.clock()
		return &FileInfo{
			Path:      path,
			Type:      TypeDirectory,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return nil, notFound(path)
}

// Exists reports whether the path resolves to a file or a directory,
// implicit directories included.
func (fs *FS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := fs.Stat(ctx, path)
	if err != nil {
		if CodeOf(err) == ENOENT {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
