package vfs

import (
	"context"
	"sort"
	"strings"

	"github.com/agentfs/agentfs/internal/fspath"
	"github.com/agentfs/agentfs/internal/store"
)

// Mkdir creates the directory at path, creating missing ancestors. It is
// idempotent for existing directories and fails EEXIST when any existing
// segment along the way is a file.
func (fs *FS) Mkdir(ctx context.Context, path string) error {
	path = fspath.Normalize(path)
	if path == fspath.Root {
		return nil
	}

	if err := fs.ensureAncestors(ctx, path); err != nil {
		return err
	}

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return err
	}
	if doc != nil {
		if docString(doc, fieldType) == string(TypeFile) {
			return alreadyExists(path)
		}
		return nil
	}

	now := fs.now()
	_, err = fs.files.UpdateOne(ctx, store.Eq(fieldPath, path), store.Document{
		fieldType:      string(TypeDirectory),
		fieldCreatedAt: now,
		fieldUpdatedAt: now,
	}, (&store.UpdateOptions{}).SetUpsert(true))
	if err != nil {
		return ioError(path, err)
	}
	return nil
}

// Rmdir removes the empty directory at path. The root cannot be removed.
func (fs *FS) Rmdir(ctx context.Context, path string) error {
	path = fspath.Normalize(path)
	if path == fspath.Root {
		return notPermitted(path, "cannot remove root directory")
	}

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return err
	}

	descendants, err := fs.descendantCount(ctx, path)
	if err != nil {
		return err
	}

	if doc == nil && descendants == 0 {
		return notFound(path)
	}
	if doc != nil && docString(doc, fieldType) == string(TypeFile) {
		return notDirectory(path)
	}
	if descendants > 0 {
		return notEmpty(path)
	}

	if _, err := fs.files.DeleteOne(ctx, store.Eq(fieldPath, path)); err != nil {
		return ioError(path, err)
	}
	return nil
}

// Readdir lists the immediate children of the directory at path:
// deduplicated bare segment names, sorted. Implicit directories appear as
// entries just like explicit ones.
func (fs *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	path = fspath.Normalize(path)

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc != nil && docString(doc, fieldType) == string(TypeFile) {
		return nil, notDirectory(path)
	}

	descendants, err := fs.files.Find(ctx, store.Regex(fieldPath, descendantPattern(path)))
	if err != nil {
		return nil, ioError(path, err)
	}
	if doc == nil && len(descendants) == 0 && path != fspath.Root {
		return nil, notFound(path)
	}

	prefix := path
	if prefix != fspath.Root {
		prefix += "/"
	}

	seen := make(map[string]struct{})
	var entries []string
	for _, d := range descendants {
		rest := strings.TrimPrefix(docString(d, fieldPath), prefix)
		segment, _, _ := strings.Cut(rest, "/")
		if segment == "" {
			continue
		}
		if _, ok := seen[segment]; !ok {
			seen[segment] = struct{}{}
			entries = append(entries, segment)
		}
	}
	sort.Strings(entries)
	return entries, nil
}
