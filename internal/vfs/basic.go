package vfs

import (
	"context"

	"github.com/agentfs/agentfs/internal/fspath"
	"github.com/agentfs/agentfs/internal/store"
)

// ReadFile returns the content of the file at path.
func (fs *FS) ReadFile(ctx context.Context, path string) (string, error) {
	path = fspath.Normalize(path)
	if path == fspath.Root {
		return "", isDirectory(path)
	}

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", notFound(path)
	}
	if docString(doc, fieldType) == string(TypeDirectory) {
		return "", isDirectory(path)
	}
	return docString(doc, fieldContent), nil
}

// WriteFile writes content to the file at path, creating it and every
// missing ancestor directory as needed. Overwrites preserve the original
// creation time; ancestor creation happens before the leaf write.
func (fs *FS) WriteFile(ctx context.Context, path, content string) error {
	path = fspath.Normalize(path)
	if path == fspath.Root {
		return isDirectory(path)
	}

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return err
	}

	now := fs.now()
	if doc != nil {
		if docString(doc, fieldType) == string(TypeDirectory) {
			return isDirectory(path)
		}
		_, err := fs.files.UpdateOne(ctx, store.Eq(fieldPath, path), store.Document{
			fieldContent:   content,
			fieldUpdatedAt: now,
		})
		if err != nil {
			return ioError(path, err)
		}
		return nil
	}

	// No explicit node, but descendants make the path an implicit directory.
	descendants, err := fs.descendantCount(ctx, path)
	if err != nil {
		return err
	}
	if descendants > 0 {
		return isDirectory(path)
	}

	if err := fs.ensureAncestors(ctx, path); err != nil {
		return err
	}

	// Upsert keyed by path keeps concurrent first writes last-write-wins
	// instead of producing duplicate nodes.
	_, err = fs.files.UpdateOne(ctx, store.Eq(fieldPath, path), store.Document{
		fieldType:      string(TypeFile),
		fieldContent:   content,
		fieldCreatedAt: now,
		fieldUpdatedAt: now,
	}, (&store.UpdateOptions{}).SetUpsert(true))
	if err != nil {
		return ioError(path, err)
	}
	return nil
}

// DeleteFile removes the file at path.
func (fs *FS) DeleteFile(ctx context.Context, path string) error {
	path = fspath.Normalize(path)
	if path == fspath.Root {
		return isDirectory(path)
	}

	doc, err := fs.findNode(ctx, path)
	if err != nil {
		return err
	}
	if doc == nil {
		descendants, err := fs.descendantCount(ctx, path)
		if err != nil {
			return err
		}
		if descendants > 0 {
			return isDirectory(path)
		}
		return notFound(path)
	}
	if docString(doc, fieldType) == string(TypeDirectory) {
		return isDirectory(path)
	}

	if _, err := fs.files.DeleteOne(ctx, store.Eq(fieldPath, path)); err != nil {
		return ioError(path, err)
	}
	return nil
}

// ensureAncestors creates every missing ancestor of path as an explicit
// empty directory, nearest the root first. An ancestor that exists as a
// file fails EEXIST.
func (fs *FS) ensureAncestors(ctx context.Context, path string) error {
	for _, ancestor := range fspath.Ancestors(path) {
		doc, err := fs.findNode(ctx, ancestor)
		if err != nil {
			return err
		}
		if doc != nil {
			if docString(doc, fieldType) == string(TypeFile) {
				return alreadyExists(ancestor)
			}
			continue
		}
		now := fs.now()
		_, err = fs.files.UpdateOne(ctx, store.Eq(fieldPath, ancestor), store.Document{
			fieldType:      string(TypeDirectory),
			fieldCreatedAt: now,
			fieldUpdatedAt: now,
		}, (&store.UpdateOptions{}).SetUpsert(true))
		if err != nil {
			return ioError(ancestor, err)
		}
	}
	return nil
}
