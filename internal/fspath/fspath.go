// Package fspath provides lexical path resolution for the virtual filesystem.
//
// Paths are always absolute, use forward slashes, and carry no trailing slash
// except for the root itself. Resolution is purely lexical: there are no
// symlinks in the virtual tree, so `.` and `..` are folded without touching
// the store.
package fspath

import "strings"

// Root is the canonical root path.
const Root = "/"

// Normalize converts an arbitrary path into canonical form: leading slash
// forced, repeated slashes collapsed, `.` and `..` resolved lexically with
// `..` clamped at the root, trailing slash stripped except for the root.
// An empty path normalizes to the root. Normalize is idempotent.
func Normalize(path string) string {
	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			// Collapsed slash or current dir, nothing to add.
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return Root
	}
	return "/" + strings.Join(segments, "/")
}

// Basename returns the final segment of a normalized path, "" for the root.
func Basename(path string) string {
	path = Normalize(path)
	if path == Root {
		return ""
	}
	return path[strings.LastIndex(path, "/")+1:]
}

// Dir returns the parent of a normalized path. The parent of the root is
// the root.
func Dir(path string) string {
	path = Normalize(path)
	if path == Root {
		return Root
	}
	idx := strings.LastIndex(path, "/")
	if idx == 0 {
		return Root
	}
	return path[:idx]
}

// IsRoot reports whether the path normalizes to the root.
func IsRoot(path string) bool {
	return Normalize(path) == Root
}

// Split returns the segments of a normalized path, nil for the root.
func Split(path string) []string {
	path = Normalize(path)
	if path == Root {
		return nil
	}
	return strings.Split(path[1:], "/")
}

// Ancestors returns every proper ancestor of a normalized path excluding the
// root, ordered nearest-root first. The root and top-level paths have none.
func Ancestors(path string) []string {
	segments := Split(path)
	if len(segments) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segments)-1)
	prefix := ""
	for _, seg := range segments[:len(segments)-1] {
		prefix += "/" + seg
		out = append(out, prefix)
	}
	return out
}

// IsDescendant reports whether child sits strictly below parent. Both paths
// are normalized before comparison; the root is an ancestor of everything
// but itself.
func IsDescendant(parent, child string) bool {
	parent = Normalize(parent)
	child = Normalize(child)
	if child == parent {
		return false
	}
	if parent == Root {
		return true
	}
	return strings.HasPrefix(child, parent+"/")
}
