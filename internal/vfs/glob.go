package vfs

import (
	"context"
	"sort"

	"github.com/agentfs/agentfs/internal/glob"
	"github.com/agentfs/agentfs/internal/store"
)

// Glob returns every file path matching the pattern, lexically sorted.
// Directories never appear in the result. The pattern is matched against
// canonical paths with the leading slash ignored, so "src/*.go" and
// "/src/*.go" agree.
func (fs *FS) Glob(ctx context.Context, pattern string, opts glob.Options) ([]string, error) {
	matcher, err := glob.NewMatcher([]string{pattern}, opts)
	if err != nil {
		return nil, invalidArgument(pattern, err.Error())
	}
	return fs.globMatcher(ctx, matcher)
}

// GlobSet is Glob over an include/exclude pattern set.
func (fs *FS) GlobSet(ctx context.Context, patterns []string, opts glob.Options) ([]string, error) {
	matcher, err := glob.NewMatcher(patterns, opts)
	if err != nil {
		return nil, invalidArgument("", err.Error())
	}
	return fs.globMatcher(ctx, matcher)
}

func (fs *FS) globMatcher(ctx context.Context, matcher *glob.Matcher) ([]string, error) {
	docs, err := fs.files.Find(ctx, store.Eq(fieldType, string(TypeFile)))
	if err != nil {
		return nil, ioError("", err)
	}

	var out []string
	for _, doc := range docs {
		path := docString(doc, fieldPath)
		if matcher.Match(path) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
