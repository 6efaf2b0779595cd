package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/policy"
	"github.com/agentfs/agentfs/internal/search"
	"github.com/agentfs/agentfs/internal/store/memory"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

func newRegistry(t *testing.T, opts ...policy.Option) (*Registry, *vfs.FS, *audit.Log) {
	t.Helper()

	st := memory.New()
	fs := vfs.New(st)
	log := audit.New(st)

	opts = append([]policy.Option{
		policy.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	}, opts...)
	pol := policy.New(policy.Config{}, opts...)

	reg := NewRegistry(pol)
	require.NoError(t, reg.RegisterProvider(NewFSProvider(fs)))
	require.NoError(t, reg.RegisterProvider(NewSearchProvider(search.New(fs, nil))))
	require.NoError(t, reg.RegisterProvider(NewKVProvider(kv.New(st))))
	require.NoError(t, reg.RegisterProvider(NewAuditProvider(log)))
	return reg, fs, log
}

func payloadOf(t *testing.T, res *types.Result) *policy.Error {
	t.Helper()
	require.True(t, res.IsError)
	var perr policy.Error
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &perr))
	return &perr
}

func TestRegistryListSorted(t *testing.T) {
	reg, _, _ := newRegistry(t)

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"audit_list", "edit", "glob", "grep", "kv_get", "kv_set", "read", "write"}, names)
}

func TestRegistryDuplicate(t *testing.T) {
	reg, fs, _ := newRegistry(t)
	err := reg.RegisterProvider(NewFSProvider(fs))
	assert.ErrorContains(t, err, "already registered")
}

func TestExecuteUnknownTool(t *testing.T) {
	reg, _, _ := newRegistry(t)

	res, err := reg.Execute(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.Equal(t, policy.CodeToolNotFound, payloadOf(t, res).Code)
}

func TestExecuteValidatesParams(t *testing.T) {
	reg, _, _ := newRegistry(t)

	res, err := reg.Execute(context.Background(), "read", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, policy.CodeInvalidParams, payloadOf(t, res).Code)
}

func TestWriteReadRoundTrip(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	res, err := reg.Execute(ctx, "write", map[string]any{"path": "/a/b.txt", "content": "hello"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = reg.Execute(ctx, "read", map[string]any{"path": "/a/b.txt"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "hello", res.Content[0].Text)
}

func TestReadMissing(t *testing.T) {
	reg, _, _ := newRegistry(t)

	res, err := reg.Execute(context.Background(), "read", map[string]any{"path": "/nope"})
	require.NoError(t, err)
	perr := payloadOf(t, res)
	assert.Equal(t, "ENOENT", perr.Code)
	assert.False(t, perr.Retryable)
}

func TestGlobTool(t *testing.T) {
	reg, fs, _ := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/src/a.go", "x"))
	require.NoError(t, fs.WriteFile(ctx, "/src/b.md", "x"))

	res, err := reg.Execute(ctx, "glob", map[string]any{"pattern": "**/*.go"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var paths []string
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &paths))
	assert.Equal(t, []string{"/src/a.go"}, paths)
}

func TestGrepTool(t *testing.T) {
	reg, fs, _ := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f.txt", "alpha\nbeta\n"))

	res, err := reg.Execute(ctx, "grep", map[string]any{"pattern": "beta", "context_lines": float64(1)})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var matches []search.Match
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Line)
	assert.Equal(t, []string{"alpha"}, matches[0].Context.Before)
}

func TestGrepToolInvalidPattern(t *testing.T) {
	reg, _, _ := newRegistry(t)

	res, err := reg.Execute(context.Background(), "grep", map[string]any{"pattern": "(bad"})
	require.NoError(t, err)
	assert.Equal(t, policy.CodePattern, payloadOf(t, res).Code)
}

func TestEditTool(t *testing.T) {
	reg, fs, _ := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f.txt", "one two one"))

	res, err := reg.Execute(ctx, "edit", map[string]any{
		"path":       "/f.txt",
		"old_string": "one",
		"new_string": "three",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	// Only the first occurrence is replaced, literally.
	content, err := fs.ReadFile(ctx, "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "three two one", content)
}

func TestEditToolOldStringMissing(t *testing.T) {
	reg, fs, _ := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f.txt", "short content"))

	missing := strings.Repeat("z", 200)
	res, err := reg.Execute(ctx, "edit", map[string]any{
		"path":       "/f.txt",
		"old_string": missing,
		"new_string": "x",
	})
	require.NoError(t, err)
	perr := payloadOf(t, res)
	assert.Equal(t, policy.CodeInvalidParams, perr.Code)
	assert.Contains(t, perr.Message, "not found")
	// The echoed old_string is truncated.
	assert.Less(t, len(perr.Message), len(missing))
}

func TestKVTools(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	res, err := reg.Execute(ctx, "kv_set", map[string]any{"key": "k", "value": map[string]any{"v": 2}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = reg.Execute(ctx, "kv_get", map[string]any{"key": "k"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"v":2}`, res.Content[0].Text)

	res, err = reg.Execute(ctx, "kv_get", map[string]any{"key": "missing"})
	require.NoError(t, err)
	assert.Equal(t, policy.CodeKeyNotFound, payloadOf(t, res).Code)
}

func TestAuditListTool(t *testing.T) {
	st := memory.New()
	log := audit.New(st)

	pol := policy.New(policy.Config{},
		policy.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		policy.WithAudit(log),
	)
	reg := NewRegistry(pol)
	fs := vfs.New(st)
	require.NoError(t, reg.RegisterProvider(NewFSProvider(fs)))
	require.NoError(t, reg.RegisterProvider(NewAuditProvider(log)))
	ctx := context.Background()

	_, err := reg.Execute(ctx, "write", map[string]any{"path": "/f.txt", "content": "x"})
	require.NoError(t, err)
	_, err = reg.Execute(ctx, "read", map[string]any{"path": "/f.txt"})
	require.NoError(t, err)

	res, err := reg.Execute(ctx, "audit_list", map[string]any{"tool": "write"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var entries []map[string]any
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "write", entries[0]["tool"])
}
