package integration

import (
	"context"
	"fmt"
	"sync"
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
	"github.com/agentfs/agentfs/internal/tools"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

type stack struct {
	fs       *vfs.FS
	kv       *kv.Store
	audit    *audit.Log
	registry *tools.Registry
}

func newStack(t *testing.T) *stack {
	t.Helper()

	st := memory.New()
	fs := vfs.New(st)
	kvStore := kv.New(st)
	auditLog := audit.New(st)

	pol := policy.New(policy.Config{},
		policy.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		policy.WithAudit(auditLog),
	)

	registry := tools.NewRegistry(pol)
	require.NoError(t, registry.RegisterProvider(tools.NewFSProvider(fs)))
	require.NoError(t, registry.RegisterProvider(tools.NewSearchProvider(search.New(fs, nil))))
	require.NoError(t, registry.RegisterProvider(tools.NewKVProvider(kvStore)))
	require.NoError(t, registry.RegisterProvider(tools.NewAuditProvider(auditLog)))

	return &stack{fs: fs, kv: kvStore, audit: auditLog, registry: registry}
}

func TestFilesystemLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	require.NoError(t, s.fs.WriteFile(ctx, "/a/b/c.txt", "hi"))

	// Ancestors exist as directories.
	for _, dir := range []string{"/a", "/a/b"} {
		info, err := s.fs.Stat(ctx, dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), dir)
	}

	content, err := s.fs.ReadFile(ctx, "/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", content)

	// Non-empty directory refuses removal.
	err = s.fs.Rmdir(ctx, "/a/b")
	assert.Equal(t, vfs.ENOTEMPTY, vfs.CodeOf(err))

	// Bottom-up teardown succeeds.
	require.NoError(t, s.fs.DeleteFile(ctx, "/a/b/c.txt"))
	require.NoError(t, s.fs.Rmdir(ctx, "/a/b"))
	require.NoError(t, s.fs.Rmdir(ctx, "/a"))

	exists, err := s.fs.Exists(ctx, "/a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeyValueLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	require.NoError(t, s.kv.Set(ctx, "k", map[string]any{"v": int64(1)}))
	require.NoError(t, s.kv.Set(ctx, "k", map[string]any{"v": int64(2)}))

	v, err := s.kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": int64(2)}, v)

	keys, err := s.kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	removed, err := s.kv.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.kv.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestToolWorkflowWithAuditTrail(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	exec := func(tool string, args map[string]any) *types.Result {
		t.Helper()
		res, err := s.registry.Execute(ctx, tool, args)
		require.NoError(t, err)
		require.False(t, res.IsError, "%s: %v", tool, res.Content)
		return res
	}

	exec("write", map[string]any{"path": "/src/main.go", "content": "package main\n\nfunc main() {}\n"})
	exec("write", map[string]any{"path": "/src/util.go", "content": "package main\n\nfunc helper() {}\n"})

	res := exec("grep", map[string]any{"pattern": "func \\w+", "glob": "src/**/*.go"})
	var matches []search.Match
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "/src/main.go", matches[0].File)

	exec("edit", map[string]any{
		"path":       "/src/util.go",
		"old_string": "helper",
		"new_string": "Helper",
	})

	res = exec("read", map[string]any{"path": "/src/util.go"})
	assert.Contains(t, res.Content[0].Text, "func Helper()")

	// Every call above was recorded.
	entries, err := s.audit.List(ctx, audit.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Tool
		if i > 0 {
			assert.False(t, e.Timestamp.Before(entries[i-1].Timestamp))
		}
	}
	assert.ElementsMatch(t, []string{"write", "write", "grep", "edit", "read"}, names)

	// The trail is readable through the protocol too.
	res = exec("audit_list", map[string]any{"tool": "edit"})
	var listed []map[string]any
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "edit", listed[0]["tool"])
}

func TestConcurrentWritesLastWriteWins(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	values := make([]string, 8)
	for i := range values {
		values[i] = fmt.Sprintf("writer-%d", i)
	}

	for _, v := range values {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			_ = s.fs.WriteFile(ctx, "/shared.txt", content)
		}(v)
	}
	wg.Wait()

	// Exactly one node, holding any one of the written values.
	content, err := s.fs.ReadFile(ctx, "/shared.txt")
	require.NoError(t, err)
	assert.Contains(t, values, content)

	entries, err := s.fs.Readdir(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared.txt"}, entries)
}

func TestErrorsCrossToolBoundaryAsPayloads(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	res, err := s.registry.Execute(ctx, "read", map[string]any{"path": "/missing"})
	require.NoError(t, err)
	require.True(t, res.IsError)

	var perr policy.Error
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &perr))
	assert.Equal(t, "ENOENT", perr.Code)
	assert.False(t, perr.Retryable)
}
