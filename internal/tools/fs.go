package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/agentfs/agentfs/internal/glob"
	"github.com/agentfs/agentfs/internal/policy"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

// oldStringPreview bounds how much of a missing old_string the edit error
// echoes back.
const oldStringPreview = 80

// FSProvider exposes the virtual filesystem tools.
type FSProvider struct {
	fs *vfs.FS
}

// NewFSProvider creates the filesystem tool provider.
func NewFSProvider(fs *vfs.FS) *FSProvider {
	return &FSProvider{fs: fs}
}

// Tools returns the filesystem tool definitions.
func (p *FSProvider) Tools() []types.Tool {
	return []types.Tool{
		{
			Name:        "glob",
			Description: "Find files matching a glob pattern, sorted lexically",
			Parameters: []types.Parameter{
				{Name: "pattern", Type: "string", Description: "Glob pattern, e.g. src/**/*.go", Required: true},
				{Name: "nocase", Type: "boolean", Description: "Case-insensitive matching"},
				{Name: "dot", Type: "boolean", Description: "Let wildcards match dot-prefixed segments"},
			},
			Hints:   types.Hints{ReadOnly: true, Idempotent: true},
			Handler: p.glob,
		},
		{
			Name:        "read",
			Description: "Read the content of a file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Absolute file path", Required: true},
			},
			Hints:   types.Hints{ReadOnly: true, Idempotent: true},
			Handler: p.read,
		},
		{
			Name:        "write",
			Description: "Write a file, creating missing parent directories",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Absolute file path", Required: true},
				{Name: "content", Type: "string", Description: "Full file content", Required: true},
			},
			Hints:   types.Hints{Idempotent: true},
			Handler: p.write,
		},
		{
			Name:        "edit",
			Description: "Replace the first occurrence of an exact substring in a file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Absolute file path", Required: true},
				{Name: "old_string", Type: "string", Description: "Exact text to replace", Required: true},
				{Name: "new_string", Type: "string", Description: "Replacement text", Required: true},
			},
			Handler: p.edit,
		},
	}
}

func (p *FSProvider) glob(ctx context.Context, args map[string]any) (*types.Result, error) {
	paths, err := p.fs.Glob(ctx, argString(args, "pattern"), glob.Options{
		NoCase: argBool(args, "nocase"),
		Dot:    argBool(args, "dot"),
	})
	if err != nil {
		return nil, err
	}
	if paths == nil {
		paths = []string{}
	}

	payload, err := sonic.MarshalString(paths)
	if err != nil {
		return nil, err
	}
	return types.TextResult(payload), nil
}

func (p *FSProvider) read(ctx context.Context, args map[string]any) (*types.Result, error) {
	content, err := p.fs.ReadFile(ctx, argString(args, "path"))
	if err != nil {
		return nil, err
	}
	return types.TextResult(content), nil
}

func (p *FSProvider) write(ctx context.Context, args map[string]any) (*types.Result, error) {
	path := argString(args, "path")
	content := argString(args, "content")
	if err := p.fs.WriteFile(ctx, path, content); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
}

// edit reads the file, requires old_string to be present verbatim, replaces
// its first occurrence literally and writes the result back.
func (p *FSProvider) edit(ctx context.Context, args map[string]any) (*types.Result, error) {
	path := argString(args, "path")
	oldStr := argString(args, "old_string")
	newStr := argString(args, "new_string")

	if oldStr == "" {
		return nil, policy.InvalidParams("old_string must not be empty")
	}

	content, err := p.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(content, oldStr) {
		return nil, policy.InvalidParams("old_string not found in %s: %q", path, preview(oldStr))
	}

	if err := p.fs.WriteFile(ctx, path, strings.Replace(content, oldStr, newStr, 1)); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("edited %s", path)), nil
}

func preview(s string) string {
	if len(s) <= oldStringPreview {
		return s
	}
	return s[:oldStringPreview] + "..."
}
