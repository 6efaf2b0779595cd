// Package tools exposes the filesystem, search, key-value and audit
// operations through the tool protocol.
//
// Every handler is wrapped by the execution policy at registration, so
// callers of Execute always get a result envelope and never a raw fault.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/agentfs/agentfs/internal/policy"
	"github.com/agentfs/agentfs/internal/types"
)

// Provider bundles related tool definitions.
type Provider interface {
	Tools() []types.Tool
}

// Registry holds the registered tools.
type Registry struct {
	pol *policy.Policy

	mu    sync.RWMutex
	tools map[string]types.Tool
}

// NewRegistry creates a registry wrapping every handler with the policy.
func NewRegistry(pol *policy.Policy) *Registry {
	return &Registry{
		pol:   pol,
		tools: make(map[string]types.Tool),
	}
}

// Register adds one tool, wrapping its handler.
func (r *Registry) Register(tool types.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tools: tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tools: tool %q has no handler", tool.Name)
	}

	tool.Handler = r.pol.Wrap(tool)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tools: tool %q already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// RegisterProvider adds every tool of a provider.
func (r *Registry) RegisterProvider(p Provider) error {
	for _, tool := range p.Tools() {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one registered tool.
func (r *Registry) Get(name string) (types.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns every registered tool, sorted by name.
func (r *Registry) List() []types.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs one tool by name. An unknown name produces a structured
// tool-not-found result, not a Go error.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*types.Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		payload, err := sonic.MarshalString(&policy.Error{
			Code:    policy.CodeToolNotFound,
			Message: fmt.Sprintf("unknown tool %q", name),
		})
		if err != nil {
			payload = fmt.Sprintf("unknown tool %q", name)
		}
		return types.ErrorResult(payload), nil
	}
	return tool.Handler(ctx, args)
}
