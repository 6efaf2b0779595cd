package tools

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/policy"
	"github.com/agentfs/agentfs/internal/types"
)

// KVProvider exposes the key-value tools.
type KVProvider struct {
	store *kv.Store
}

// NewKVProvider creates the key-value tool provider.
func NewKVProvider(store *kv.Store) *KVProvider {
	return &KVProvider{store: store}
}

// Tools returns the key-value tool definitions.
func (p *KVProvider) Tools() []types.Tool {
	return []types.Tool{
		{
			Name:        "kv_get",
			Description: "Read the value stored under a key",
			Parameters: []types.Parameter{
				{Name: "key", Type: "string", Description: "Key to look up", Required: true},
			},
			Hints:   types.Hints{ReadOnly: true, Idempotent: true},
			Handler: p.get,
		},
		{
			Name:        "kv_set",
			Description: "Store a value under a key, overwriting any previous value",
			Parameters: []types.Parameter{
				{Name: "key", Type: "string", Description: "Key to store under", Required: true},
				{Name: "value", Description: "Value to store", Required: true},
			},
			Hints:   types.Hints{Idempotent: true},
			Handler: p.set,
		},
	}
}

func (p *KVProvider) get(ctx context.Context, args map[string]any) (*types.Result, error) {
	value, err := p.store.Get(ctx, argString(args, "key"))
	if err != nil {
		return nil, err
	}

	payload, err := sonic.MarshalString(value)
	if err != nil {
		return nil, err
	}
	return types.TextResult(payload), nil
}

func (p *KVProvider) set(ctx context.Context, args map[string]any) (*types.Result, error) {
	key := argString(args, "key")
	if key == "" {
		return nil, policy.InvalidParams("key must be a non-empty string")
	}

	if err := p.store.Set(ctx, key, args["value"]); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("stored %q", key)), nil
}
