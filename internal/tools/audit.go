package tools

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/types"
)

// AuditProvider exposes read access to the audit log.
type AuditProvider struct {
	log *audit.Log
}

// NewAuditProvider creates the audit tool provider.
func NewAuditProvider(log *audit.Log) *AuditProvider {
	return &AuditProvider{log: log}
}

// Tools returns the audit tool definitions.
func (p *AuditProvider) Tools() []types.Tool {
	return []types.Tool{
		{
			Name:        "audit_list",
			Description: "List recorded tool invocations in ascending timestamp order",
			Parameters: []types.Parameter{
				{Name: "tool", Type: "string", Description: "Only entries for this tool"},
				{Name: "limit", Type: "number", Description: "Maximum entries to return"},
				{Name: "offset", Type: "number", Description: "Entries to skip"},
			},
			Hints:   types.Hints{ReadOnly: true, Idempotent: true},
			Handler: p.list,
		},
	}
}

func (p *AuditProvider) list(ctx context.Context, args map[string]any) (*types.Result, error) {
	entries, err := p.log.List(ctx, audit.ListOptions{
		Tool:   argString(args, "tool"),
		Limit:  int64(argInt(args, "limit")),
		Offset: int64(argInt(args, "offset")),
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	payload, err := sonic.MarshalString(entries)
	if err != nil {
		return nil, err
	}
	return types.TextResult(payload), nil
}
