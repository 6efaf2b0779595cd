package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/shared/id"
	"github.com/agentfs/agentfs/internal/store/memory"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func decodePayload(t *testing.T, res *types.Result) *Error {
	t.Helper()
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	var perr Error
	require.NoError(t, sonic.UnmarshalString(res.Content[0].Text, &perr))
	return &perr
}

func TestWrapSuccess(t *testing.T) {
	p := New(Config{}, WithSleep(noSleep))

	handler := p.Wrap(types.Tool{
		Name: "echo",
		Parameters: []types.Parameter{
			{Name: "text", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			return types.TextResult(args["text"].(string)), nil
		},
	})

	res, err := handler(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "hi", res.Content[0].Text)
}

func TestWrapValidation(t *testing.T) {
	called := false
	p := New(Config{}, WithSleep(noSleep))

	handler := p.Wrap(types.Tool{
		Name: "echo",
		Parameters: []types.Parameter{
			{Name: "text", Type: "string", Required: true},
			{Name: "count", Type: "number", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			called = true
			return types.TextResult("ok"), nil
		},
	})
	ctx := context.Background()

	res, err := handler(ctx, map[string]any{})
	require.NoError(t, err)
	perr := decodePayload(t, res)
	assert.Equal(t, CodeInvalidParams, perr.Code)
	assert.False(t, perr.Retryable)
	assert.False(t, called)

	res, err = handler(ctx, map[string]any{"text": "hi", "count": "three"})
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidParams, decodePayload(t, res).Code)
	assert.False(t, called)

	res, err = handler(ctx, map[string]any{"text": "hi", "count": 3})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.True(t, called)
}

func TestWrapTimeout(t *testing.T) {
	p := New(Config{Timeout: 50 * time.Millisecond}, WithSleep(noSleep))

	handler := p.Wrap(types.Tool{
		Name: "hang",
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			<-make(chan struct{})
			return nil, nil
		},
	})

	start := time.Now()
	res, err := handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, CodeTimeout, decodePayload(t, res).Code)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryOnlyRetryableErrors(t *testing.T) {
	t.Run("retryable exhausts attempts", func(t *testing.T) {
		attempts := 0
		p := New(Config{MaxRetries: 3}, WithSleep(noSleep))

		handler := p.Wrap(types.Tool{
			Name: "flaky",
			Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
				attempts++
				return nil, &vfs.Error{Code: vfs.EIO, Path: "/f", Message: "store unavailable", Retryable: true}
			},
		})

		res, err := handler(context.Background(), nil)
		require.NoError(t, err)
		perr := decodePayload(t, res)
		assert.Equal(t, string(vfs.EIO), perr.Code)
		assert.True(t, perr.Retryable)
		assert.Equal(t, 4, attempts)
	})

	t.Run("fatal fails fast", func(t *testing.T) {
		attempts := 0
		p := New(Config{MaxRetries: 3}, WithSleep(noSleep))

		handler := p.Wrap(types.Tool{
			Name: "missing",
			Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
				attempts++
				return nil, &vfs.Error{Code: vfs.ENOENT, Path: "/f", Message: "no such file"}
			},
		})

		res, err := handler(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, string(vfs.ENOENT), decodePayload(t, res).Code)
		assert.Equal(t, 1, attempts)
	})

	t.Run("recovers mid-retry", func(t *testing.T) {
		attempts := 0
		p := New(Config{MaxRetries: 3}, WithSleep(noSleep))

		handler := p.Wrap(types.Tool{
			Name: "flaky",
			Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
				attempts++
				if attempts < 3 {
					return nil, &vfs.Error{Code: vfs.EIO, Retryable: true}
				}
				return types.TextResult("ok"), nil
			},
		})

		res, err := handler(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, 3, attempts)
	})
}

func TestBackoffBounds(t *testing.T) {
	p := New(Config{
		BackoffBase: time.Second,
		BackoffCap:  30 * time.Second,
		Multiplier:  2,
		Jitter:      0.25,
	}, WithSleep(noSleep))

	for attempt, want := range map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		9: 30 * time.Second, // capped
	} {
		d := p.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(float64(want)*0.75), "attempt %d", attempt)
		assert.LessOrEqual(t, d, time.Duration(float64(want)*1.25), "attempt %d", attempt)
	}
}

func TestAuditRecording(t *testing.T) {
	st := memory.New()
	log := audit.New(st)
	p := New(Config{}, WithSleep(noSleep), WithAudit(log))

	handler := p.Wrap(types.Tool{
		Name: "echo",
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			return types.TextResult("out"), nil
		},
	})

	_, err := handler(context.Background(), map[string]any{"in": "x"})
	require.NoError(t, err)

	entries, err := log.FindByTool(context.Background(), "echo")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].Inputs["in"])
	assert.Equal(t, "out", entries[0].Outputs["content"])
	assert.Equal(t, false, entries[0].Outputs["is_error"])
	require.NotNil(t, entries[0].DurationMs)
}

func TestNilResultHandlerRecorded(t *testing.T) {
	st := memory.New()
	log := audit.New(st)
	p := New(Config{}, WithSleep(noSleep), WithAudit(log))

	handler := p.Wrap(types.Tool{
		Name: "noop",
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			return nil, nil
		},
	})

	res, err := handler(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.IsError)
	assert.Empty(t, res.Content)

	entries, err := log.FindByTool(context.Background(), "noop")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, false, entries[0].Outputs["is_error"])
}

type failingSink struct{}

func (failingSink) Record(ctx context.Context, tool string, inputs, outputs map[string]any, opts *audit.RecordOptions) (id.AuditID, error) {
	return "", errors.New("sink down")
}

func TestAuditFailureSwallowed(t *testing.T) {
	p := New(Config{}, WithSleep(noSleep), WithAudit(failingSink{}))

	handler := p.Wrap(types.Tool{
		Name: "echo",
		Handler: func(ctx context.Context, args map[string]any) (*types.Result, error) {
			return types.TextResult("ok"), nil
		},
	})

	res, err := handler(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "ok", res.Content[0].Text)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"vfs not found", &vfs.Error{Code: vfs.ENOENT, Message: "gone"}, "ENOENT", false},
		{"vfs io", &vfs.Error{Code: vfs.EIO, Message: "down", Retryable: true}, "EIO", true},
		{"key not found", kv.ErrKeyNotFound, CodeKeyNotFound, false},
		{"immutable", audit.ErrImmutable, CodeImmutable, false},
		{"audit missing", audit.ErrNotFound, CodeNotFound, false},
		{"unknown", errors.New("boom"), CodeInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			perr := Classify(tc.err)
			assert.Equal(t, tc.code, perr.Code)
			assert.Equal(t, tc.retryable, perr.Retryable)
		})
	}
}
