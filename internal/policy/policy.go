// Package policy wraps tool handlers with parameter validation, a per-call
// timeout, bounded retry with exponential backoff, and optional audit
// recording.
//
// The wrapper owns the tool boundary: whatever a handler does, the caller
// sees either a success result or a structured error payload. Audit
// recording is strictly transparent, it never changes a call's outcome and
// its own failures are swallowed.
package policy

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/shared/id"
	"github.com/agentfs/agentfs/internal/types"
)

// Config controls timeout and retry behavior.
type Config struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration
	// BackoffCap bounds the delay between retries.
	BackoffCap time.Duration
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64
	// Jitter randomizes each delay by ±this fraction.
	Jitter float64
}

// DefaultConfig returns the standard execution policy.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		BackoffBase: time.Second,
		BackoffCap:  30 * time.Second,
		Multiplier:  2,
		Jitter:      0.25,
	}
}

// AuditSink receives one record per wrapped call. audit.Log satisfies it.
type AuditSink interface {
	Record(ctx context.Context, tool string, inputs, outputs map[string]any, opts *audit.RecordOptions) (id.AuditID, error)
}

// Metrics observes wrapped calls. monitoring.Metrics satisfies it.
type Metrics interface {
	ObserveToolCall(tool string, duration time.Duration, success bool)
	ObserveRetry(tool string)
	ObserveTimeout(tool string)
}

// Policy applies the execution policy to tool handlers.
type Policy struct {
	cfg     Config
	logger  *zap.Logger
	sink    AuditSink
	metrics Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger for swallowed audit failures.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// WithAudit enables transparent audit recording.
func WithAudit(sink AuditSink) Option {
	return func(p *Policy) { p.sink = sink }
}

// WithMetrics enables call observation.
func WithMetrics(m Metrics) Option {
	return func(p *Policy) { p.metrics = m }
}

// WithSleep overrides the backoff sleeper, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.sleep = sleep }
}

// New creates a policy. Zero config fields fall back to defaults.
func New(cfg Config, opts ...Option) *Policy {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = def.Jitter
	}

	p := &Policy{
		cfg:    cfg,
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wrap returns the tool's handler with the full policy applied: validation,
// timeout, retry, audit. The wrapped handler never returns a Go error; every
// fault becomes a structured payload in an IsError result.
func (p *Policy) Wrap(tool types.Tool) types.Handler {
	return func(ctx context.Context, args map[string]any) (*types.Result, error) {
		if verr := ValidateParams(tool.Parameters, args); verr != nil {
			return errorResult(verr), nil
		}

		start := time.Now()
		res, err := p.execute(ctx, tool.Name, tool.Handler, args)
		end := time.Now()

		if p.metrics != nil {
			p.metrics.ObserveToolCall(tool.Name, end.Sub(start), err == nil)
		}

		var out *types.Result
		switch {
		case err != nil:
			out = errorResult(Classify(err))
		case res == nil:
			// A handler may legally return (nil, nil); callers and the
			// audit sink still get a result.
			out = &types.Result{}
		default:
			out = res
		}

		p.record(ctx, tool.Name, args, out, start, end)
		return out, nil
	}
}

// execute runs the attempt loop: retry only on retryable errors, give up
// after MaxRetries+1 attempts, surface the last error.
func (p *Policy) execute(ctx context.Context, tool string, handler types.Handler, args map[string]any) (*types.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if p.metrics != nil {
				p.metrics.ObserveRetry(tool)
			}
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		res, err := p.attempt(ctx, tool, handler, args)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// attempt races the handler against the timeout. The handler is not
// cancelled when the timer wins; its late result lands in the buffered
// channel and is discarded.
func (p *Policy) attempt(ctx context.Context, tool string, handler types.Handler, args map[string]any) (*types.Result, error) {
	type outcome struct {
		res *types.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := handler(ctx, args)
		done <- outcome{res, err}
	}()

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.res, out.err
	case <-timer.C:
		if p.metrics != nil {
			p.metrics.ObserveTimeout(tool)
		}
		return nil, &Error{Code: CodeTimeout, Message: "operation timed out after " + p.cfg.Timeout.String()}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// backoff returns the delay before the given retry attempt (attempt >= 1):
// exponential growth, capped, with symmetric jitter.
func (p *Policy) backoff(attempt int) time.Duration {
	d := float64(p.cfg.BackoffBase) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if limit := float64(p.cfg.BackoffCap); d > limit {
		d = limit
	}
	d *= 1 + p.cfg.Jitter*(2*rand.Float64()-1)
	return time.Duration(d)
}

// record writes the audit entry. Failures are logged and swallowed.
func (p *Policy) record(ctx context.Context, tool string, args map[string]any, res *types.Result, start, end time.Time) {
	if p.sink == nil {
		return
	}

	outputs := map[string]any{"is_error": res.IsError}
	if len(res.Content) > 0 {
		outputs["content"] = res.Content[0].Text
	}

	_, err := p.sink.Record(ctx, tool, args, outputs, &audit.RecordOptions{
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		p.logger.Warn("audit record failed", zap.String("tool", tool), zap.Error(err))
	}
}

func errorResult(perr *Error) *types.Result {
	payload, err := sonic.MarshalString(perr)
	if err != nil {
		payload = perr.Error()
	}
	return types.ErrorResult(payload)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
