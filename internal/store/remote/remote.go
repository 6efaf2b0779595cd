// Package remote implements the store contract over the database server's
// HTTP wire protocol.
//
// Each collection operation is one POST to /v1/<collection>/<op> carrying a
// JSON body in the server's operator subset: exact-match fields, `$regex`,
// `$set`, and an `upsert` flag. Transport and server faults surface as
// retryable store errors; the policy layer decides whether to retry.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/infrastructure/resilience"
	"github.com/agentfs/agentfs/internal/store"
)

// Error is a transport or server failure talking to the database.
type Error struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote store: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote store: %s", e.Message)
}

// Config configures the remote store client.
type Config struct {
	// Address is the database server base URL, e.g. "http://localhost:7420".
	Address string
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration
	// RetryMax bounds transport-level retries below the policy layer.
	RetryMax int
}

// Store is a store.Store over the HTTP wire protocol.
type Store struct {
	base    string
	client  *retryablehttp.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
	closed  atomic.Bool
}

// New creates a remote store client. The logger receives transport noise;
// it never reaches tool payloads.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("remote store: address required")
	}
	if _, err := url.Parse(cfg.Address); err != nil {
		return nil, fmt.Errorf("remote store: invalid address %q: %w", cfg.Address, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil

	breaker := resilience.New("store", resilience.Settings{
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("store circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Store{base: cfg.Address, client: client, breaker: breaker, logger: logger}, nil
}

// Collection returns a handle for one named collection.
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name}
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.closed.Store(true)
	s.client.HTTPClient.CloseIdleConnections()
	return nil
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

// request is the wire shape of one collection operation.
type request struct {
	Filter   map[string]any `json:"filter,omitempty"`
	Document store.Document `json:"document,omitempty"`
	Update   map[string]any `json:"update,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// response is the wire shape of one operation result.
type response struct {
	Document      store.Document   `json:"document,omitempty"`
	Documents     []store.Document `json:"documents,omitempty"`
	InsertedID    string           `json:"insertedId,omitempty"`
	MatchedCount  int64            `json:"matchedCount,omitempty"`
	ModifiedCount int64            `json:"modifiedCount,omitempty"`
	UpsertedCount int64            `json:"upsertedCount,omitempty"`
	UpsertedID    string           `json:"upsertedId,omitempty"`
	DeletedCount  int64            `json:"deletedCount,omitempty"`
	Count         int64            `json:"count,omitempty"`
	Error         string           `json:"error,omitempty"`
}

func (c *collection) call(ctx context.Context, op string, req request) (*response, error) {
	if c.store.closed.Load() {
		return nil, store.ErrClosed
	}

	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote store: encode %s: %w", op, err)
	}

	// The breaker counts transport failures and 5xx responses; a 4xx means
	// the server is reachable and does not trip it.
	var parsed *response
	var callErr error
	berr := c.store.breaker.Do(func() error {
		parsed, callErr = c.roundTrip(ctx, op, body)
		var rerr *Error
		if errors.As(callErr, &rerr) && !rerr.Retryable {
			return nil
		}
		return callErr
	})
	if errors.Is(berr, resilience.ErrCircuitOpen) || errors.Is(berr, resilience.ErrTooManyRequests) {
		return nil, &Error{Message: berr.Error(), Retryable: true}
	}
	if callErr != nil {
		return nil, callErr
	}
	return parsed, nil
}

func (c *collection) roundTrip(ctx context.Context, op string, body []byte) (*response, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/%s", c.store.base, url.PathEscape(c.name), op)
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote store: build %s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.store.client.Do(httpReq)
	if err != nil {
		c.store.logger.Warn("store request failed",
			zap.String("collection", c.name),
			zap.String("op", op),
			zap.Error(err))
		return nil, &Error{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Retryable: true}
	}

	var parsed response
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &parsed); err != nil {
			return nil, &Error{Status: resp.StatusCode, Message: "malformed response", Retryable: false}
		}
	}

	if resp.StatusCode >= 500 {
		return nil, &Error{Status: resp.StatusCode, Message: parsed.Error, Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Status: resp.StatusCode, Message: parsed.Error, Retryable: false}
	}
	return &parsed, nil
}

// encodeFilter lowers the predicate union into the server's operator subset.
func encodeFilter(filter store.Filter) map[string]any {
	out := make(map[string]any, len(filter))
	for _, pred := range filter {
		switch p := pred.(type) {
		case store.ExactMatch:
			out[p.Field] = p.Value
		case store.RegexMatch:
			out[p.Field] = map[string]any{"$regex": p.Pattern}
		}
	}
	return out
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	resp, err := c.call(ctx, "findOne", request{Filter: encodeFilter(filter)})
	if err != nil {
		return nil, err
	}
	if resp.Document == nil {
		return nil, store.ErrNoDocuments
	}
	return resp.Document, nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts ...*store.FindOptions) ([]store.Document, error) {
	options := make(map[string]any)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.SortField != "" {
			dir := 1
			if opt.SortDesc {
				dir = -1
			}
			options["sort"] = map[string]any{opt.SortField: dir}
		}
		if opt.Limit != nil {
			options["limit"] = *opt.Limit
		}
		if opt.Skip != nil {
			options["skip"] = *opt.Skip
		}
	}

	resp, err := c.call(ctx, "find", request{Filter: encodeFilter(filter), Options: options})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	resp, err := c.call(ctx, "insertOne", request{Document: doc})
	if err != nil {
		return "", err
	}
	return resp.InsertedID, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document, opts ...*store.UpdateOptions) (*store.UpdateResult, error) {
	options := make(map[string]any)
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil {
			options["upsert"] = *opt.Upsert
		}
	}

	resp, err := c.call(ctx, "updateOne", request{
		Filter:  encodeFilter(filter),
		Update:  map[string]any{"$set": map[string]any(set)},
		Options: options,
	})
	if err != nil {
		return nil, err
	}
	return &store.UpdateResult{
		MatchedCount:  resp.MatchedCount,
		ModifiedCount: resp.ModifiedCount,
		UpsertedCount: resp.UpsertedCount,
		UpsertedID:    resp.UpsertedID,
	}, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	resp, err := c.call(ctx, "deleteOne", request{Filter: encodeFilter(filter)})
	if err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	resp, err := c.call(ctx, "deleteMany", request{Filter: encodeFilter(filter)})
	if err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	resp, err := c.call(ctx, "count", request{Filter: encodeFilter(filter)})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}
