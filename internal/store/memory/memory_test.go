package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/store"
)

func TestInsertAndFindOne(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	docID, err := coll.InsertOne(ctx, store.Document{"path": "/a.txt", "content": "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, docID)

	doc, err := coll.FindOne(ctx, store.Eq("path", "/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", doc["content"])
	assert.Equal(t, docID, doc["_id"])

	_, err = coll.FindOne(ctx, store.Eq("path", "/missing"))
	assert.ErrorIs(t, err, store.ErrNoDocuments)
}

func TestFindOneReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	_, err := coll.InsertOne(ctx, store.Document{"key": "k", "value": map[string]any{"n": int64(1)}})
	require.NoError(t, err)

	doc, err := coll.FindOne(ctx, store.Eq("key", "k"))
	require.NoError(t, err)
	doc["value"].(map[string]any)["n"] = int64(99)

	again, err := coll.FindOne(ctx, store.Eq("key", "k"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), again["value"].(map[string]any)["n"])
}

func TestRegexFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	for _, p := range []string{"/a/x.txt", "/a/y.txt", "/b/z.txt"} {
		_, err := coll.InsertOne(ctx, store.Document{"path": p})
		require.NoError(t, err)
	}

	docs, err := coll.Find(ctx, store.Regex("path", "^/a/"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	n, err := coll.Count(ctx, store.Regex("path", "^/a/"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpdateOneSetAndUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	upsert := (&store.UpdateOptions{}).SetUpsert(true)

	res, err := coll.UpdateOne(ctx, store.Eq("key", "k"), store.Document{"value": "v1"}, upsert)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.UpsertedCount)
	assert.NotEmpty(t, res.UpsertedID)

	res, err = coll.UpdateOne(ctx, store.Eq("key", "k"), store.Document{"value": "v2"}, upsert)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.UpsertedCount)

	doc, err := coll.FindOne(ctx, store.Eq("key", "k"))
	require.NoError(t, err)
	assert.Equal(t, "v2", doc["value"])

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateOneWithoutUpsertNoMatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	res, err := coll.UpdateOne(ctx, store.Eq("key", "missing"), store.Document{"value": "v"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.MatchedCount)

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	for _, p := range []string{"/a/x", "/a/y", "/b/z"} {
		_, err := coll.InsertOne(ctx, store.Document{"path": p})
		require.NoError(t, err)
	}

	n, err := coll.DeleteOne(ctx, store.Eq("path", "/a/x"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = coll.DeleteMany(ctx, store.Regex("path", "^/"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	total, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestFindSortLimitSkip(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")

	for i, ts := range []int64{300, 100, 200} {
		_, err := coll.InsertOne(ctx, store.Document{"n": int64(i), "ts": ts})
		require.NoError(t, err)
	}

	opts := (&store.FindOptions{}).SetSort("ts", false).SetSkip(1).SetLimit(1)
	docs, err := coll.Find(ctx, nil, opts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(200), docs[0]["ts"])
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	coll := s.Collection("test")
	require.NoError(t, s.Close())

	_, err := coll.InsertOne(ctx, store.Document{"a": 1})
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = coll.FindOne(ctx, nil)
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Collection("test").FindOne(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
