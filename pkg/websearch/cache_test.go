package websearch

import (
	"context"
	"fmt"
	"log"
	"testing"

	"funnel-canvas-be/pkg/rag"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls   int
	results []rag.WebSearchResult
	err     error
}

func (p *countingProvider) Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func newTestCache(t *testing.T, inner Provider) (*CachedProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCachedProvider(inner, rdb, log.New(testWriter{t}, "", 0)), mr
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestCachedProviderHitSkipsInnerCall(t *testing.T) {
	inner := &countingProvider{results: []rag.WebSearchResult{
		{Title: "환율 요약", URL: "https://news.example.com/fx"},
	}}
	cache, _ := newTestCache(t, inner)
	ctx := context.Background()

	first, err := cache.Search(ctx, "오늘 환율", 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := cache.Search(ctx, "오늘 환율", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProviderKeysIncludeLimit(t *testing.T) {
	inner := &countingProvider{results: []rag.WebSearchResult{{Title: "a", URL: "https://a"}}}
	cache, _ := newTestCache(t, inner)
	ctx := context.Background()

	_, err := cache.Search(ctx, "query", 3)
	require.NoError(t, err)
	_, err = cache.Search(ctx, "query", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderCorruptEntryFallsThrough(t *testing.T) {
	inner := &countingProvider{results: []rag.WebSearchResult{{Title: "fresh", URL: "https://fresh"}}}
	cache, mr := newTestCache(t, inner)
	ctx := context.Background()

	require.NoError(t, mr.Set(cacheKey("query", 5), "{not json"))

	results, err := cache.Search(ctx, "query", 5)
	require.NoError(t, err)

	assert.Equal(t, "fresh", results[0].Title)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProviderPropagatesInnerError(t *testing.T) {
	inner := &countingProvider{err: fmt.Errorf("quota exceeded")}
	cache, _ := newTestCache(t, inner)

	_, err := cache.Search(context.Background(), "query", 5)

	assert.Error(t, err)
}

func TestCachedProviderNilRedisGoesDirect(t *testing.T) {
	inner := &countingProvider{results: []rag.WebSearchResult{{Title: "direct", URL: "https://d"}}}
	cache := NewCachedProvider(inner, nil, log.Default())

	for i := 0; i < 2; i++ {
		results, err := cache.Search(context.Background(), "query", 5)
		require.NoError(t, err)
		assert.Equal(t, "direct", results[0].Title)
	}
	assert.Equal(t, 2, inner.calls)
}
