package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockKey string

type tokens struct {
	Lexer string
	Spans int
}

func newTokenCache() *InMemoryCacheManager[blockKey, tokens] {
	return NewInMemoryCacheManager[blockKey, tokens]("highlight", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_GetExisting(t *testing.T) {
	cache := newTokenCache()
	want := tokens{Lexer: "Go", Spans: 4}
	cache.Set(context.Background(), "x := 1\n", want, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "x := 1\n")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestInMemoryCacheManager_KeysAreExact(t *testing.T) {
	cache := newTokenCache()
	cache.Set(context.Background(), "x := 1\n", tokens{Spans: 1}, DefaultExpiration)

	_, ok := cache.Get(context.Background(), "x := 1")
	require.False(t, ok, "trailing newline is part of the key")
	_, ok = cache.Get(context.Background(), "X := 1\n")
	require.False(t, ok)
}

func TestInMemoryCacheManager_GetMissing(t *testing.T) {
	cache := newTokenCache()

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_GetWrongType(t *testing.T) {
	cache := newTokenCache()
	cache.cache.Set("block", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "block")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expires(t *testing.T) {
	cache := newTokenCache()
	cache.Set(context.Background(), "block", tokens{Spans: 1}, time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "block")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := newTokenCache()

	_, ok := cache.GetWithRefresh(context.Background(), "block", time.Hour)
	require.False(t, ok)

	cache.Set(context.Background(), "block", tokens{Spans: 2}, 50*time.Millisecond)
	got, ok := cache.GetWithRefresh(context.Background(), "block", time.Hour)
	require.True(t, ok)
	require.Equal(t, 2, got.Spans)

	time.Sleep(100 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "block")
	require.True(t, ok, "refresh extended the ttl")
}

func TestInMemoryCacheManager_Delete(t *testing.T) {
	cache := newTokenCache()
	require.NoError(t, cache.Delete(context.Background()))

	cache.Set(context.Background(), "a", tokens{}, DefaultExpiration)
	cache.Set(context.Background(), "b", tokens{}, DefaultExpiration)
	cache.Set(context.Background(), "c", tokens{}, NoExpiration)

	require.NoError(t, cache.Delete(context.Background(), "a"))
	_, ok := cache.Get(context.Background(), "a")
	require.False(t, ok)
	require.Equal(t, 2, cache.Stats().Items)

	require.NoError(t, cache.Delete(context.Background(), "b", "c", "missing"))
	require.Zero(t, cache.Stats().Items)
}

func TestInMemoryCacheManager_Stats(t *testing.T) {
	cache := newTokenCache()
	require.Zero(t, cache.Stats().HitRate())

	cache.Set(context.Background(), "a", tokens{}, DefaultExpiration)
	cache.Get(context.Background(), "a")
	cache.Get(context.Background(), "a")
	cache.Get(context.Background(), "b")
	cache.GetWithRefresh(context.Background(), "a", time.Hour)
	cache.GetWithRefresh(context.Background(), "z", time.Hour)

	stats := cache.Stats()
	require.Equal(t, uint64(3), stats.Hits)
	require.Equal(t, uint64(2), stats.Misses)
	require.Equal(t, 1, stats.Items)
	require.InDelta(t, 0.6, stats.HitRate(), 1e-9)
}
