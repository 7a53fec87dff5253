package highlight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/textbuf"
)

func TestCache_LookupByExactText(t *testing.T) {
	c := NewCache(0, 0)
	res := styler.HighlightResult{
		{Range: textbuf.Range{Start: 0, End: 2}, Style: style.Map{style.KeyForeground: style.Color("#859900")}},
	}

	_, ok := c.Lookup("fn()\n")
	require.False(t, ok)

	c.Store("fn()\n", res)
	got, ok := c.Lookup("fn()\n")
	require.True(t, ok)
	require.Equal(t, res, got)

	_, ok = c.Lookup("fn()")
	require.False(t, ok)

	stats := c.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(2), stats.Misses)
	require.Equal(t, 1, stats.Items)
}

func TestCache_Forget(t *testing.T) {
	c := NewCache(0, 0)
	c.Store("a", nil)
	c.Store("b", nil)
	c.Store("c", nil)

	c.Forget("a", "c", "missing")
	_, ok := c.Lookup("a")
	require.False(t, ok)
	_, ok = c.Lookup("b")
	require.True(t, ok, "an empty result is still a hit")
	require.Equal(t, 1, c.Stats().Items)
	require.InDelta(t, 0.5, c.Stats().HitRate(), 1e-9)
}
