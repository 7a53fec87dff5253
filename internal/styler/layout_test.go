package styler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/markstyle/internal/textbuf"
)

func TestLayoutBlock_Fenced(t *testing.T) {
	l := LayoutBlock("x := 1\n", "```go\nx := 1\n```")
	require.Equal(t, []int{0}, l.Starts)
	require.Equal(t, []int{6}, l.Offsets)
	require.Equal(t, []textbuf.Range{{Start: 6, End: 13}}, l.Project(textbuf.Range{Start: 0, End: 7}))
}

func TestLayoutBlock_FenceLengthMovesTheCode(t *testing.T) {
	short := LayoutBlock("x\n", "```go\nx\n```")
	long := LayoutBlock("x\n", "`````golang\nx\n`````")
	require.Equal(t, []int{6}, short.Offsets)
	require.Equal(t, []int{12}, long.Offsets)
}

func TestLayoutBlock_StripsContainerPrefix(t *testing.T) {
	l := LayoutBlock("x\n", "> ```\n> x\n> ```")
	require.Equal(t, []int{8}, l.Offsets)
}

func TestLayoutBlock_ListItem(t *testing.T) {
	// The block starts at the fence, after the list marker.
	l := LayoutBlock("a\nb\n", "```\n   a\n   b\n   ```")
	require.Equal(t, []int{7, 12}, l.Offsets)
}

func TestLayoutBlock_Indented(t *testing.T) {
	l := LayoutBlock("a\nb\n", "    a\n    b")
	require.Equal(t, []int{0, 2}, l.Starts)
	require.Equal(t, []int{4, 10}, l.Offsets)

	// A token spanning both lines is split at the line break.
	got := l.Project(textbuf.Range{Start: 0, End: 4})
	require.Equal(t, []textbuf.Range{{Start: 4, End: 6}, {Start: 10, End: 12}}, got)
}

func TestLayoutBlock_UnmatchedLineFallsBackToLineStart(t *testing.T) {
	l := LayoutBlock("\tx\n", "\ty!")
	require.Equal(t, []int{0}, l.Offsets)
}

func TestLayout_ZeroValueIsIdentity(t *testing.T) {
	var l Layout
	require.Equal(t, []textbuf.Range{{Start: 2, End: 5}}, l.Project(textbuf.Range{Start: 2, End: 5}))
	require.Empty(t, l.Project(textbuf.Range{Start: 3, End: 3}))
}
