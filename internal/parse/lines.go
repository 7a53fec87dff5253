package parse

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/zjrosen/markstyle/internal/document"
)

// lineTable holds the byte offset of every line start.
type lineTable []int

func newLineTable(src []byte) lineTable {
	t := lineTable{0}
	for i, b := range src {
		if b == '\n' {
			t = append(t, i+1)
		}
	}
	return t
}

// line returns the 0-based line holding byte off.
func (t lineTable) line(off int) int {
	return sort.Search(len(t), func(i int) bool { return t[i] > off }) - 1
}

func (t lineTable) lineStart(off int) int {
	return t[t.line(off)]
}

// lineEnd returns the offset of the '\n' ending the line of off, or the
// source length for the last line.
func (t lineTable) lineEnd(src []byte, off int) int {
	if off >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i
	}
	return len(src)
}

// position converts a byte offset to a 1-based line and rune column.
func (t lineTable) position(src []byte, off int) document.Position {
	l := t.line(off)
	return document.Position{
		Line:   l + 1,
		Column: utf8.RuneCount(src[t[l]:off]) + 1,
	}
}

// lastRuneStart returns the offset of the rune ending just before stop.
func lastRuneStart(src []byte, stop int) int {
	_, size := utf8.DecodeLastRune(src[:stop])
	return stop - size
}
