// Package textbuf is an in-memory styled text buffer: the text of a document
// plus one style layer per dimension, addressed by rune offset.
package textbuf

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/zjrosen/markstyle/internal/style"
)

// Range is a half-open rune range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of runes covered.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether r covers nothing.
func (r Range) Empty() bool { return r.Len() == 0 }

// Shift moves r by delta runes.
func (r Range) Shift(delta int) Range {
	return Range{r.Start + delta, r.End + delta}
}

// Intersect clips r to o.
func (r Range) Intersect(o Range) Range {
	out := Range{max(r.Start, o.Start), min(r.End, o.End)}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Operation is one style write recorded by the buffer.
type Operation struct {
	Range Range
	Key   style.Key
	Value any
}

// Run is a maximal range over which no style dimension changes.
type Run struct {
	Range Range
	Text  string
	Style style.Map
}

const unset = -1

// Buffer holds text and its style layers. Writes to the same dimension are
// last-write-wins. A Buffer is not safe for concurrent use.
type Buffer struct {
	text   []rune
	layers map[style.Key][]int
	values []any
	ops    []Operation
}

// New returns a buffer over text with no styles applied.
func New(text string) *Buffer {
	return &Buffer{
		text:   []rune(text),
		layers: make(map[style.Key][]int),
	}
}

// Len returns the length of the text in runes.
func (b *Buffer) Len() int { return len(b.text) }

// Text returns the buffer's text.
func (b *Buffer) Text() string { return string(b.text) }

// Slice returns the text covered by r, clipped to the buffer.
func (b *Buffer) Slice(r Range) string {
	r = r.Intersect(b.Full())
	return string(b.text[r.Start:r.End])
}

// Full is the range covering the whole buffer.
func (b *Buffer) Full() Range { return Range{0, len(b.text)} }

// SetStyle replaces every dimension over r with m. Dimensions absent from m
// are cleared.
func (b *Buffer) SetStyle(r Range, m style.Map) {
	r = r.Intersect(b.Full())
	if r.Empty() {
		return
	}
	for _, layer := range b.layers {
		for i := r.Start; i < r.End; i++ {
			layer[i] = unset
		}
	}
	for _, key := range style.Keys {
		if v, ok := m[key]; ok {
			b.AddStyle(r, key, v)
		}
	}
	for key, v := range m {
		if !slices.Contains(style.Keys, key) {
			b.AddStyle(r, key, v)
		}
	}
}

// AddStyle writes value for one dimension over r.
func (b *Buffer) AddStyle(r Range, key style.Key, value any) {
	r = r.Intersect(b.Full())
	if r.Empty() {
		return
	}
	b.ops = append(b.ops, Operation{Range: r, Key: key, Value: value})

	layer := b.layer(key)
	id := len(b.values)
	b.values = append(b.values, value)
	for i := r.Start; i < r.End; i++ {
		layer[i] = id
	}
}

// ValueAt returns the value of one dimension at pos.
func (b *Buffer) ValueAt(pos int, key style.Key) (any, bool) {
	layer, ok := b.layers[key]
	if !ok || pos < 0 || pos >= len(b.text) || layer[pos] == unset {
		return nil, false
	}
	return b.values[layer[pos]], true
}

// StyleAt returns every dimension set at pos.
func (b *Buffer) StyleAt(pos int) style.Map {
	m := style.Map{}
	for key := range b.layers {
		if v, ok := b.ValueAt(pos, key); ok {
			m[key] = v
		}
	}
	return m
}

// Ops returns the writes applied so far, in order.
func (b *Buffer) Ops() []Operation {
	out := make([]Operation, len(b.ops))
	copy(out, b.ops)
	return out
}

// Runs splits the buffer into maximal runs of uniform style.
func (b *Buffer) Runs() []Run {
	var runs []Run
	start := 0
	for i := 1; i <= len(b.text); i++ {
		if i < len(b.text) && b.sameStyle(i-1, i) {
			continue
		}
		r := Range{start, i}
		runs = append(runs, Run{Range: r, Text: string(b.text[r.Start:r.End]), Style: b.StyleAt(start)})
		start = i
	}
	return runs
}

func (b *Buffer) sameStyle(i, j int) bool {
	for _, layer := range b.layers {
		a, c := layer[i], layer[j]
		if a == c {
			continue
		}
		if a == unset || c == unset || !reflect.DeepEqual(b.values[a], b.values[c]) {
			return false
		}
	}
	return true
}

func (b *Buffer) layer(key style.Key) []int {
	layer, ok := b.layers[key]
	if !ok {
		layer = make([]int, len(b.text))
		for i := range layer {
			layer[i] = unset
		}
		b.layers[key] = layer
	}
	return layer
}
