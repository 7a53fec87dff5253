package parse

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
)

// span is a half-open byte range of the source.
type span struct {
	start, stop int
}

func (s span) ok() bool { return s.stop > s.start && s.start >= 0 }

func (s span) union(o span) span {
	if !s.ok() {
		return o
	}
	if !o.ok() {
		return s
	}
	return span{start: min(s.start, o.start), stop: max(s.stop, o.stop)}
}

// span computes where n sits in the source. kids is the union of the
// children's spans.
func (c *converter) span(n ast.Node, from int, kids span) span {
	switch v := n.(type) {
	case *ast.Text:
		return span{start: v.Segment.Start, stop: v.Segment.Stop}
	case *ast.String:
		return span{}
	case *ast.RawHTML:
		if v.Segments.Len() == 0 {
			return span{}
		}
		return span{start: v.Segments.At(0).Start, stop: v.Segments.At(v.Segments.Len() - 1).Stop}
	case *ast.Emphasis:
		if !kids.ok() {
			return span{}
		}
		return c.clamp(span{start: kids.start - v.Level, stop: kids.stop + v.Level})
	case *ast.CodeSpan:
		return c.codeSpan(kids)
	case *ast.Link:
		return c.link(kids, false)
	case *ast.Image:
		return c.link(kids, true)
	case *ast.AutoLink:
		return c.autoLink(v, from)
	case *ast.Heading:
		return c.heading(v, kids)
	case *ast.FencedCodeBlock:
		return c.fenced(v, from)
	case *ast.CodeBlock:
		return c.indented(v)
	case *ast.Blockquote:
		if !kids.ok() {
			return span{}
		}
		start := c.skipBlankBack(kids.start)
		if start > 0 && c.src[start-1] == '>' {
			start--
		}
		return span{start: start, stop: kids.stop}
	case *ast.ListItem:
		return c.listItem(kids)
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return c.linesSpan(n.Lines().At(0).Start, n)
	}
	return kids
}

func (c *converter) clamp(s span) span {
	return span{start: max(s.start, 0), stop: min(s.stop, len(c.src))}
}

// trimmed drops trailing whitespace and line endings from [start, stop).
func (c *converter) trimmed(start, stop int) span {
	stop = min(stop, len(c.src))
	for stop > start && isSpace(c.src[stop-1]) {
		stop--
	}
	return span{start: start, stop: stop}
}

func (c *converter) linesSpan(start int, n ast.Node) span {
	lines := n.Lines()
	return c.trimmed(start, lines.At(lines.Len()-1).Stop)
}

// skipBlankBack moves i left over spaces and tabs.
func (c *converter) skipBlankBack(i int) int {
	for i > 0 && isBlank(c.src[i-1]) {
		i--
	}
	return i
}

func (c *converter) codeSpan(kids span) span {
	if !kids.ok() {
		return span{}
	}
	start, stop := kids.start, kids.stop
	if start > 0 && c.src[start-1] == ' ' {
		start--
	}
	for start > 0 && c.src[start-1] == '`' {
		start--
	}
	if stop < len(c.src) && c.src[stop] == ' ' {
		stop++
	}
	for stop < len(c.src) && c.src[stop] == '`' {
		stop++
	}
	return span{start: start, stop: stop}
}

// link widens the link text to "[text](dest)", "[text][ref]" or "[text]".
func (c *converter) link(kids span, image bool) span {
	if !kids.ok() {
		return span{}
	}
	start := kids.start
	if start == 0 || c.src[start-1] != '[' {
		return kids
	}
	start--
	if image && start > 0 && c.src[start-1] == '!' {
		start--
	}

	i := kids.stop
	if i >= len(c.src) || c.src[i] != ']' {
		return span{start: start, stop: kids.stop}
	}
	i++
	if i < len(c.src) {
		switch c.src[i] {
		case '(':
			if j := matchParen(c.src, i); j >= 0 {
				return span{start: start, stop: j + 1}
			}
		case '[':
			if j := bytes.IndexByte(c.src[i:], ']'); j >= 0 {
				return span{start: start, stop: i + j + 1}
			}
		}
	}
	return span{start: start, stop: i}
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
// Escapes, an angle-bracketed destination and quoted titles are skipped.
func matchParen(src []byte, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		case '<':
			if i == open+1 {
				if j := bytes.IndexByte(src[i:], '>'); j >= 0 {
					i += j
				}
			}
		case '"', '\'':
			if depth == 1 && isBlank(src[i-1]) {
				if j := bytes.IndexByte(src[i+1:], src[i]); j >= 0 {
					i += j + 1
				}
			}
		}
	}
	return -1
}

// autoLink finds "<label>" or a bare label at or after from.
func (c *converter) autoLink(v *ast.AutoLink, from int) span {
	label := v.Label(c.src)
	if len(label) == 0 || from >= len(c.src) {
		return span{}
	}
	idx := bytes.Index(c.src[from:], label)
	if idx < 0 {
		return span{}
	}
	start, stop := from+idx, from+idx+len(label)
	if start > 0 && c.src[start-1] == '<' && stop < len(c.src) && c.src[stop] == '>' {
		return span{start: start - 1, stop: stop + 1}
	}
	return span{start: start, stop: stop}
}

// heading spans an ATX heading's whole line, or a setext heading's text
// through its underline.
func (c *converter) heading(h *ast.Heading, kids span) span {
	lines := h.Lines()
	if lines.Len() == 0 {
		return kids
	}
	first, last := lines.At(0), lines.At(lines.Len()-1)

	i := c.skipBlankBack(first.Start)
	if i > 0 && c.src[i-1] == '#' {
		for i > 0 && c.src[i-1] == '#' {
			i--
		}
		return c.trimmed(i, c.lines.lineEnd(c.src, last.Start))
	}

	underline := c.lines.lineEnd(c.src, last.Start) + 1
	if underline < len(c.src) {
		return c.trimmed(first.Start, c.lines.lineEnd(c.src, underline))
	}
	return c.trimmed(first.Start, last.Stop)
}

// fenced spans from the opening fence to the end of the closing fence, or
// to the end of the content when the fence is never closed.
func (c *converter) fenced(v *ast.FencedCodeBlock, from int) span {
	lines := v.Lines()

	var open int
	switch {
	case v.Info != nil:
		open = c.lines.lineStart(v.Info.Segment.Start)
	case lines.Len() > 0:
		first := c.lines.lineStart(lines.At(0).Start)
		if first == 0 {
			return span{}
		}
		open = c.lines.lineStart(first - 1)
	default:
		idx := indexFence(c.src, from)
		if idx < 0 {
			return span{}
		}
		open = c.lines.lineStart(idx)
	}

	start := open
	for start < len(c.src) && c.src[start] != '`' && c.src[start] != '~' && c.src[start] != '\n' {
		start++
	}
	if start >= len(c.src) || c.src[start] == '\n' {
		return span{}
	}
	fence := c.src[start]

	contentEnd := c.lines.lineEnd(c.src, open)
	if lines.Len() > 0 {
		contentEnd = c.lines.lineEnd(c.src, lines.At(lines.Len()-1).Start)
	}
	if next := contentEnd + 1; next < len(c.src) {
		closeEnd := c.lines.lineEnd(c.src, next)
		if isClosingFence(c.src[next:closeEnd], fence) {
			return c.trimmed(start, closeEnd)
		}
	}
	return c.trimmed(start, contentEnd)
}

// indexFence finds the next line opening with ``` or ~~~ at or after from.
func indexFence(src []byte, from int) int {
	if from >= len(src) {
		return -1
	}
	a := bytes.Index(src[from:], []byte("```"))
	b := bytes.Index(src[from:], []byte("~~~"))
	switch {
	case a < 0 && b < 0:
		return -1
	case a < 0:
		return from + b
	case b < 0:
		return from + a
	default:
		return from + min(a, b)
	}
}

// isClosingFence reports whether line, after any container prefix, is a run
// of at least three fence characters.
func isClosingFence(line []byte, fence byte) bool {
	line = bytes.TrimLeft(line, " \t>")
	line = bytes.TrimRight(line, " \t\r")
	if len(line) < 3 {
		return false
	}
	for _, b := range line {
		if b != fence {
			return false
		}
	}
	return true
}

func (c *converter) indented(v *ast.CodeBlock) span {
	lines := v.Lines()
	if lines.Len() == 0 {
		return span{}
	}
	start := lines.At(0).Start
	ls := c.lines.lineStart(start)
	for start > ls && isBlank(c.src[start-1]) {
		start--
	}
	return c.linesSpan(start, v)
}

// listItem widens the item's content back over its marker.
func (c *converter) listItem(kids span) span {
	if !kids.ok() {
		return span{}
	}
	i := c.skipBlankBack(kids.start)
	switch {
	case i > 0 && (c.src[i-1] == '-' || c.src[i-1] == '+' || c.src[i-1] == '*'):
		i--
	case i > 0 && (c.src[i-1] == '.' || c.src[i-1] == ')'):
		j := i - 1
		for j > 0 && c.src[j-1] >= '0' && c.src[j-1] <= '9' {
			j--
		}
		if j < i-1 {
			i = j
		} else {
			i = kids.start
		}
	default:
		i = kids.start
	}
	return span{start: i, stop: kids.stop}
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
