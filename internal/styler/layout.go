package styler

import (
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/markstyle/internal/textbuf"
)

// Layout places the lines of a code block's literal inside the block's
// source range. The parser strips fences, container prefixes and
// indentation from the literal, so the same literal can sit at different
// offsets in differently shaped blocks.
//
// The zero Layout maps literal offsets to block offsets one to one.
type Layout struct {
	// Starts[i] is the literal rune offset of line i.
	Starts []int
	// Offsets[i] is where line i begins, relative to the block start.
	Offsets []int
}

// LayoutBlock finds each literal line in source, the text under the block
// range. A literal line is matched as the suffix of its source line; a line
// that does not match falls back to the start of its source line.
func LayoutBlock(literal, source string) Layout {
	litLines := splitLines(literal)
	srcLines := splitLines(source)

	// A fenced block has its opening fence before the first literal line.
	first := 0
	if len(srcLines) > len(litLines) {
		first = 1
	}

	var l Layout
	litPos, srcPos := 0, 0
	for i, sl := range srcLines {
		j := i - first
		if j >= 0 && j < len(litLines) {
			ll := strings.TrimSuffix(litLines[j], "\n")
			body := strings.TrimSuffix(sl, "\n")
			target := srcPos
			if strings.HasSuffix(body, ll) {
				target += utf8.RuneCountInString(body) - utf8.RuneCountInString(ll)
			}
			l.Starts = append(l.Starts, litPos)
			l.Offsets = append(l.Offsets, target)
			litPos += utf8.RuneCountInString(litLines[j])
		}
		srcPos += utf8.RuneCountInString(sl)
	}
	return l
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// Project splits a literal range at line boundaries and maps every piece to
// a range relative to the block start.
func (l Layout) Project(r textbuf.Range) []textbuf.Range {
	if len(l.Starts) == 0 {
		if r.Empty() {
			return nil
		}
		return []textbuf.Range{r}
	}
	var out []textbuf.Range
	for i, start := range l.Starts {
		end := r.End
		if i+1 < len(l.Starts) {
			end = l.Starts[i+1]
		}
		piece := r.Intersect(textbuf.Range{Start: start, End: end})
		if piece.Empty() {
			continue
		}
		out = append(out, piece.Shift(l.Offsets[i]-start))
	}
	return out
}
