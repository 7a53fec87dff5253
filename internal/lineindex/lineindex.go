// Package lineindex translates parser line/column coordinates into rune
// offsets of a text buffer.
package lineindex

// Index holds the rune offset of the first rune of every line.
// The first entry is always 0.
type Index []int

// Build scans text and records where each line starts. A line starts at the
// rune following a '\n'. A lone '\r' does not end a line.
func Build(text string) Index {
	idx := Index{0}
	n := 0
	for _, r := range text {
		n++
		if r == '\n' {
			idx = append(idx, n)
		}
	}
	return idx
}

// Lines returns the number of line starts in the index.
func (idx Index) Lines() int {
	return len(idx)
}

// LineStart returns the rune offset where the 1-based line begins.
func (idx Index) LineStart(line int) (int, bool) {
	if line <= 0 || line > len(idx) {
		return 0, false
	}
	return idx[line-1], true
}

// Offset converts a 1-based (line, column) pair into an absolute rune offset.
// Columns count runes. It reports false when either coordinate is
// non-positive or the line is past the end of the index; the column is not
// checked against the line length.
func (idx Index) Offset(line, column int) (int, bool) {
	if column <= 0 {
		return 0, false
	}
	start, ok := idx.LineStart(line)
	if !ok {
		return 0, false
	}
	return start + column - 1, true
}
