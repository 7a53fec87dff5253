package document

// Span builds a Start/End pair from four coordinates.
func Span(startLine, startCol, endLine, endCol int) (Position, Position) {
	return Position{startLine, startCol}, Position{endLine, endCol}
}

// NewDocument returns a root node.
func NewDocument(children ...*Node) *Node {
	return (&Node{Kind: KindDocument}).Append(children...)
}

// NewNode returns a node of the given kind with no payload.
func NewNode(kind Kind, start, end Position, children ...*Node) *Node {
	return (&Node{Kind: kind, Start: start, End: end}).Append(children...)
}

// NewHeading returns a heading node.
func NewHeading(level int, start, end Position, children ...*Node) *Node {
	n := NewNode(KindHeading, start, end, children...)
	n.Level = level
	return n
}

// NewLink returns a link node.
func NewLink(url string, start, end Position, children ...*Node) *Node {
	n := NewNode(KindLink, start, end, children...)
	n.URL = url
	return n
}

// NewCode returns an inline code span.
func NewCode(literal string, start, end Position) *Node {
	n := NewNode(KindCode, start, end)
	n.Literal = literal
	return n
}

// NewCodeBlock returns a code block. The payload is always present; a nil
// fenceInfo means no language was given.
func NewCodeBlock(literal string, fenceInfo *string, start, end Position) *Node {
	n := NewNode(KindCodeBlock, start, end)
	n.Code = &CodeBlockPayload{Literal: literal, FenceInfo: fenceInfo}
	return n
}

// Info is a helper for building fence info pointers.
func Info(s string) *string {
	return &s
}
