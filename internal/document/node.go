// Package document defines the parsed markdown tree the styler walks.
package document

import (
	"fmt"
	"strings"
)

// Kind is the syntactic category of a node.
type Kind int

const (
	KindOther Kind = iota
	KindDocument
	KindHeading
	KindEmphasis
	KindStrong
	KindLink
	KindCode
	KindCodeBlock
	KindBlockQuote
	KindList
)

var kindNames = map[Kind]string{
	KindOther:      "other",
	KindDocument:   "document",
	KindHeading:    "heading",
	KindEmphasis:   "emphasis",
	KindStrong:     "strong",
	KindLink:       "link",
	KindCode:       "code",
	KindCodeBlock:  "code_block",
	KindBlockQuote: "block_quote",
	KindList:       "list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Position is a 1-based line and rune column. The zero value means the
// parser had no position for the node.
type Position struct {
	Line   int
	Column int
}

// Valid reports whether both coordinates are positive.
func (p Position) Valid() bool {
	return p.Line > 0 && p.Column > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// CodeBlockPayload is the content of a fenced or indented code block.
type CodeBlockPayload struct {
	Literal string
	// FenceInfo is nil for indented blocks and fences without an info string.
	FenceInfo *string
}

// Language returns the first word of the fence info.
func (p CodeBlockPayload) Language() string {
	if p.FenceInfo == nil {
		return ""
	}
	fields := strings.Fields(*p.FenceInfo)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Node is one element of the parsed tree. Start and End are inclusive: End
// addresses the last rune belonging to the node.
type Node struct {
	Kind     Kind
	Start    Position
	End      Position
	Children []*Node

	// Level is the heading level, 1-6.
	Level int
	// URL is the link destination.
	URL string
	// Literal is the text of an inline code span.
	Literal string
	// Code is set for every KindCodeBlock node.
	Code *CodeBlockPayload

	// Name is the parser's own name for the node type, kept for diagnostics.
	Name string
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Validate checks the payload invariants of n and its descendants.
func (n *Node) Validate() error {
	var err error
	n.Walk(func(c *Node) bool {
		if err != nil {
			return false
		}
		switch c.Kind {
		case KindCodeBlock:
			if c.Code == nil {
				err = fmt.Errorf("code block at %s: missing literal", c.Start)
			}
		case KindHeading:
			if c.Level < 1 || c.Level > 6 {
				err = fmt.Errorf("heading at %s: level %d out of range", c.Start, c.Level)
			}
		}
		return err == nil
	})
	return err
}

// String renders the tree as an indented outline.
func (n *Node) String() string {
	var b strings.Builder
	var write func(*Node, int)
	write = func(c *Node, depth int) {
		fmt.Fprintf(&b, "%s%s [%s-%s]\n", strings.Repeat("  ", depth), c.Kind, c.Start, c.End)
		for _, child := range c.Children {
			write(child, depth+1)
		}
	}
	write(n, 0)
	return b.String()
}
