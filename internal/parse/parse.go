// Package parse turns markdown into a document.Node tree using goldmark.
//
// goldmark reports byte segments of a node's content only. The adapter
// widens them to cover the node's markup the way CommonMark source positions
// do (a heading spans its whole line, a fenced code block includes both
// fences, an emphasis includes its delimiters) and converts them to 1-based
// line and rune-column positions with an inclusive end.
package parse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/zjrosen/markstyle/internal/document"
	"github.com/zjrosen/markstyle/internal/log"
)

// Parser parses markdown source. It is safe for concurrent use.
type Parser struct {
	md goldmark.Markdown
}

// Option configures a Parser.
type Option func(*options)

type options struct {
	gfm bool
}

// WithGFM toggles the GitHub extensions (tables, strikethrough, autolinked
// URLs, task lists). On by default.
func WithGFM(enabled bool) Option {
	return func(o *options) { o.gfm = enabled }
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	o := options{gfm: true}
	for _, opt := range opts {
		opt(&o)
	}

	var exts []goldmark.Extender
	if o.gfm {
		exts = append(exts, extension.GFM)
	}
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(exts...)),
	}
}

var defaultParser = New()

// Parse parses text with the default parser.
func Parse(text string) (*document.Node, error) {
	return defaultParser.Parse([]byte(text))
}

// Parse returns the document tree of src. The root has KindDocument and
// spans the whole source.
func (p *Parser) Parse(src []byte) (*document.Node, error) {
	root := p.md.Parser().Parse(text.NewReader(src))

	c := &converter{src: src, lines: newLineTable(src)}
	doc, _ := c.convert(root, 0)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	log.Debug(log.CatParse, "parsed document", "bytes", len(src), "unplaced", c.unplaced)
	return doc, nil
}

type converter struct {
	src   []byte
	lines lineTable
	// unplaced counts nodes whose source position could not be recovered.
	unplaced int
}

// convert builds the node for n and returns the byte span it was placed
// at. from is the earliest byte n can start at.
func (c *converter) convert(n ast.Node, from int) (*document.Node, span) {
	out := &document.Node{Name: n.Kind().String()}
	c.payload(n, out)

	// Children first: container spans are derived from them.
	cur := from
	var kids span
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		cn, sp := c.convert(child, cur)
		out.Children = append(out.Children, cn)
		if sp.ok() {
			kids = kids.union(sp)
			cur = sp.stop
		}
	}

	var sp span
	if n.Kind() == ast.KindDocument {
		sp = c.trimmed(0, len(c.src))
	} else {
		sp = c.span(n, from, kids)
	}
	if !sp.ok() {
		if n.Kind() != ast.KindDocument {
			c.unplaced++
		}
		return out, span{}
	}
	out.Start = c.lines.position(c.src, sp.start)
	out.End = c.lines.position(c.src, lastRuneStart(c.src, sp.stop))
	return out, sp
}

// payload sets the kind and kind-specific fields.
func (c *converter) payload(n ast.Node, out *document.Node) {
	switch v := n.(type) {
	case *ast.Document:
		out.Kind = document.KindDocument
	case *ast.Heading:
		out.Kind = document.KindHeading
		out.Level = v.Level
	case *ast.Emphasis:
		if v.Level >= 2 {
			out.Kind = document.KindStrong
		} else {
			out.Kind = document.KindEmphasis
		}
	case *ast.Link:
		out.Kind = document.KindLink
		out.URL = string(v.Destination)
	case *ast.AutoLink:
		out.Kind = document.KindLink
		out.URL = string(v.URL(c.src))
	case *ast.CodeSpan:
		out.Kind = document.KindCode
		out.Literal = inlineText(v, c.src)
	case *ast.FencedCodeBlock:
		out.Kind = document.KindCodeBlock
		payload := &document.CodeBlockPayload{Literal: linesText(v, c.src)}
		if v.Info != nil {
			info := strings.TrimSpace(string(v.Info.Segment.Value(c.src)))
			if info != "" {
				payload.FenceInfo = &info
			}
		}
		out.Code = payload
	case *ast.CodeBlock:
		out.Kind = document.KindCodeBlock
		out.Code = &document.CodeBlockPayload{Literal: linesText(v, c.src)}
	case *ast.Blockquote:
		out.Kind = document.KindBlockQuote
	case *ast.List:
		out.Kind = document.KindList
	default:
		out.Kind = document.KindOther
	}
}

func inlineText(n ast.Node, src []byte) string {
	var b bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
	}
	return b.String()
}

func linesText(n ast.Node, src []byte) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
