// Package styler walks a parsed document and writes style operations for
// every node over the node's rune range in a target buffer.
//
// Style state flows strictly downward: each node starts from its own copy of
// the parent's attributes, so a change made while visiting one subtree is
// never visible to a sibling.
package styler

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/markstyle/internal/document"
	"github.com/zjrosen/markstyle/internal/lineindex"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/textbuf"
	"github.com/zjrosen/markstyle/internal/tracing"
)

// Target receives style operations.
type Target interface {
	SetStyle(r textbuf.Range, m style.Map)
	AddStyle(r textbuf.Range, key style.Key, value any)
}

// Cache looks up a previous highlight of a code block by its exact literal
// text. Implementations must be safe for concurrent reads.
type Cache interface {
	Lookup(text string) (HighlightResult, bool)
}

// HighlightSpan styles a sub-range of a code block. Range is relative to the
// start of the block's literal text, so one result serves every block with
// that literal whatever its fence or indentation.
type HighlightSpan struct {
	Range textbuf.Range
	Style style.Map
}

// HighlightResult is the output of a syntax highlighter for one block.
type HighlightResult []HighlightSpan

// CodeBlock is a code block found during the walk.
type CodeBlock struct {
	Range     textbuf.Range
	FenceInfo *string
	Text      string
	// Layout maps Text onto Range.
	Layout Layout
}

// Language returns the first word of the fence info.
func (b CodeBlock) Language() string {
	return document.CodeBlockPayload{FenceInfo: b.FenceInfo}.Language()
}

// Result is what a walk produces besides the operations themselves.
type Result struct {
	// Pending lists code blocks the cache could not resolve, in document
	// order.
	Pending []CodeBlock
	// Visited counts nodes below the root.
	Visited int
	// Skipped counts nodes whose position could not be mapped into the text.
	Skipped int
}

// Option configures a Styler.
type Option func(*Styler)

// WithFontRegistry replaces the built-in font families.
func WithFontRegistry(reg *style.FontRegistry) Option {
	return func(s *Styler) { s.fonts = reg }
}

// WithTracer records a span per walk.
func WithTracer(t trace.Tracer) Option {
	return func(s *Styler) { s.tracer = t }
}

// WithoutLinks stops the styler from emitting the link key.
func WithoutLinks() Option {
	return func(s *Styler) { s.links = false }
}

// Styler holds the immutable configuration of a walk. It is safe for
// concurrent use by multiple goroutines styling independent documents.
type Styler struct {
	theme  style.Theme
	fonts  *style.FontRegistry
	tracer trace.Tracer
	links  bool
}

// New builds a Styler for theme. The theme is validated against the font
// registry up front.
func New(theme style.Theme, opts ...Option) (*Styler, error) {
	s := &Styler{
		theme:  theme,
		fonts:  style.NewFontRegistry(),
		tracer: noop.NewTracerProvider().Tracer("styler"),
		links:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := theme.Validate(s.fonts); err != nil {
		return nil, fmt.Errorf("invalid theme %q: %w", theme.Name, err)
	}
	return s, nil
}

// Theme returns the configured theme.
func (s *Styler) Theme() style.Theme { return s.theme }

// Style seeds target with the theme's default attributes over the whole of
// text and then walks the children of root. cache may be nil.
//
// The walk never blocks and ignores ctx cancellation; ctx only carries the
// trace parent. The only errors are configuration errors (an unknown font
// family, a code block without its literal), which abort the walk.
func (s *Styler) Style(ctx context.Context, target Target, root *document.Node, text string, cache Cache) (Result, error) {
	_, span := s.tracer.Start(ctx, tracing.SpanPrefixStyle+"walk")
	defer span.End()

	w := &walker{
		styler: s,
		target: target,
		cache:  cache,
		index:  lineindex.Build(text),
		text:   text,
	}
	for range text {
		w.length++
	}

	defaults := s.theme.DefaultAttributes()
	seed, err := defaults.StyleMap(s.fonts)
	if err != nil {
		tracing.RecordError(span, err)
		return Result{}, err
	}
	target.SetStyle(textbuf.Range{Start: 0, End: w.length}, seed)

	if root != nil {
		for _, child := range root.Children {
			if err := w.visit(child, defaults); err != nil {
				tracing.RecordError(span, err)
				return Result{}, err
			}
		}
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrNodesVisited, w.result.Visited),
		attribute.Int(tracing.AttrNodesSkipped, w.result.Skipped),
		attribute.Int(tracing.AttrBlocksPending, len(w.result.Pending)),
	)
	log.Debug(log.CatStyle, "walk finished",
		"runes", w.length,
		"visited", w.result.Visited,
		"skipped", w.result.Skipped,
		"pending", len(w.result.Pending))

	return w.result, nil
}

type walker struct {
	styler *Styler
	target Target
	cache  Cache
	index  lineindex.Index
	text   string
	runes  []rune
	length int
	result Result
}

// visit receives the parent's attributes by value and hands its own copy to
// each child by value.
func (w *walker) visit(n *document.Node, inherited style.Attributes) error {
	w.result.Visited++
	attrs := inherited.Clone()

	if r, ok := w.rangeOf(n); ok {
		if err := w.apply(n, r, &attrs); err != nil {
			return err
		}
	} else {
		w.result.Skipped++
		log.Debug(log.CatStyle, "skipping node with unmappable range",
			"kind", n.Kind, "start", n.Start, "end", n.End)
	}

	for _, child := range n.Children {
		if err := w.visit(child, attrs); err != nil {
			return err
		}
	}
	return nil
}

// rangeOf maps the node's inclusive line/column span to a half-open rune
// range.
func (w *walker) rangeOf(n *document.Node) (textbuf.Range, bool) {
	if !n.Start.Valid() {
		return textbuf.Range{}, false
	}
	start, ok := w.index.Offset(n.Start.Line, n.Start.Column)
	if !ok {
		return textbuf.Range{}, false
	}
	end, ok := w.index.Offset(n.End.Line, n.End.Column)
	if !ok {
		return textbuf.Range{}, false
	}
	if start > end || start < 0 || end >= w.length {
		return textbuf.Range{}, false
	}
	return textbuf.Range{Start: start, End: end + 1}, true
}

func (w *walker) apply(n *document.Node, r textbuf.Range, attrs *style.Attributes) error {
	theme := w.styler.theme

	switch n.Kind {
	case document.KindHeading:
		attrs.TextColor = theme.Accent(1)
		attrs.Size = theme.HeadingSize(n.Level)
		w.target.AddStyle(r, style.KeyForeground, attrs.TextColor)
		return w.addFont(r, *attrs)

	case document.KindEmphasis:
		attrs.Italic = true
		return w.addFont(r, *attrs)

	case document.KindStrong:
		attrs.Bold = true
		return w.addFont(r, *attrs)

	case document.KindLink:
		attrs.TextColor = theme.Link
		w.target.AddStyle(r, style.KeyForeground, attrs.TextColor)
		if w.styler.links && n.URL != "" {
			if u, err := url.Parse(n.URL); err == nil {
				w.target.AddStyle(r, style.KeyLink, u)
			}
		}
		return nil

	case document.KindCode:
		attrs.Family = theme.MonoFamily
		return w.addFont(r, *attrs)

	case document.KindBlockQuote:
		attrs.Family = theme.SerifFamily
		attrs.SetIndent(theme.BaseFontSize)
		if err := w.addFont(r, *attrs); err != nil {
			return err
		}
		w.target.AddStyle(r, style.KeyParagraph, attrs.ParagraphStyle())
		return nil

	case document.KindList:
		attrs.SetIndent(theme.BaseFontSize)
		w.target.AddStyle(r, style.KeyParagraph, attrs.ParagraphStyle())
		return nil

	case document.KindCodeBlock:
		return w.codeBlock(n, r, attrs)
	}
	return nil
}

// codeBlock paints the block background and monospace font, then either
// applies a cached highlight or queues the block.
func (w *walker) codeBlock(n *document.Node, r textbuf.Range, attrs *style.Attributes) error {
	if n.Code == nil {
		return &style.ConfigurationError{
			Setting: "code block",
			Value:   n.Start.String(),
			Reason:  "parser produced no literal text",
		}
	}
	theme := w.styler.theme

	attrs.Family = theme.MonoFamily
	attrs.Size = theme.BaseFontSize
	attrs.Bold = false
	attrs.Italic = false

	w.target.AddStyle(r, style.KeyBackground, theme.CodeBackground)
	if err := w.addFont(r, *attrs); err != nil {
		return err
	}

	block := CodeBlock{
		Range:     r,
		FenceInfo: n.Code.FenceInfo,
		Text:      n.Code.Literal,
		Layout:    LayoutBlock(n.Code.Literal, w.source(r)),
	}
	if w.cache != nil {
		if res, ok := w.cache.Lookup(block.Text); ok {
			ResolveCachedBlock(w.target, block, res)
			return nil
		}
	}
	w.result.Pending = append(w.result.Pending, block)
	return nil
}

// source returns the text under r.
func (w *walker) source(r textbuf.Range) string {
	if w.runes == nil {
		w.runes = []rune(w.text)
	}
	return string(w.runes[r.Start:r.End])
}

func (w *walker) addFont(r textbuf.Range, attrs style.Attributes) error {
	font, err := attrs.Font(w.styler.fonts)
	if err != nil {
		return err
	}
	w.target.AddStyle(r, style.KeyFont, font)
	return nil
}

// ResolveCachedBlock applies a highlight result to a block. Span ranges are
// projected through the block's layout, rebased onto the block start and
// clipped to the block. Applying the same result twice leaves the target as
// applying it once.
func ResolveCachedBlock(target Target, block CodeBlock, result HighlightResult) {
	for _, hs := range result {
		for _, piece := range block.Layout.Project(hs.Range) {
			r := piece.Shift(block.Range.Start).Intersect(block.Range)
			if r.Empty() {
				continue
			}
			for _, key := range style.Keys {
				if v, ok := hs.Style[key]; ok {
					target.AddStyle(r, key, v)
				}
			}
		}
	}
}
