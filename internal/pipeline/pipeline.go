// Package pipeline wires the parser, styler, highlighter and renderer into
// the steps the commands and the viewer share: load a document, resolve its
// code blocks, render it.
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/markstyle/internal/cachemanager"
	"github.com/zjrosen/markstyle/internal/config"
	"github.com/zjrosen/markstyle/internal/document"
	"github.com/zjrosen/markstyle/internal/flags"
	"github.com/zjrosen/markstyle/internal/highlight"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/parse"
	"github.com/zjrosen/markstyle/internal/render"
	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/textbuf"
	"github.com/zjrosen/markstyle/internal/tracing"
)

// Document is one styled snapshot of a file.
type Document struct {
	Path   string
	Text   string
	Root   *document.Node
	Buffer *textbuf.Buffer
	Result styler.Result
}

// Pipeline holds the long-lived components. The highlight cache inside it
// outlives individual documents so reloads reuse earlier highlights.
type Pipeline struct {
	theme    style.Theme
	parser   *parse.Parser
	styler   *styler.Styler
	resolver *highlight.Resolver
	renderer *render.Renderer
	tracer   trace.Tracer
	async    bool
}

// New builds a pipeline from configuration. reg may be nil; tracer may be nil.
func New(cfg config.Config, reg *flags.Registry, tracer trace.Tracer) (*Pipeline, error) {
	if reg == nil {
		reg = flags.New(nil)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("pipeline")
	}

	theme, err := cfg.Theme.Build()
	if err != nil {
		return nil, fmt.Errorf("building theme: %w", err)
	}
	fonts, err := cfg.Theme.FontRegistry()
	if err != nil {
		return nil, fmt.Errorf("building font registry: %w", err)
	}

	stylerOpts := []styler.Option{styler.WithFontRegistry(fonts), styler.WithTracer(tracer)}
	if !reg.Enabled(flags.FlagLinkAnnotations) {
		stylerOpts = append(stylerOpts, styler.WithoutLinks())
	}
	s, err := styler.New(theme, stylerOpts...)
	if err != nil {
		return nil, err
	}

	var resolver *highlight.Resolver
	if !cfg.Highlight.Disabled {
		h, err := highlight.NewHighlighter(theme, cfg.Highlight.Style, fonts)
		if err != nil {
			return nil, err
		}
		cache := highlight.NewCache(cfg.Highlight.CacheTTL, cfg.Highlight.CacheCleanup)
		resolver = highlight.NewResolver(h, cache,
			highlight.WithWorkers(cfg.Highlight.Workers),
			highlight.WithResolverTracer(tracer))
	}

	profile, err := render.ParseProfile(cfg.Render.ColorProfile)
	if err != nil {
		return nil, err
	}
	renderer := render.New(theme,
		render.WithWidth(cfg.Render.Width),
		render.WithProfile(profile),
		render.WithHyperlinks(reg.Enabled(flags.FlagLinkAnnotations)),
		render.WithTracer(tracer))

	return &Pipeline{
		theme:    theme,
		parser:   parse.New(),
		styler:   s,
		resolver: resolver,
		renderer: renderer,
		tracer:   tracer,
		async:    reg.Enabled(flags.FlagAsyncHighlight),
	}, nil
}

// Theme returns the resolved theme.
func (p *Pipeline) Theme() style.Theme { return p.theme }

// Async reports whether callers should paint before highlighting.
func (p *Pipeline) Async() bool { return p.async }

// Resolver returns the highlight resolver, nil when highlighting is disabled.
func (p *Pipeline) Resolver() *highlight.Resolver { return p.resolver }

// Renderer returns the configured renderer.
func (p *Pipeline) Renderer() *render.Renderer { return p.renderer }

// Load parses and styles text. Code blocks already in the highlight cache are
// highlighted; the rest are left in Result.Pending.
func (p *Pipeline) Load(ctx context.Context, path, text string) (*Document, error) {
	doc := &Document{Path: path, Text: text}
	err := tracing.Run(ctx, p.tracer, tracing.SpanPrefixStyle+"load", func(ctx context.Context, span trace.Span) error {
		root, err := p.parser.Parse([]byte(text))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		doc.Root = root
		doc.Buffer = textbuf.New(text)

		// A nil *Cache must not become a non-nil styler.Cache.
		var cache styler.Cache
		if p.resolver != nil {
			cache = p.resolver.Cache()
		}
		doc.Result, err = p.styler.Style(ctx, doc.Buffer, root, text, cache)
		if err != nil {
			return fmt.Errorf("styling %s: %w", path, err)
		}
		span.SetAttributes(attribute.Int(tracing.AttrBlocksPending, len(doc.Result.Pending)))
		return nil
	},
		attribute.String(tracing.AttrDocumentPath, path),
		attribute.Int(tracing.AttrDocumentRunes, len([]rune(text))),
	)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatStyle, "document loaded", "path", path, "pending", len(doc.Result.Pending))
	return doc, nil
}

// Highlight resolves doc's pending blocks and applies the results to its
// buffer. Blocks that failed or were cut off by ctx stay pending. It returns
// the number of blocks applied.
func (p *Pipeline) Highlight(ctx context.Context, doc *Document) (int, error) {
	if p.resolver == nil || len(doc.Result.Pending) == 0 {
		return 0, nil
	}
	resolutions, err := p.resolver.Resolve(ctx, doc.Result.Pending)
	applied := highlight.Apply(doc.Buffer, resolutions)
	doc.Result.Pending = Unresolved(resolutions)
	return applied, err
}

// Forget drops the cached highlights of every code block in doc so the next
// Load highlights them again. It returns the number of blocks forgotten.
func (p *Pipeline) Forget(doc *Document) int {
	if p.resolver == nil || doc == nil || doc.Root == nil {
		return 0
	}
	var literals []string
	doc.Root.Walk(func(n *document.Node) bool {
		if n.Kind == document.KindCodeBlock && n.Code != nil {
			literals = append(literals, n.Code.Literal)
		}
		return true
	})
	p.resolver.Cache().Forget(literals...)
	log.Debug(log.CatCache, "forgot cached highlights", "path", doc.Path, "blocks", len(literals))
	return len(literals)
}

// CacheStats reports the highlight cache counters. ok is false when
// highlighting is disabled.
func (p *Pipeline) CacheStats() (stats cachemanager.Stats, ok bool) {
	if p.resolver == nil {
		return cachemanager.Stats{}, false
	}
	return p.resolver.Cache().Stats(), true
}

// Unresolved returns the blocks of failed resolutions, including those a
// cancelled Resolve never started.
func Unresolved(resolutions []highlight.Resolution) []styler.CodeBlock {
	var out []styler.CodeBlock
	for _, res := range resolutions {
		if res.Err != nil {
			out = append(out, res.Block)
		}
	}
	return out
}

// Render returns doc as terminal text. width overrides the configured wrap
// width when positive.
func (p *Pipeline) Render(ctx context.Context, doc *Document, width int) string {
	r := p.renderer
	if width > 0 {
		r = r.Resize(width)
	}
	return r.Render(ctx, doc.Buffer)
}

// Close releases the resolver's broker.
func (p *Pipeline) Close() {
	if p.resolver != nil {
		p.resolver.Close()
	}
}
