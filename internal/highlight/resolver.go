package highlight

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/markstyle/internal/cachemanager"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/pubsub"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/tracing"
)

// DefaultWorkers bounds concurrent lexing when no worker count is set.
const DefaultWorkers = 4

// Resolution is the outcome of highlighting one pending block.
type Resolution struct {
	RequestID string
	Block     styler.CodeBlock
	Result    styler.HighlightResult
	Lexer     string
	// Cached is true when the result came from the cache or from a
	// concurrent request for the same text.
	Cached bool
	Err    error
}

// request is the read-through input for one block.
type request struct {
	id       string
	block    styler.CodeBlock
	lexer    string
	computed bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithWorkers sets the number of blocks lexed at once.
func WithWorkers(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithResolverTracer records a span per block.
func WithResolverTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) { r.tracer = t }
}

// WithoutCache lexes every block and stores nothing.
func WithoutCache() ResolverOption {
	return func(r *Resolver) { r.skipCache = true }
}

// Resolver highlights pending blocks on a bounded pool of goroutines, fills
// the cache and publishes each resolution as it completes.
type Resolver struct {
	highlighter *Highlighter
	cache       *Cache
	broker      *pubsub.Broker[Resolution]
	tracer      trace.Tracer
	workers     int
	skipCache   bool
	rtc         *cachemanager.ReadThroughCache[string, styler.HighlightResult, *request]
}

// NewResolver creates a resolver writing into cache.
func NewResolver(h *Highlighter, cache *Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		highlighter: h,
		cache:       cache,
		broker:      pubsub.NewBroker[Resolution](),
		tracer:      noop.NewTracerProvider().Tracer("highlight"),
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rtc = cachemanager.NewReadThroughCache[string, styler.HighlightResult, *request](
		cache.manager, r.lex, r.skipCache)
	return r
}

// Broker publishes a ResolvedEvent or FailedEvent per block.
func (r *Resolver) Broker() *pubsub.Broker[Resolution] {
	return r.broker
}

// Cache returns the cache the resolver fills.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Close shuts down the broker. Subscribers see their channels close.
func (r *Resolver) Close() {
	r.broker.Close()
}

func (r *Resolver) lex(ctx context.Context, req *request) (styler.HighlightResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, lexer, err := r.highlighter.Highlight(req.block)
	if err != nil {
		return nil, err
	}
	req.lexer = lexer
	req.computed = true
	return result, nil
}

// Resolve highlights blocks, at most workers at a time, and returns the
// resolutions in the order of blocks. A failed block does not stop the
// others; its error is carried in its Resolution. The returned error is
// non-nil only when ctx was cancelled, and then every block that was not
// highlighted carries the context error.
func (r *Resolver) Resolve(ctx context.Context, blocks []styler.CodeBlock) ([]Resolution, error) {
	out := make([]Resolution, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, block := range blocks {
		req := &request{
			id:    uuid.NewString(),
			block: block,
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				// Never started; the block stays pending for the caller.
				out[i] = Resolution{RequestID: req.id, Block: req.block, Err: err}
				return err
			}
			out[i] = r.resolveOne(gctx, req)
			if out[i].Err != nil {
				r.broker.Publish(pubsub.FailedEvent, out[i])
			} else {
				r.broker.Publish(pubsub.ResolvedEvent, out[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, fmt.Errorf("resolve code blocks: %w", err)
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, req *request) Resolution {
	res := Resolution{RequestID: req.id, Block: req.block}

	err := tracing.Run(ctx, r.tracer, tracing.SpanPrefixHighlight+"block", func(ctx context.Context, span trace.Span) error {
		result, err := r.rtc.GetWithRefresh(ctx, req.block.Text, req, r.cache.ttl)
		if err != nil {
			return err
		}
		res.Result = result
		res.Lexer = req.lexer
		res.Cached = !req.computed
		if res.Cached {
			span.AddEvent(tracing.EventCacheHit)
		} else {
			span.AddEvent(tracing.EventCacheMiss)
		}
		span.SetAttributes(
			attribute.String(tracing.AttrLexer, req.lexer),
			attribute.Int(tracing.AttrSpanCount, len(result)),
			attribute.Bool(tracing.AttrCacheHit, res.Cached),
		)
		return nil
	},
		attribute.String(tracing.AttrRequestID, req.id),
		attribute.String(tracing.AttrLanguage, req.block.Language()),
		attribute.Int(tracing.AttrBlockRunes, req.block.Range.Len()),
	)
	if err != nil {
		res.Err = err
		log.ErrorErr(log.CatHighlight, "highlight failed", err, "request", req.id, "language", req.block.Language())
		return res
	}

	log.Debug(log.CatHighlight, "block resolved",
		"request", req.id,
		"language", req.block.Language(),
		"lexer", res.Lexer,
		"spans", len(res.Result),
		"cached", res.Cached)
	return res
}

// Apply writes every successful resolution into target.
func Apply(target styler.Target, resolutions []Resolution) int {
	applied := 0
	for _, res := range resolutions {
		if res.Err != nil {
			continue
		}
		styler.ResolveCachedBlock(target, res.Block, res.Result)
		applied++
	}
	return applied
}
