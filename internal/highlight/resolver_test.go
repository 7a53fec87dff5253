package highlight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/markstyle/internal/document"
	"github.com/zjrosen/markstyle/internal/pubsub"
	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/textbuf"
)

const twoBlocks = "```go\nx := 1\n```\n\n```python\nprint(1)\n```\n"

func pendingBlocks(t *testing.T, buf *textbuf.Buffer) []styler.CodeBlock {
	t.Helper()
	root := document.NewDocument(
		document.NewCodeBlock("x := 1\n", document.Info("go"),
			document.Position{Line: 1, Column: 1}, document.Position{Line: 3, Column: 3}),
		document.NewCodeBlock("print(1)\n", document.Info("python"),
			document.Position{Line: 5, Column: 1}, document.Position{Line: 7, Column: 3}),
	)
	s, err := styler.New(style.SolarizedPreset.Theme)
	require.NoError(t, err)

	res, err := s.Style(context.Background(), buf, root, buf.Text(), nil)
	require.NoError(t, err)
	require.Len(t, res.Pending, 2)
	return res.Pending
}

func newResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	r := NewResolver(newHighlighter(t), NewCache(time.Minute, time.Minute), opts...)
	t.Cleanup(r.Close)
	return r
}

func TestResolver_ResolveInOrderAndFillsCache(t *testing.T) {
	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t, WithWorkers(2))

	out, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, "x := 1\n", out[0].Block.Text)
	require.Equal(t, "Go", out[0].Lexer)
	require.Equal(t, "Python", out[1].Lexer)
	for _, res := range out {
		require.NoError(t, res.Err)
		require.False(t, res.Cached)
		require.NotEmpty(t, res.RequestID)
		require.NotEmpty(t, res.Result)
	}
	require.NotEqual(t, out[0].RequestID, out[1].RequestID)

	// A second walk now finds both blocks in the cache.
	s, err := styler.New(style.SolarizedPreset.Theme)
	require.NoError(t, err)
	root := document.NewDocument(
		document.NewCodeBlock("x := 1\n", document.Info("go"),
			document.Position{Line: 1, Column: 1}, document.Position{Line: 3, Column: 3}),
	)
	walk, err := s.Style(context.Background(), textbuf.New(twoBlocks), root, twoBlocks, r.Cache())
	require.NoError(t, err)
	require.Empty(t, walk.Pending)

	again, err := r.Resolve(context.Background(), blocks[:1])
	require.NoError(t, err)
	require.True(t, again[0].Cached)
}

func TestResolver_PublishesResolutions(t *testing.T) {
	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := r.Broker().Subscribe(ctx)

	_, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)

	seen := map[string]bool{}
	for range 2 {
		select {
		case ev := <-events:
			require.Equal(t, pubsub.ResolvedEvent, ev.Type)
			seen[ev.Payload.Block.Text] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for resolution")
		}
	}
	require.True(t, seen["x := 1\n"])
	require.True(t, seen["print(1)\n"])
}

func TestResolver_ApplyStylesCode(t *testing.T) {
	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t)

	out, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)
	require.Equal(t, 2, Apply(buf, out))

	// "x" on line 2 carries a token colour; the background from the walk
	// remains.
	fg, ok := buf.ValueAt(6, style.KeyForeground)
	require.True(t, ok)
	require.NotEmpty(t, fg)
	bg, ok := buf.ValueAt(6, style.KeyBackground)
	require.True(t, ok)
	require.Equal(t, style.SolarizedPreset.Theme.CodeBackground, bg)
}

func TestResolver_WithoutCache(t *testing.T) {
	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t, WithoutCache())

	_, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)
	out, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)
	require.False(t, out[0].Cached)
	require.Zero(t, r.Cache().Stats().Items)
}

func TestResolver_CancelledContext(t *testing.T) {
	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.Resolve(ctx, blocks)
	require.ErrorIs(t, err, context.Canceled)

	// Nothing was highlighted, and every block says so.
	require.Len(t, out, 2)
	for i, res := range out {
		require.ErrorIs(t, res.Err, context.Canceled)
		require.Equal(t, blocks[i], res.Block)
	}
	require.Zero(t, Apply(buf, out))
}

func TestResolver_Tracing(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	buf := textbuf.New(twoBlocks)
	blocks := pendingBlocks(t, buf)
	r := newResolver(t, WithResolverTracer(tp.Tracer("test")))

	_, err := r.Resolve(context.Background(), blocks)
	require.NoError(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	for _, s := range ended {
		require.Equal(t, "highlight.block", s.Name())
		require.Len(t, s.Events(), 1)
		require.Equal(t, "cache.miss", s.Events()[0].Name)
	}
}

func TestApply_SkipsFailures(t *testing.T) {
	buf := textbuf.New("abc")
	n := Apply(buf, []Resolution{{Err: context.Canceled}})
	require.Zero(t, n)
	require.Empty(t, buf.Ops())
}
