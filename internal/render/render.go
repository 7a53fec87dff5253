// Package render turns a styled text buffer into terminal output. Each style
// dimension maps onto an ANSI attribute: colours directly, font traits onto
// bold, italic and faint, paragraph indents onto leading columns, and links
// onto underlined OSC 8 hyperlinks.
package render

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/textbuf"
	"github.com/zjrosen/markstyle/internal/tracing"
)

// IndentColumns is how many columns one base font size of indent occupies.
const IndentColumns = 2

// ParseProfile maps a config value onto a termenv profile. "auto" and the
// empty string detect the profile from the environment.
func ParseProfile(s string) (termenv.Profile, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return termenv.EnvColorProfile(), nil
	case "truecolor", "true_color", "24bit":
		return termenv.TrueColor, nil
	case "ansi256", "256":
		return termenv.ANSI256, nil
	case "ansi", "16":
		return termenv.ANSI, nil
	case "ascii", "none":
		return termenv.Ascii, nil
	default:
		return termenv.Ascii, fmt.Errorf("unknown color profile %q", s)
	}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth wraps prose at width columns. Zero disables wrapping.
func WithWidth(width int) Option {
	return func(r *Renderer) { r.width = max(width, 0) }
}

// WithProfile forces a colour profile.
func WithProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.profile = p }
}

// WithHyperlinks emits OSC 8 hyperlinks for link runs.
func WithHyperlinks(enabled bool) Option {
	return func(r *Renderer) { r.hyperlinks = enabled }
}

// WithTracer records a span per render.
func WithTracer(t trace.Tracer) Option {
	return func(r *Renderer) { r.tracer = t }
}

// Renderer converts buffers to ANSI text.
type Renderer struct {
	theme      style.Theme
	width      int
	profile    termenv.Profile
	hyperlinks bool
	tracer     trace.Tracer
	lg         *lipgloss.Renderer
}

// New creates a Renderer for theme.
func New(theme style.Theme, opts ...Option) *Renderer {
	r := &Renderer{
		theme:   theme,
		profile: termenv.EnvColorProfile(),
		tracer:  noop.NewTracerProvider().Tracer("render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lg = lipgloss.NewRenderer(io.Discard)
	r.lg.SetColorProfile(r.profile)
	return r
}

// Width returns the wrap width, 0 when wrapping is off.
func (r *Renderer) Width() int { return r.width }

// Resize returns a copy of r wrapping at width.
func (r *Renderer) Resize(width int) *Renderer {
	c := *r
	c.width = max(width, 0)
	return &c
}

// line is one source line of the buffer, without its line feed.
type line struct {
	rng  textbuf.Range
	code bool
}

// Render returns the buffer as terminal text.
func (r *Renderer) Render(ctx context.Context, buf *textbuf.Buffer) string {
	var out string
	_ = tracing.Run(ctx, r.tracer, tracing.SpanPrefixRender+"buffer", func(_ context.Context, span trace.Span) error {
		out = r.render(buf)
		span.SetAttributes(attribute.Int(tracing.AttrRenderLines, strings.Count(out, "\n")))
		return nil
	},
		attribute.Int(tracing.AttrDocumentRunes, buf.Len()),
		attribute.Int(tracing.AttrRenderWidth, r.width))
	return out
}

func (r *Renderer) render(buf *textbuf.Buffer) string {
	lines := splitLines(buf, r.theme.CodeBackground)
	runs := buf.Runs()

	rendered := make([]string, len(lines))
	for i := 0; i < len(lines); {
		if !lines[i].code {
			rendered[i] = r.prose(buf, runs, lines[i])
			i++
			continue
		}
		// Code lines are padded as a group so the background forms a block.
		j := i
		width := 0
		for j < len(lines) && lines[j].code {
			width = max(width, runewidth.StringWidth(buf.Slice(lines[j].rng)))
			j++
		}
		for k := i; k < j; k++ {
			rendered[k] = r.code(buf, runs, lines[k], width)
		}
		i = j
	}

	s := strings.Join(rendered, "\n")
	if buf.Len() > 0 && strings.HasSuffix(buf.Text(), "\n") {
		s += "\n"
	}
	return s
}

func splitLines(buf *textbuf.Buffer, codeBg style.Color) []line {
	text := []rune(buf.Text())
	var lines []line
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		if i == len(text) && start == len(text) && start > 0 {
			break
		}
		l := line{rng: textbuf.Range{Start: start, End: i}}
		if !l.rng.Empty() {
			l.code = isCodeBlock(buf.StyleAt(start), codeBg)
		}
		lines = append(lines, l)
		start = i + 1
	}
	return lines
}

// isCodeBlock reports whether a rune belongs to a code block: a monospace
// font over the theme's code background. Inline code over the page
// background is prose.
func isCodeBlock(m style.Map, codeBg style.Color) bool {
	font, ok := m[style.KeyFont].(style.Font)
	if !ok || !font.Monospace() || codeBg == "" {
		return false
	}
	bg, _ := m[style.KeyBackground].(style.Color)
	return bg == codeBg
}

// indentOf converts the paragraph indent at the start of l into columns.
func (r *Renderer) indentOf(buf *textbuf.Buffer, l line) int {
	if l.rng.Empty() || r.theme.BaseFontSize <= 0 {
		return 0
	}
	ps, ok := buf.StyleAt(l.rng.Start)[style.KeyParagraph].(style.ParagraphStyle)
	if !ok {
		return 0
	}
	return int(ps.BodyIndent / r.theme.BaseFontSize * IndentColumns)
}

func (r *Renderer) styled(buf *textbuf.Buffer, runs []textbuf.Run, rng textbuf.Range) string {
	var b strings.Builder
	for _, run := range runs {
		piece := run.Range.Intersect(rng)
		if piece.Empty() {
			continue
		}
		b.WriteString(r.span(buf.Slice(piece), run.Style))
	}
	return b.String()
}

func (r *Renderer) prose(buf *textbuf.Buffer, runs []textbuf.Run, l line) string {
	s := r.styled(buf, runs, l.rng)
	cols := r.indentOf(buf, l)
	if r.width > 0 {
		s = wordwrap.String(s, max(r.width-cols, 1))
	}
	if cols > 0 {
		s = indent.String(s, uint(cols))
	}
	return s
}

func (r *Renderer) code(buf *textbuf.Buffer, runs []textbuf.Run, l line, width int) string {
	s := r.styled(buf, runs, l.rng)
	if pad := width - runewidth.StringWidth(buf.Slice(l.rng)); pad > 0 {
		bg := r.lg.NewStyle().Background(lipgloss.Color(r.theme.CodeBackground))
		s += bg.Render(strings.Repeat(" ", pad))
	}
	if cols := r.indentOf(buf, l); cols > 0 {
		s = indent.String(s, uint(cols))
	}
	return s
}

// span renders text with the style of one run.
func (r *Renderer) span(text string, m style.Map) string {
	st := r.lg.NewStyle().TabWidth(lipgloss.NoTabConversion)

	if fg, ok := m[style.KeyForeground].(style.Color); ok && fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	bg, _ := m[style.KeyBackground].(style.Color)
	if font, ok := m[style.KeyFont].(style.Font); ok {
		// Terminals have one font size: larger text is bold instead.
		st = st.Bold(font.Bold || font.Size > r.theme.BaseFontSize)
		st = st.Italic(font.Italic)
		switch font.Class {
		case style.ClassSerif:
			st = st.Faint(true)
		case style.ClassMonospace:
			if bg == "" || bg == r.theme.Background {
				bg = r.theme.CodeBackground
			}
		}
	}
	if bg != "" {
		st = st.Background(lipgloss.Color(bg))
	}

	u, isLink := m[style.KeyLink].(*url.URL)
	if isLink {
		st = st.Underline(true)
	}
	out := st.Render(text)
	if isLink && r.hyperlinks && r.profile != termenv.Ascii {
		out = termenv.Hyperlink(u.String(), out)
	}
	return out
}
