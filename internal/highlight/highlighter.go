// Package highlight resolves pending code blocks: it lexes them with chroma,
// turns the tokens into style spans relative to the block's literal text and
// keeps the results in an expiring cache keyed by that literal.
package highlight

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/textbuf"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "solarized-dark"

// PlainLexer names the result of a block no lexer claimed.
const PlainLexer = "plaintext"

// Token is one lexed piece of a block's literal text. Range is in runes,
// relative to the start of the literal.
type Token struct {
	Range  textbuf.Range
	Color  style.Color
	Bold   bool
	Italic bool
}

// Highlighter lexes code with chroma. It is safe for concurrent use.
type Highlighter struct {
	theme style.Theme
	fonts *style.FontRegistry
	style *chroma.Style

	mu     sync.RWMutex
	lexers map[string]chroma.Lexer
}

// NewHighlighter builds a highlighter for theme using the named chroma style.
func NewHighlighter(theme style.Theme, styleName string, fonts *style.FontRegistry) (*Highlighter, error) {
	if styleName == "" {
		styleName = DefaultStyle
	}
	cs, ok := styles.Registry[strings.ToLower(styleName)]
	if !ok {
		return nil, &style.ConfigurationError{
			Setting: "highlight style",
			Value:   styleName,
			Reason:  "unknown chroma style",
		}
	}
	if fonts == nil {
		fonts = style.NewFontRegistry()
	}
	if _, err := fonts.Resolve(theme.MonoFamily, theme.BaseFontSize, false, false); err != nil {
		return nil, fmt.Errorf("highlight font: %w", err)
	}
	return &Highlighter{
		theme:  theme,
		fonts:  fonts,
		style:  cs,
		lexers: make(map[string]chroma.Lexer),
	}, nil
}

// StyleNames lists the available chroma styles.
func StyleNames() []string {
	return styles.Names()
}

// HasStyle reports whether name is a known chroma style. The empty name
// selects DefaultStyle and is accepted.
func HasStyle(name string) bool {
	if name == "" {
		return true
	}
	_, ok := styles.Registry[strings.ToLower(name)]
	return ok
}

// lexer picks a lexer by language tag, then by file extension, then by
// content analysis. It returns nil when nothing matches.
func (h *Highlighter) lexer(language, code string) chroma.Lexer {
	key := strings.ToLower(language)
	if key != "" {
		h.mu.RLock()
		l := h.lexers[key]
		h.mu.RUnlock()
		if l != nil {
			return l
		}

		l = lexers.Get(key)
		if l == nil {
			l = lexers.Match("file." + key)
		}
		if l == nil {
			return nil
		}
		l = chroma.Coalesce(l)

		h.mu.Lock()
		h.lexers[key] = l
		h.mu.Unlock()
		return l
	}

	if l := lexers.Analyse(code); l != nil {
		return chroma.Coalesce(l)
	}
	return nil
}

// Tokens lexes code and returns the styled tokens along with the name of
// the lexer used. Unknown languages yield a single plain token.
func (h *Highlighter) Tokens(language, code string) ([]Token, string) {
	n := utf8.RuneCountInString(code)
	plain := []Token{{Range: textbuf.Range{Start: 0, End: n}, Color: h.theme.Text}}

	l := h.lexer(language, code)
	if l == nil {
		log.Debug(log.CatHighlight, "no lexer", "language", language)
		return plain, PlainLexer
	}
	name := l.Config().Name

	// The default options rewrite \r\n, which would shift offsets.
	it, err := l.Tokenise(&chroma.TokeniseOptions{State: "root"}, code)
	if err != nil {
		log.ErrorErr(log.CatHighlight, "tokenise failed", err, "lexer", name)
		return plain, PlainLexer
	}

	var out []Token
	pos := 0
	for _, tok := range it.Tokens() {
		width := utf8.RuneCountInString(tok.Value)
		if width == 0 {
			continue
		}
		r := textbuf.Range{Start: pos, End: min(pos+width, n)}
		pos += width
		if r.Empty() {
			continue
		}

		entry := h.style.Get(tok.Type)
		t := Token{
			Range:  r,
			Color:  h.theme.Text,
			Bold:   entry.Bold == chroma.Yes,
			Italic: entry.Italic == chroma.Yes,
		}
		if entry.Colour.IsSet() {
			t.Color = style.Color(entry.Colour.String())
		}
		out = append(out, t)
	}
	return out, name
}

// Highlight lexes the literal text of block and returns spans relative to
// the start of the literal. The spans depend only on the literal and its
// language, so they can be cached by literal and applied to any block
// through its layout.
func (h *Highlighter) Highlight(block styler.CodeBlock) (styler.HighlightResult, string, error) {
	tokens, lexer := h.Tokens(block.Language(), block.Text)

	var result styler.HighlightResult
	for _, tok := range tokens {
		if tok.Range.Empty() {
			continue
		}
		m := style.Map{style.KeyForeground: tok.Color}
		if tok.Bold || tok.Italic {
			font, err := h.fonts.Resolve(h.theme.MonoFamily, h.theme.BaseFontSize, tok.Bold, tok.Italic)
			if err != nil {
				return nil, "", err
			}
			m[style.KeyFont] = font
		}
		result = append(result, styler.HighlightSpan{Range: tok.Range, Style: m})
	}
	return result, lexer, nil
}
