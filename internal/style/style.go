// Package style holds the inheritable text attributes that flow down a
// document tree and the concrete values derived from them.
package style

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Color is an opaque colour handle. Values are hex strings or ANSI indices.
type Color = lipgloss.Color

// Alignment is the horizontal alignment of a paragraph.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
	AlignJustified
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	case AlignJustified:
		return "justified"
	default:
		return "unknown"
	}
}

// Attributes is the style state inherited along one path of the document
// tree. It is a value type: callers get their own copy on every descent.
type Attributes struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool

	TextColor       Color
	BackgroundColor Color

	FirstLineIndent    float64
	BodyIndent         float64
	TabStops           []float64
	Alignment          Alignment
	LineHeightMultiple float64
}

// Clone returns a copy that shares no memory with a.
func (a Attributes) Clone() Attributes {
	a.TabStops = slices.Clone(a.TabStops)
	return a
}

// SetIndent sets both the first-line and body indent.
func (a *Attributes) SetIndent(value float64) {
	a.FirstLineIndent = value
	a.BodyIndent = value
}

// Font resolves the attribute's family, size and traits against reg.
func (a Attributes) Font(reg *FontRegistry) (Font, error) {
	return reg.Resolve(a.Family, a.Size, a.Bold, a.Italic)
}

// ParagraphStyle builds the layout descriptor for the attributes.
func (a Attributes) ParagraphStyle() ParagraphStyle {
	tabs := make([]TabStop, 0, len(a.TabStops))
	for _, loc := range a.TabStops {
		tabs = append(tabs, TabStop{Alignment: AlignLeft, Location: loc})
	}
	return ParagraphStyle{
		FirstLineIndent:    a.FirstLineIndent,
		BodyIndent:         a.BodyIndent,
		TabStops:           tabs,
		Alignment:          a.Alignment,
		LineHeightMultiple: a.LineHeightMultiple,
	}
}

// StyleMap returns the baseline operations for a: font, foreground colour,
// paragraph style and background colour.
func (a Attributes) StyleMap(reg *FontRegistry) (Map, error) {
	font, err := a.Font(reg)
	if err != nil {
		return nil, err
	}
	return Map{
		KeyFont:       font,
		KeyForeground: a.TextColor,
		KeyParagraph:  a.ParagraphStyle(),
		KeyBackground: a.BackgroundColor,
	}, nil
}

// TabStop is a single tab position.
type TabStop struct {
	Alignment Alignment
	Location  float64
}

// ParagraphStyle describes paragraph layout.
type ParagraphStyle struct {
	FirstLineIndent    float64
	BodyIndent         float64
	TabStops           []TabStop
	Alignment          Alignment
	LineHeightMultiple float64
}

// Equal reports whether p and o describe the same layout.
func (p ParagraphStyle) Equal(o ParagraphStyle) bool {
	return p.FirstLineIndent == o.FirstLineIndent &&
		p.BodyIndent == o.BodyIndent &&
		p.Alignment == o.Alignment &&
		p.LineHeightMultiple == o.LineHeightMultiple &&
		slices.Equal(p.TabStops, o.TabStops)
}
