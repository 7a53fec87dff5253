package style

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributes_SetIndent(t *testing.T) {
	a := SolarizedPreset.Theme.DefaultAttributes()
	a.SetIndent(18)
	require.Equal(t, 18.0, a.FirstLineIndent)
	require.Equal(t, 18.0, a.BodyIndent)
}

func TestAttributes_CloneDoesNotShareTabStops(t *testing.T) {
	parent := Attributes{TabStops: []float64{10, 20}}
	child := parent.Clone()
	child.TabStops[0] = 99
	child.TabStops = append(child.TabStops, 30)

	require.Equal(t, []float64{10, 20}, parent.TabStops)
}

func TestAttributes_Font(t *testing.T) {
	reg := NewFontRegistry()
	a := Attributes{Family: "monaco", Size: 12, Bold: true}

	f, err := a.Font(reg)
	require.NoError(t, err)
	require.Equal(t, Font{Family: FamilyMonaco, Class: ClassMonospace, Size: 12, Bold: true}, f)
	require.True(t, f.Monospace())
}

func TestAttributes_FontUnknownFamily(t *testing.T) {
	a := Attributes{Family: "Comic Sans", Size: 12}

	_, err := a.Font(NewFontRegistry())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "font family", cfgErr.Setting)
	require.Contains(t, err.Error(), "Comic Sans")
}

func TestFontRegistry_NilAndBadSize(t *testing.T) {
	var reg *FontRegistry
	_, err := reg.Resolve(FamilyHelvetica, 12, false, false)
	require.Error(t, err)

	_, err = NewFontRegistry().Resolve(FamilyHelvetica, 0, false, false)
	require.Error(t, err)
}

func TestFontRegistry_Register(t *testing.T) {
	reg := NewFontRegistry()
	reg.Register("Fira Code", ClassMonospace)

	f, err := reg.Resolve("fira code", 14, false, true)
	require.NoError(t, err)
	require.Equal(t, "Fira Code", f.Family)
	require.True(t, f.Italic)
	require.Contains(t, reg.Families(), "Fira Code")
}

func TestAttributes_ParagraphStyle(t *testing.T) {
	a := Attributes{
		FirstLineIndent:    4,
		BodyIndent:         8,
		TabStops:           []float64{28, 56},
		Alignment:          AlignCenter,
		LineHeightMultiple: 1.1,
	}
	p := a.ParagraphStyle()

	require.Equal(t, 4.0, p.FirstLineIndent)
	require.Equal(t, 8.0, p.BodyIndent)
	require.Equal(t, []TabStop{{AlignLeft, 28}, {AlignLeft, 56}}, p.TabStops)
	require.Equal(t, AlignCenter, p.Alignment)
	require.True(t, p.Equal(a.ParagraphStyle()))
	require.False(t, p.Equal(ParagraphStyle{}))
}

func TestAttributes_StyleMap(t *testing.T) {
	theme := SolarizedPreset.Theme
	m, err := theme.DefaultAttributes().StyleMap(NewFontRegistry())
	require.NoError(t, err)

	require.Len(t, m, 4)
	require.Equal(t, Font{Family: FamilyHelvetica, Class: ClassSans, Size: DefaultBaseFontSize}, m[KeyFont])
	require.Equal(t, theme.Text, m[KeyForeground])
	require.Equal(t, theme.Background, m[KeyBackground])
	require.IsType(t, ParagraphStyle{}, m[KeyParagraph])
}

func TestAttributes_StyleMapPropagatesFontError(t *testing.T) {
	a := Attributes{Family: "nope", Size: 10}
	_, err := a.StyleMap(NewFontRegistry())
	require.Error(t, err)
}

func TestAlignment_String(t *testing.T) {
	require.Equal(t, "left", AlignLeft.String())
	require.Equal(t, "justified", AlignJustified.String())
	require.Equal(t, "unknown", Alignment(42).String())
}

func TestParseFamilyClass(t *testing.T) {
	c, err := ParseFamilyClass("monospace")
	require.NoError(t, err)
	require.Equal(t, ClassMonospace, c)

	_, err = ParseFamilyClass("cursive")
	require.Error(t, err)
}
