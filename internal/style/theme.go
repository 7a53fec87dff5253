package style

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
)

// DefaultBaseFontSize is the body text size of the built-in presets.
const DefaultBaseFontSize = 18

// Theme is the fixed configuration table a styler is built with: palette,
// base size and font families. Treat it as immutable after construction;
// Accents returns a copy.
type Theme struct {
	Name               string
	BaseFontSize       float64
	BodyFamily         string
	MonoFamily         string
	SerifFamily        string
	Text               Color
	Background         Color
	Link               Color
	CodeBackground     Color
	LineHeightMultiple float64

	accents []Color
}

// Accents returns the accent palette.
func (t Theme) Accents() []Color {
	return slices.Clone(t.accents)
}

// Accent returns the i-th accent colour, wrapping around the palette.
func (t Theme) Accent(i int) Color {
	if len(t.accents) == 0 {
		return t.Text
	}
	return t.accents[((i%len(t.accents))+len(t.accents))%len(t.accents)]
}

// HeadingSize is the font size for a heading of the given level.
func (t Theme) HeadingSize(level int) float64 {
	return t.BaseFontSize + 2 + float64(6-level)*1.7
}

// DefaultAttributes returns the attributes every document starts from.
func (t Theme) DefaultAttributes() Attributes {
	return Attributes{
		Family:             t.BodyFamily,
		Size:               t.BaseFontSize,
		TextColor:          t.Text,
		BackgroundColor:    t.Background,
		TabStops:           []float64{},
		Alignment:          AlignLeft,
		LineHeightMultiple: t.LineHeightMultiple,
	}
}

// Validate checks the theme against reg.
func (t Theme) Validate(reg *FontRegistry) error {
	if t.BaseFontSize <= 0 {
		return &ConfigurationError{Setting: "base font size", Value: fmt.Sprint(t.BaseFontSize), Reason: "must be positive"}
	}
	if len(t.accents) < 2 {
		return &ConfigurationError{Setting: "accents", Reason: "at least two accent colours are required"}
	}
	for _, fam := range []string{t.BodyFamily, t.MonoFamily, t.SerifFamily} {
		if _, err := reg.Resolve(fam, t.BaseFontSize, false, false); err != nil {
			return err
		}
	}
	return nil
}

// Preset is a named built-in theme.
type Preset struct {
	Name        string
	Description string
	Theme       Theme
}

// solarized accent values from https://ethanschoonover.com/solarized/#the-values
var solarizedAccents = []Color{
	"#B58900", // yellow
	"#CB4B16", // orange
	"#DC322F", // red
	"#D33682", // magenta
	"#6C71C4", // violet
	"#268BD2", // blue
	"#2AA198", // cyan
	"#859900", // green
}

// SolarizedPreset is the default theme.
var SolarizedPreset = Preset{
	Name:        "solarized",
	Description: "Solarized accents on the terminal's own text colours",
	Theme: Theme{
		Name:               "solarized",
		BaseFontSize:       DefaultBaseFontSize,
		BodyFamily:         FamilyHelvetica,
		MonoFamily:         FamilyMonaco,
		SerifFamily:        FamilyGeorgia,
		Text:               "#839496",
		Background:         "",
		Link:               "#268BD2",
		CodeBackground:     "#073642",
		LineHeightMultiple: 1.1,
		accents:            solarizedAccents,
	},
}

// MonoPreset renders everything in greys.
var MonoPreset = Preset{
	Name:        "mono",
	Description: "Greyscale, for terminals with poor colour support",
	Theme: Theme{
		Name:               "mono",
		BaseFontSize:       DefaultBaseFontSize,
		BodyFamily:         FamilyHelvetica,
		MonoFamily:         FamilyMonaco,
		SerifFamily:        FamilyGeorgia,
		Text:               "#D0D0D0",
		Background:         "",
		Link:               "#FFFFFF",
		CodeBackground:     "#303030",
		LineHeightMultiple: 1.1,
		accents:            []Color{"#A8A8A8", "#FFFFFF"},
	},
}

// Presets contains all built-in presets.
var Presets = map[string]Preset{
	SolarizedPreset.Name: SolarizedPreset,
	MonoPreset.Name:      MonoPreset,
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThemeSpec mirrors config.ThemeConfig to avoid an import cycle.
type ThemeSpec struct {
	Preset             string
	BaseFontSize       float64
	BodyFamily         string
	MonoFamily         string
	SerifFamily        string
	Accents            []string
	Text               string
	Background         string
	Link               string
	CodeBackground     string
	LineHeightMultiple float64
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// BuildTheme starts from the named preset (solarized when empty) and applies
// every non-zero override in spec.
func BuildTheme(spec ThemeSpec) (Theme, error) {
	name := spec.Preset
	if name == "" {
		name = SolarizedPreset.Name
	}
	preset, ok := Presets[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme preset: %s", name)
	}
	t := preset.Theme
	t.accents = slices.Clone(t.accents)

	if spec.BaseFontSize != 0 {
		t.BaseFontSize = spec.BaseFontSize
	}
	if spec.BodyFamily != "" {
		t.BodyFamily = spec.BodyFamily
	}
	if spec.MonoFamily != "" {
		t.MonoFamily = spec.MonoFamily
	}
	if spec.SerifFamily != "" {
		t.SerifFamily = spec.SerifFamily
	}
	if spec.LineHeightMultiple != 0 {
		t.LineHeightMultiple = spec.LineHeightMultiple
	}

	colors := []struct {
		name  string
		value string
		dst   *Color
	}{
		{"text", spec.Text, &t.Text},
		{"background", spec.Background, &t.Background},
		{"link", spec.Link, &t.Link},
		{"code_background", spec.CodeBackground, &t.CodeBackground},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if !hexColor.MatchString(c.value) {
			return Theme{}, fmt.Errorf("invalid hex color for %s: %s", c.name, c.value)
		}
		*c.dst = Color(c.value)
	}

	if len(spec.Accents) > 0 {
		accents := make([]Color, 0, len(spec.Accents))
		for i, v := range spec.Accents {
			if !hexColor.MatchString(v) {
				return Theme{}, fmt.Errorf("invalid hex color for accents[%d]: %s", i, v)
			}
			accents = append(accents, Color(v))
		}
		t.accents = accents
	}
	return t, nil
}
