package style

import (
	"fmt"
	"sort"
	"strings"
)

// FamilyClass groups font families by how a terminal or layout engine should
// treat them.
type FamilyClass int

const (
	ClassSans FamilyClass = iota
	ClassSerif
	ClassMonospace
)

// Built-in family names.
const (
	FamilyHelvetica = "Helvetica"
	FamilyMonaco    = "Monaco"
	FamilyGeorgia   = "Georgia"
)

// Font is a resolved font.
type Font struct {
	Family string
	Class  FamilyClass
	Size   float64
	Bold   bool
	Italic bool
}

// Monospace reports whether the font is fixed width.
func (f Font) Monospace() bool { return f.Class == ClassMonospace }

// ConfigurationError reports a developer-controlled setting that cannot be
// honoured, such as a font family nobody registered.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s %q: %s", e.Setting, e.Value, e.Reason)
}

// FontRegistry maps family names to their class. Lookups are
// case-insensitive. A registry is read-only once built.
type FontRegistry struct {
	families map[string]family
}

type family struct {
	name  string
	class FamilyClass
}

// NewFontRegistry returns a registry holding the built-in families.
func NewFontRegistry() *FontRegistry {
	r := &FontRegistry{families: make(map[string]family)}
	r.Register(FamilyHelvetica, ClassSans)
	r.Register(FamilyMonaco, ClassMonospace)
	r.Register(FamilyGeorgia, ClassSerif)
	return r
}

// Register adds or replaces a family.
func (r *FontRegistry) Register(name string, class FamilyClass) {
	r.families[strings.ToLower(name)] = family{name: name, class: class}
}

// Families returns the registered family names, sorted.
func (r *FontRegistry) Families() []string {
	names := make([]string, 0, len(r.families))
	for _, f := range r.families {
		names = append(names, f.name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds a Font for the requested family and traits.
func (r *FontRegistry) Resolve(name string, size float64, bold, italic bool) (Font, error) {
	if r == nil {
		return Font{}, &ConfigurationError{Setting: "font registry", Reason: "not configured"}
	}
	f, ok := r.families[strings.ToLower(name)]
	if !ok {
		return Font{}, &ConfigurationError{Setting: "font family", Value: name, Reason: "not registered"}
	}
	if size <= 0 {
		return Font{}, &ConfigurationError{Setting: "font size", Value: fmt.Sprint(size), Reason: "must be positive"}
	}
	return Font{Family: f.name, Class: f.class, Size: size, Bold: bold, Italic: italic}, nil
}

// ParseFamilyClass converts a config string into a FamilyClass.
func ParseFamilyClass(s string) (FamilyClass, error) {
	switch strings.ToLower(s) {
	case "sans", "":
		return ClassSans, nil
	case "serif":
		return ClassSerif, nil
	case "mono", "monospace":
		return ClassMonospace, nil
	default:
		return ClassSans, fmt.Errorf("unknown family class %q", s)
	}
}
