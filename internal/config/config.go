// Package config provides configuration types and defaults for markstyle.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/markstyle/internal/highlight"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/render"
	"github.com/zjrosen/markstyle/internal/style"
	"github.com/zjrosen/markstyle/internal/tracing"
)

// Config holds all configuration options for markstyle.
type Config struct {
	Theme     ThemeConfig     `mapstructure:"theme"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Render    RenderConfig    `mapstructure:"render"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`

	// LogLevel drops debug log lines below this level. Valid values:
	// "debug" (default), "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`
}

// ThemeConfig selects a preset and overrides parts of it. Zero values keep
// the preset's setting.
type ThemeConfig struct {
	// Preset is the base theme. Valid values: "solarized" (default), "mono".
	Preset string `mapstructure:"preset"`

	BaseFontSize float64 `mapstructure:"base_font_size"`
	BodyFamily   string  `mapstructure:"body_family"`
	MonoFamily   string  `mapstructure:"mono_family"`
	SerifFamily  string  `mapstructure:"serif_family"`

	// Accents replaces the accent palette. Headings use the second entry.
	Accents        []string `mapstructure:"accents"`
	Text           string   `mapstructure:"text"`
	Background     string   `mapstructure:"background"`
	Link           string   `mapstructure:"link"`
	CodeBackground string   `mapstructure:"code_background"`
	LineHeight     float64  `mapstructure:"line_height"`

	// Fonts registers extra families so the *_family settings can name them.
	Fonts []FontConfig `mapstructure:"fonts"`
}

// FontConfig registers one font family.
type FontConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Class is "sans" (default), "serif" or "monospace".
	Class string `mapstructure:"class" yaml:"class"`
}

// Spec converts the config section into the style package's theme spec.
func (t ThemeConfig) Spec() style.ThemeSpec {
	return style.ThemeSpec{
		Preset:             t.Preset,
		BaseFontSize:       t.BaseFontSize,
		BodyFamily:         t.BodyFamily,
		MonoFamily:         t.MonoFamily,
		SerifFamily:        t.SerifFamily,
		Accents:            t.Accents,
		Text:               t.Text,
		Background:         t.Background,
		Link:               t.Link,
		CodeBackground:     t.CodeBackground,
		LineHeightMultiple: t.LineHeight,
	}
}

// FontRegistry returns the built-in families plus the configured ones.
func (t ThemeConfig) FontRegistry() (*style.FontRegistry, error) {
	reg := style.NewFontRegistry()
	for _, f := range t.Fonts {
		if f.Name == "" {
			return nil, fmt.Errorf("fonts: family name is required")
		}
		class, err := style.ParseFamilyClass(f.Class)
		if err != nil {
			return nil, fmt.Errorf("fonts: %s: %w", f.Name, err)
		}
		reg.Register(f.Name, class)
	}
	return reg, nil
}

// Build resolves the theme and checks its font families.
func (t ThemeConfig) Build() (style.Theme, error) {
	theme, err := style.BuildTheme(t.Spec())
	if err != nil {
		return style.Theme{}, err
	}
	reg, err := t.FontRegistry()
	if err != nil {
		return style.Theme{}, err
	}
	if err := theme.Validate(reg); err != nil {
		return style.Theme{}, err
	}
	return theme, nil
}

// ThemeConfigFrom captures a built theme so it can be written back to disk.
func ThemeConfigFrom(t style.Theme) ThemeConfig {
	accents := make([]string, 0, len(t.Accents()))
	for _, c := range t.Accents() {
		accents = append(accents, string(c))
	}
	return ThemeConfig{
		Preset:         t.Name,
		BaseFontSize:   t.BaseFontSize,
		BodyFamily:     t.BodyFamily,
		MonoFamily:     t.MonoFamily,
		SerifFamily:    t.SerifFamily,
		Accents:        accents,
		Text:           string(t.Text),
		Background:     string(t.Background),
		Link:           string(t.Link),
		CodeBackground: string(t.CodeBackground),
		LineHeight:     t.LineHeightMultiple,
	}
}

// HighlightConfig controls syntax highlighting of code blocks.
type HighlightConfig struct {
	// Style is a chroma style name. Default: "solarized-dark".
	Style string `mapstructure:"style"`

	// CacheTTL is how long a highlighted block stays cached after its last
	// use. Default: 30m
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// CacheCleanup is the expired-entry sweep interval. Default: 5m
	CacheCleanup time.Duration `mapstructure:"cache_cleanup"`

	// Workers bounds concurrent highlight requests. Default: 4
	Workers int `mapstructure:"workers"`

	// Disabled leaves code blocks with background and font only.
	Disabled bool `mapstructure:"disabled"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	// Width wraps prose at this many columns. 0 disables wrapping.
	Width int `mapstructure:"width"`

	// ColorProfile is one of "auto", "truecolor", "ansi256", "ansi", "ascii".
	ColorProfile string `mapstructure:"color_profile"`
}

// WatchConfig controls live reload in the viewer.
type WatchConfig struct {
	// Debounce coalesces bursts of file events. Default: 100ms
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/markstyle/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/markstyle/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "markstyle", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Theme: ThemeConfig{
			Preset: style.SolarizedPreset.Name,
		},
		Highlight: HighlightConfig{
			Style:        highlight.DefaultStyle,
			CacheTTL:     30 * time.Minute,
			CacheCleanup: 5 * time.Minute,
			Workers:      highlight.DefaultWorkers,
		},
		Render: RenderConfig{
			Width:        80,
			ColorProfile: "auto",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from the home dir at runtime
			OTLPEndpoint: tracing.DefaultOTLPEndpoint,
			SampleRate:   1.0,
		},
		Flags: map[string]bool{
			"async-highlight":  true,
			"link-annotations": true,
		},
		LogLevel: "debug",
	}
}

// Validate checks every section. Empty values are valid and fall back to
// defaults.
func (c Config) Validate() error {
	if _, err := c.Theme.Build(); err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	if err := ValidateHighlight(c.Highlight); err != nil {
		return err
	}
	if err := ValidateRender(c.Render); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be \"debug\", \"info\", \"warn\" or \"error\", got %q", c.LogLevel)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateHighlight checks highlight configuration for errors.
func ValidateHighlight(h HighlightConfig) error {
	if !highlight.HasStyle(h.Style) {
		return fmt.Errorf("highlight.style %q is not a known chroma style", h.Style)
	}
	if h.Workers < 0 {
		return fmt.Errorf("highlight.workers must not be negative, got %d", h.Workers)
	}
	if h.CacheTTL < 0 || h.CacheCleanup < 0 {
		return fmt.Errorf("highlight.cache_ttl and highlight.cache_cleanup must not be negative")
	}
	return nil
}

// ValidateRender checks render configuration for errors.
func ValidateRender(r RenderConfig) error {
	if r.Width < 0 {
		return fmt.Errorf("render.width must not be negative, got %d", r.Width)
	}
	if _, err := render.ParseProfile(r.ColorProfile); err != nil {
		return fmt.Errorf("render.color_profile: %w", err)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc TracingConfig) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	exporter, err := tracing.ParseExporter(tc.Exporter)
	if err != nil {
		return fmt.Errorf("tracing.exporter: %w", err)
	}

	// Only validate path requirements when tracing is enabled
	if tc.Enabled {
		if exporter == tracing.ExporterFile && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# markstyle configuration

# Theme: a preset plus optional overrides
theme:
  preset: solarized        # solarized (default) or mono
  # base_font_size: 18     # Body size; headings scale from it
  # body_family: Helvetica
  # mono_family: Monaco
  # serif_family: Georgia  # Used for block quotes
  # text: "#839496"
  # link: "#268BD2"
  # code_background: "#073642"
  # accents:               # Headings use the second accent
  #   - "#B58900"
  #   - "#CB4B16"
  # fonts:                 # Extra families the *_family keys may name
  #   - name: Fira Code
  #     class: monospace     # sans, serif or monospace

# Syntax highlighting of fenced code blocks
highlight:
  style: solarized-dark    # Any chroma style name
  cache_ttl: 30m           # How long highlighted blocks stay cached
  cache_cleanup: 5m
  workers: 4               # Concurrent highlight requests
  # disabled: true

# Terminal output
render:
  width: 80                # Wrap prose at this column (0 = no wrapping)
  color_profile: auto      # auto, truecolor, ansi256, ansi, ascii

# Live reload in 'markstyle view'
watch:
  debounce: 100ms

# Distributed tracing configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/markstyle/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Minimum level written to the debug log (--debug)
log_level: debug           # debug, info, warn, error

# Feature flags
flags:
  async-highlight: true    # Viewer paints first and highlights in the background
  link-annotations: true   # Attach link targets to link text
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
