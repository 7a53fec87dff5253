package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/markstyle/internal/log"
)

// SaveTheme replaces the theme section of the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveTheme(configPath string, theme ThemeConfig) error {
	return saveSection(configPath, "theme", buildThemeNode(theme))
}

// saveSection replaces or appends one top-level key of the YAML document at
// configPath and writes the result atomically.
func saveSection(configPath, key string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: config path chosen by the user
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		// Empty or new file - create document structure
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: key},
						value,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("parsing config: top level is not a mapping")
		}
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == key {
				root.Content[i+1] = value
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key},
				value,
			)
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".markstyle.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	log.Info(log.CatConfig, "Saved config section", "path", configPath, "section", key)
	return nil
}

// buildThemeNode creates a yaml.Node for the theme section. Empty fields are
// left out so the preset supplies them on load.
func buildThemeNode(t ThemeConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}

	str := func(key, value string) {
		if value == "" {
			return
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: value},
		)
	}
	num := func(key string, value float64) {
		if value == 0 {
			return
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(value, 'f', -1, 64)},
		)
	}

	str("preset", t.Preset)
	num("base_font_size", t.BaseFontSize)
	str("body_family", t.BodyFamily)
	str("mono_family", t.MonoFamily)
	str("serif_family", t.SerifFamily)
	str("text", t.Text)
	str("background", t.Background)
	str("link", t.Link)
	str("code_background", t.CodeBackground)
	num("line_height", t.LineHeight)

	if len(t.Accents) > 0 {
		accents := &yaml.Node{Kind: yaml.SequenceNode, Content: make([]*yaml.Node, 0, len(t.Accents))}
		for _, a := range t.Accents {
			accents.Content = append(accents.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: a})
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "accents"},
			accents,
		)
	}
	if len(t.Fonts) > 0 {
		fonts := &yaml.Node{Kind: yaml.SequenceNode}
		for _, f := range t.Fonts {
			entry := &yaml.Node{Kind: yaml.MappingNode}
			entry.Content = append(entry.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "name"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name},
			)
			if f.Class != "" {
				entry.Content = append(entry.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "class"},
					&yaml.Node{Kind: yaml.ScalarNode, Value: f.Class},
				)
			}
			fonts.Content = append(fonts.Content, entry)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "fonts"},
			fonts,
		)
	}
	return node
}

// MarshalTheme encodes theme the way SaveTheme writes it.
func MarshalTheme(theme ThemeConfig) ([]byte, error) {
	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "theme"},
				buildThemeNode(theme),
			},
		}},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding theme: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding theme: %w", err)
	}
	return buf.Bytes(), nil
}
