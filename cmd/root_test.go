package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `render:
  color_profile: ascii
  width: 0
highlight:
  workers: 2
`

// run executes the root command against a config in a temp dir and returns
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o600))
	return runWithConfig(t, cfgPath, args...)
}

func runWithConfig(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MARKSTYLE_DEBUG", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func TestRender_PlainProfileKeepsText(t *testing.T) {
	text := "# Title\n\nHello *world* and `code`.\n"
	out, err := run(t, "render", writeDoc(t, text))
	require.NoError(t, err)
	require.Equal(t, text, out)
}

func TestRender_RootWithFile(t *testing.T) {
	text := "plain paragraph\n"
	out, err := run(t, writeDoc(t, text))
	require.NoError(t, err)
	require.Equal(t, text, out)
}

func TestRender_Stdin(t *testing.T) {
	rootCmd.SetIn(bytes.NewBufferString("from stdin\n"))
	out, err := run(t, "render", "-")
	require.NoError(t, err)
	require.Equal(t, "from stdin\n", out)
}

func TestRender_MissingFile(t *testing.T) {
	_, err := run(t, "render", filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading")
}

func TestRender_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("highlight:\n  workers: -1\n"), 0o600))

	_, err := runWithConfig(t, cfgPath, "render", writeDoc(t, "x\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}

func TestBlocks_ListsPending(t *testing.T) {
	doc := writeDoc(t, "intro\n\n```go\nfunc main() {}\n```\n\n```python\nprint(1)\nprint(2)\n```\n")
	out, err := run(t, "blocks", doc)
	require.NoError(t, err)
	require.Contains(t, out, "language: go")
	require.Contains(t, out, "language: python")
	require.Contains(t, out, "first_line: print(1)")
	require.Contains(t, out, "lines: 2")
}

func TestBlocks_HighlightReportsCache(t *testing.T) {
	t.Cleanup(func() { blocksHighlight = false })
	doc := writeDoc(t, "```go\nfunc main() {}\n```\n\n> ```go\n> func main() {}\n> ```\n")
	out, err := run(t, "blocks", "--highlight", doc)
	require.NoError(t, err)

	var report struct {
		Blocks []struct {
			Start int    `yaml:"start"`
			Lexer string `yaml:"lexer"`
			Spans int    `yaml:"spans"`
		} `yaml:"blocks"`
		Cache struct {
			Hits    uint64  `yaml:"hits"`
			Misses  uint64  `yaml:"misses"`
			Items   int     `yaml:"items"`
			HitRate float64 `yaml:"hit_rate"`
		} `yaml:"cache"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Len(t, report.Blocks, 2)
	for _, b := range report.Blocks {
		require.Equal(t, "Go", b.Lexer)
		require.Positive(t, b.Spans)
	}
	require.Equal(t, 1, report.Cache.Items, "both blocks share one literal")
	require.Positive(t, report.Cache.Misses)
}

func TestBlocks_NoCodeBlocks(t *testing.T) {
	out, err := run(t, "blocks", writeDoc(t, "just text\n"))
	require.NoError(t, err)
	require.Equal(t, "[]\n", out)
}

func TestTheme_PrintsResolvedTheme(t *testing.T) {
	out, err := run(t, "theme")
	require.NoError(t, err)
	require.Contains(t, out, "theme:\n")
	require.Contains(t, out, "preset: solarized")
	require.Contains(t, out, "code_background:")
}

func TestTheme_Save(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("# mine\n"+testConfig), 0o600))
	t.Cleanup(func() { themeSave = false })

	out, err := runWithConfig(t, cfgPath, "theme", "--save")
	require.NoError(t, err)
	require.Contains(t, out, "Saved theme to "+cfgPath)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "# mine")
	require.Contains(t, string(data), "color_profile: ascii")
	require.Contains(t, string(data), "preset: solarized")
}

func TestTheme_List(t *testing.T) {
	t.Cleanup(func() { themeList = false })
	out, err := run(t, "theme", "--list")
	require.NoError(t, err)
	require.Contains(t, out, "solarized")
	require.Contains(t, out, "mono")
	require.Contains(t, out, "solarized-dark")
	require.Contains(t, out, "Georgia, Helvetica, Monaco")
}

func TestTheme_ListConfiguredFonts(t *testing.T) {
	t.Cleanup(func() { themeList = false })
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig+`theme:
  mono_family: Fira Code
  fonts:
    - name: Fira Code
      class: monospace
`), 0o600))

	out, err := runWithConfig(t, cfgPath, "theme", "--list")
	require.NoError(t, err)
	require.Contains(t, out, "Fira Code, Georgia, Helvetica, Monaco")
}

func TestRender_InvalidLogLevel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig+"log_level: chatty\n"), 0o600))

	_, err := runWithConfig(t, cfgPath, "render", writeDoc(t, "x\n"))
	require.ErrorContains(t, err, "log_level")
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.yaml")
	out, err := run(t, "config", "init", target)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+target)
	require.FileExists(t, target)

	_, err = run(t, "config", "init", target)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3")
	require.Equal(t, "1.2.3", rootCmd.Version)
}
