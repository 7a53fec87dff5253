package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/markstyle/internal/config"
	"github.com/zjrosen/markstyle/internal/highlight"
	"github.com/zjrosen/markstyle/internal/style"
)

var (
	themeSave bool
	themeList bool
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show the effective theme",
	Long: `Print the theme built from the preset and config overrides as YAML.

--save writes the printed theme into the config file, keeping comments and
the other sections intact. --list shows the built-in presets, the font
families the theme may name and the available highlight styles.`,
	Args: cobra.NoArgs,
	RunE: runTheme,
}

func init() {
	themeCmd.Flags().BoolVar(&themeSave, "save", false, "write the theme to the config file")
	themeCmd.Flags().BoolVar(&themeList, "list", false, "list presets, font families and highlight styles")
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if themeList {
		_, _ = fmt.Fprintln(out, "Presets:")
		for _, name := range style.PresetNames() {
			_, _ = fmt.Fprintf(out, "  %-10s %s\n", name, style.Presets[name].Description)
		}
		reg, err := cfg.Theme.FontRegistry()
		if err != nil {
			return fmt.Errorf("building font registry: %w", err)
		}
		_, _ = fmt.Fprintln(out, "\nFont families:")
		_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(reg.Families(), ", "))
		_, _ = fmt.Fprintln(out, "\nHighlight styles:")
		_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(highlight.StyleNames(), ", "))
		return nil
	}

	theme, err := cfg.Theme.Build()
	if err != nil {
		return fmt.Errorf("building theme: %w", err)
	}
	resolved := config.ThemeConfigFrom(theme)
	resolved.Fonts = cfg.Theme.Fonts

	if themeSave {
		path := themeConfigPath()
		if err := config.SaveTheme(path, resolved); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Saved theme to %s\n", path)
		return nil
	}

	data, err := config.MarshalTheme(resolved)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// themeConfigPath is the loaded config file, or the user config when none
// was found.
func themeConfigPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".markstyle", "config.yaml")
	}
	return filepath.Join(home, ".config", "markstyle", "config.yaml")
}
