package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/markstyle/internal/log"
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Print a styled document",
	Long: `Parse FILE, highlight its code blocks and print the result with ANSI styles.
Use "-" to read from stdin.`,
	Example: `  markstyle render README.md
  cat notes.md | markstyle render - --color ascii`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]
	text, err := readDocument(cmd, path)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	doc, err := p.Load(ctx, path, text)
	if err != nil {
		return err
	}
	applied, err := p.Highlight(ctx, doc)
	if err != nil {
		return fmt.Errorf("highlighting %s: %w", path, err)
	}
	log.Debug(log.CatHighlight, "highlighted blocks", "applied", applied, "failed", len(doc.Result.Pending))

	_, err = fmt.Fprint(cmd.OutOrStdout(), p.Render(ctx, doc, 0))
	return err
}
