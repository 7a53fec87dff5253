package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/markstyle/internal/app"
	"github.com/zjrosen/markstyle/internal/log"
)

var viewNoWatch bool

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Open a document in a scrolling viewer",
	Long: `Open FILE in a full-screen viewer. Code blocks are highlighted in the
background and the document reloads when the file changes on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().BoolVar(&viewNoWatch, "no-watch", false, "do not reload when the file changes")
	rootCmd.AddCommand(viewCmd)
}

func runView(_ *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	model, err := app.New(app.Config{
		Path:     args[0],
		Pipeline: p,
		Watch:    !viewNoWatch,
		Debounce: cfg.Watch.Debounce,
		Debug:    debugFlag,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.ErrorErr(log.CatWatcher, "stopping watcher", err)
		}
	}()

	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
