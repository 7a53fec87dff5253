package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var blocksHighlight bool

var blocksCmd = &cobra.Command{
	Use:   "blocks FILE",
	Short: "List the code blocks that need highlighting",
	Long: `Style FILE and print its pending code blocks as YAML. Ranges are rune
offsets into the document, end exclusive.

With --highlight each block is also run through the highlighter. The
output becomes a mapping with the blocks, each with its lexer and span
count, and the highlight cache counters.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlocks,
}

func init() {
	blocksCmd.Flags().BoolVar(&blocksHighlight, "highlight", false, "resolve each block and report the lexer")
	rootCmd.AddCommand(blocksCmd)
}

type blockReport struct {
	Start     int    `yaml:"start"`
	End       int    `yaml:"end"`
	Language  string `yaml:"language,omitempty"`
	Lines     int    `yaml:"lines"`
	FirstLine string `yaml:"first_line"`
	Lexer     string `yaml:"lexer,omitempty"`
	Spans     int    `yaml:"spans,omitempty"`
	Cached    bool   `yaml:"cached,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

type cacheReport struct {
	Hits    uint64  `yaml:"hits"`
	Misses  uint64  `yaml:"misses"`
	Items   int     `yaml:"items"`
	HitRate float64 `yaml:"hit_rate"`
}

type highlightReport struct {
	Blocks []blockReport `yaml:"blocks"`
	Cache  *cacheReport  `yaml:"cache,omitempty"`
}

func runBlocks(cmd *cobra.Command, args []string) error {
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

	reports := make([]blockReport, 0, len(doc.Result.Pending))
	for _, b := range doc.Result.Pending {
		first, _, _ := strings.Cut(b.Text, "\n")
		reports = append(reports, blockReport{
			Start:     b.Range.Start,
			End:       b.Range.End,
			Language:  b.Language(),
			Lines:     strings.Count(strings.TrimSuffix(b.Text, "\n"), "\n") + 1,
			FirstLine: first,
		})
	}

	if blocksHighlight && p.Resolver() != nil && len(doc.Result.Pending) > 0 {
		resolutions, err := p.Resolver().Resolve(ctx, doc.Result.Pending)
		if err != nil {
			return fmt.Errorf("highlighting %s: %w", path, err)
		}
		for i, res := range resolutions {
			reports[i].Lexer = res.Lexer
			reports[i].Spans = len(res.Result)
			reports[i].Cached = res.Cached
			if res.Err != nil {
				reports[i].Error = res.Err.Error()
			}
		}
	}

	var out any = reports
	if blocksHighlight {
		report := highlightReport{Blocks: reports}
		if stats, ok := p.CacheStats(); ok {
			report.Cache = &cacheReport{
				Hits:    stats.Hits,
				Misses:  stats.Misses,
				Items:   stats.Items,
				HitRate: stats.HitRate(),
			}
		}
		out = report
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding blocks: %w", err)
	}
	return enc.Close()
}
