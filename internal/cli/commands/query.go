package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/insightql/internal/engine"
	"github.com/leapstack-labs/insightql/pkg/query"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
	Stats  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [JSON]",
		Short: "Run a JSON query against a dataset",
		Long: `Run a query written in the JSON query language.

A query has a WHERE filter, OPTIONS with the COLUMNS to return and an
optional ORDER, and optional TRANSFORMATIONS that GROUP rows and APPLY
MAX, MIN, SUM, AVG or COUNT. Every key is qualified by the dataset id,
as in sections_avg.

The query is read from the argument, from --input, or from stdin when
piped. When invoked without input on a terminal, enters interactive
REPL mode.`,
		Example: `  # Run a query directly
  insightql query '{"WHERE":{"GT":{"sections_avg":97}},"OPTIONS":{"COLUMNS":["sections_dept","sections_avg"],"ORDER":"sections_avg"}}'

  # Read the query from a file and print CSV
  insightql query -i top.json --format csv

  # Pipe a query
  cat top.json | insightql query --format json

  # Interactive mode
  insightql query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format: table, json, csv, md, yaml (default from --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the query from file")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "Print execution counts to stderr")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return QueryFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var data []byte

	switch {
	case len(args) > 0:
		data = []byte(strings.Join(args, " "))
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		data = content
	case !isTerminal(cmd.InOrStdin()):
		// Read from stdin (piped input)
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		data = content
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format := resultFormat(opts.Format, cmdCtx.Renderer.EffectiveMode())
	if data == nil {
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx, format, opts.Stats)
	}

	return executeAndRender(cmd.Context(), cmd, cmdCtx.Engine, data, format, opts.Stats)
}

func executeAndRender(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, data []byte, format string, stats bool) error {
	start := time.Now()

	q, err := query.Parse(data)
	if err != nil {
		return err
	}
	res, err := eng.Execute(ctx, q)
	if err != nil {
		return err
	}

	if err := renderRows(cmd.OutOrStdout(), q.Options.Columns, res.Rows, format); err != nil {
		return err
	}
	if stats {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "dataset %s: scanned %d, matched %d, groups %d, returned %d in %s\n",
			q.Dataset, res.Scanned, res.Matched, res.Groups, len(res.Rows), time.Since(start).Round(time.Microsecond))
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
