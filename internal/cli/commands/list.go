package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered datasets",
		Long: `List every registered dataset with its kind and row count.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List datasets
  insightql list

  # List datasets as JSON
  insightql list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	infos, err := cmdCtx.Engine.ListDatasets(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{"result": infos})
	case output.ModeMarkdown:
		return listMarkdown(r, infos)
	default:
		return listText(r, infos)
	}
}

// listText outputs datasets as a styled table.
func listText(r *output.Renderer, infos []core.DatasetInfo) error {
	r.Header(1, fmt.Sprintf("Datasets (%d total)", len(infos)))
	if len(infos) == 0 {
		r.Muted("no datasets registered")
		return nil
	}

	titleCaser := cases.Title(language.English)
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Kind", "Rows"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.ID, titleCaser.String(string(info.Kind)), info.RowCount})
	}
	t.Render()
	return nil
}

// listMarkdown outputs datasets in markdown format.
func listMarkdown(r *output.Renderer, infos []core.DatasetInfo) error {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Datasets (%d total)", len(infos))))
	r.Println("")
	if len(infos) == 0 {
		r.Println("_No datasets registered._")
		return nil
	}
	r.Println("| id | kind | rows |")
	r.Println("| --- | --- | --- |")
	for _, info := range infos {
		r.Printf("| %s | %s | %d |\n", info.ID, info.Kind, info.RowCount)
	}
	return nil
}
