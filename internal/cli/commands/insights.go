package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// InsightsOptions holds options for the insights command.
type InsightsOptions struct {
	Depts []string
}

// NewInsightsCommand creates the insights command.
func NewInsightsCommand() *cobra.Command {
	opts := &InsightsOptions{}

	cmd := &cobra.Command{
		Use:   "insights <id>",
		Short: "Show the department report for a sections dataset",
		Long: `Run the canned department report over a sections dataset:

  1. Average grade per department
  2. Number of sections per department
  3. Top courses by average grade

Restrict the report to departments with --depts. An insight that fails
is reported empty.`,
		Example: `  # Report over every department
  insightql insights sections

  # Report over two departments as JSON
  insightql insights sections --depts cpsc,math -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsights(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Depts, "depts", "d", nil, "Departments to include (comma separated)")

	return cmd
}

func runInsights(cmd *cobra.Command, id string, opts *InsightsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := cmdCtx.Engine.Insights(cmd.Context(), id, opts.Depts)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(map[string]any{"result": report})
	}

	key := func(field string) string { return core.QualifiedKey(id, field) }
	sections := []struct {
		title   string
		columns []string
		rows    []core.Row
	}{
		{"Average grade by department", []string{key("dept"), "avgGrade"}, report.AverageByDept},
		{"Sections by department", []string{key("dept"), "count"}, report.SectionsByDept},
		{"Top courses", []string{key("dept"), key("id"), "avgGrade"}, report.TopCourses},
	}

	format := resultFormat("", mode)
	for i, s := range sections {
		if i > 0 {
			r.Println("")
		}
		r.Header(2, s.title)
		if mode == output.ModeMarkdown {
			r.Println("")
		}
		if err := renderRows(r.Writer(), s.columns, s.rows, format); err != nil {
			return err
		}
	}
	return nil
}
