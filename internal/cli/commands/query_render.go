package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// QueryFormats lists the result formats of the query command.
var QueryFormats = []string{"table", "json", "csv", "md", "yaml"}

// resultFormat picks the explicit format, or derives one from the output mode.
func resultFormat(format string, mode output.Mode) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch mode {
	case output.ModeJSON:
		return "json"
	case output.ModeMarkdown:
		return "md"
	default:
		return "table"
	}
}

func renderRows(w io.Writer, columns []string, rows []core.Row, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rows)
	case "csv":
		return renderCSV(w, columns, rows)
	case "md", "markdown":
		return renderMarkdown(w, columns, rows)
	case "yaml", "yml":
		return renderYAML(w, rows)
	case "table", "":
		return renderTable(w, columns, rows)
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(QueryFormats, ", "))
}

func renderTable(w io.Writer, columns []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(columns))
	for i, col := range columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, f := range row {
			tr[i] = formatValue(f.Value)
		}
		t.AppendRow(tr)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, rows []core.Row) error {
	if rows == nil {
		rows = []core.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, columns []string, rows []core.Row) error {
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = escapeCSV(col)
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, ","))

	for _, row := range rows {
		values := make([]string, len(row))
		for i, f := range row {
			values[i] = escapeCSV(formatCSVValue(f.Value))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, columns []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(columns, " | "))
	seps := make([]string, len(columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		values := make([]string, len(row))
		for i, f := range row {
			values[i] = strings.ReplaceAll(formatValue(f.Value), "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

// renderYAML writes rows as a YAML sequence, keeping column order.
func renderYAML(w io.Writer, rows []core.Row) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range row {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
				yamlValue(f.Value))
		}
		doc.Content = append(doc.Content, m)
	}
	if len(rows) == 0 {
		doc.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func yamlValue(v core.Value) *yaml.Node {
	switch v.Type {
	case core.TypeNumber:
		tag := "!!float"
		if v.Num == math.Trunc(v.Num) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}
	case core.TypeString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func formatValue(v core.Value) string {
	switch v.Type {
	case core.TypeNull:
		return "NULL"
	case core.TypeString:
		return v.Str
	}
	return v.String()
}

func formatCSVValue(v core.Value) string {
	if v.IsNull() {
		return ""
	}
	return formatValue(v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
