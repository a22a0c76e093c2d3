package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"

	"github.com/leapstack-labs/insightql/internal/engine"
	"github.com/leapstack-labs/insightql/pkg/core"
)

const (
	replPrompt     = "insightql> "
	replContPrompt = "      ...> "
)

// replState is the mutable state of a REPL session.
type replState struct {
	format string
	stats  bool
}

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, format string, stats bool) error {
	ctx := cmd.Context()
	eng := cmdCtx.Engine

	completer := newDatasetCompleter(ctx, eng)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(cmdCtx),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "insightql query REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	state := &replState{format: format, stats: stats}

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, eng, state, line); quit {
				break
			}
			continue
		}

		// Accumulate lines until they form a complete JSON document,
		// or the user forces execution with a trailing semicolon.
		forced := strings.HasSuffix(line, ";")
		buf.WriteString(strings.TrimSuffix(line, ";"))
		buf.WriteString("\n")
		if !forced && fastjson.Validate(buf.String()) != nil {
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		data := []byte(buf.String())
		buf.Reset()

		if err := executeAndRender(ctx, cmd, eng, data, state.format, state.stats); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// historyFile keeps history next to a file-backed state database.
func historyFile(cmdCtx *CommandContext) string {
	path := cmdCtx.Cfg.StatePath
	if path == "" || path == ":memory:" || cmdCtx.Cfg.GetStore().Driver != "sqlite" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "query_history")
}

// handleDotCommand runs a REPL command and reports whether to quit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, state *replState, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".datasets":
		infos, err := eng.ListDatasets(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return false
		}
		for _, info := range infos {
			_, _ = fmt.Fprintf(out, "  %-20s %-10s %d rows\n", info.ID, info.Kind, info.RowCount)
		}

	case ".fields":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .fields <dataset>")
			return false
		}
		fields, err := datasetFields(ctx, eng, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return false
		}
		for _, f := range fields {
			_, _ = fmt.Fprintf(out, "  %s\n", f)
		}

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(out, "format: %s\n", state.format)
			return false
		}
		f := strings.ToLower(parts[1])
		if !slices.Contains(QueryFormats, f) {
			_, _ = fmt.Fprintf(errOut, "Unknown format %q (want one of %s)\n", f, strings.Join(QueryFormats, ", "))
			return false
		}
		state.format = f

	case ".stats":
		state.stats = !state.stats
		_, _ = fmt.Fprintf(out, "stats: %t\n", state.stats)

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

// datasetFields returns the qualified keys of a registered dataset.
func datasetFields(ctx context.Context, eng *engine.Engine, id string) ([]string, error) {
	infos, err := eng.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID != id {
			continue
		}
		var keys []string
		for _, f := range info.Kind.Fields() {
			keys = append(keys, core.QualifiedKey(id, f))
		}
		return keys, nil
	}
	return nil, core.NewNotFoundError(id, nil)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .datasets          List registered datasets
  .fields <dataset>  Show the keys of a dataset
  .format [name]     Show or set the result format (table, json, csv, md, yaml)
  .stats             Toggle execution counts
  .clear             Clear the screen
  .quit / .exit      Exit the REPL

Tips:
  - A query runs as soon as the input is a complete JSON object
  - End a line with a semicolon (;) to run the buffer as is
  - Use arrow keys to navigate history
  - Tab completion works for dataset keys
`
	_, _ = fmt.Fprintln(w, help)
}

// newDatasetCompleter creates a readline completer for dataset keys.
func newDatasetCompleter(ctx context.Context, eng *engine.Engine) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	// Autocomplete is best effort
	if infos, err := eng.ListDatasets(ctx); err == nil {
		for _, info := range infos {
			for _, f := range info.Kind.Fields() {
				items = append(items, readline.PcItem(core.QualifiedKey(info.ID, f)))
			}
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".datasets"),
		readline.PcItem(".fields"),
		readline.PcItem(".format",
			readline.PcItem("table"), readline.PcItem("json"), readline.PcItem("csv"),
			readline.PcItem("md"), readline.PcItem("yaml")),
		readline.PcItem(".stats"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
