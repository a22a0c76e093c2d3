package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// AddOptions holds options for the add command.
type AddOptions struct {
	Kind string
}

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	opts := &AddOptions{}

	cmd := &cobra.Command{
		Use:   "add <id> <archive>",
		Short: "Register a dataset from a zip archive",
		Long: `Ingest a zip archive as a new dataset and persist it.

The archive may be raw zip bytes or base64 text of a zip. Sections
archives hold course files under courses/; rooms archives hold an
index.htm building index and one page per building.

Use "-" as the archive path to read from stdin.`,
		Example: `  # Add a sections dataset
  insightql add sections ./pair.zip

  # Add a rooms dataset
  insightql add rooms ./campus.zip --kind rooms

  # Read base64 content from stdin
  base64 pair.zip | insightql add sections -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(core.KindSections), "Dataset kind: sections, rooms")
	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(core.KindSections), string(core.KindRooms)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runAdd(cmd *cobra.Command, id, path string, opts *AddOptions) error {
	kind, err := core.ParseDatasetKind(opts.Kind)
	if err != nil {
		return err
	}

	content, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ids, err := cmdCtx.Engine.AddDataset(cmd.Context(), id, content, kind)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{"result": ids})
	case output.ModeMarkdown:
		r.Println(fmt.Sprintf("Added %s dataset `%s`.", kind, id))
		r.Println("")
		r.Println(output.FormatKeyValue("datasets", strings.Join(ids, ", ")))
	default:
		r.Success(fmt.Sprintf("Added %s dataset %s", kind, id))
		r.Muted("datasets: " + strings.Join(ids, ", "))
	}
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}
