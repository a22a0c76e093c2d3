package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/insightql/internal/cli/output"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a registered dataset",
		Long:    `Unregister a dataset and delete its persisted copy.`,
		Example: `  insightql remove sections`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := cmdCtx.Engine.RemoveDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"result": id})
			}
			r.Success(fmt.Sprintf("Removed dataset %s", id))
			return nil
		},
	}
}
