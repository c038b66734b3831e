package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:     "view <construction>",
	Aliases: []string{"gantt"},
	Short:   "Open the interactive Gantt viewer",
	Long: `Open a Gantt chart of one construction. Move, add, start, complete and release
tasks from the keyboard; press ? for keys.`,
	Args: cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID("construction", args[0])
		if err != nil {
			return err
		}
		return tui.RunGanttTUI(ctx, a.engine, id, userID)
	}),
}
