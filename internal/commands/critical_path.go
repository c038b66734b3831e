package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var criticalPathCmd = &cobra.Command{
	Use:     "critical-path <construction>",
	Aliases: []string{"cp"},
	Short:   "Show early and late dates, float and the critical path",
	Args:    cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID("construction", args[0])
		if err != nil {
			return err
		}
		result, err := a.engine.CriticalPath(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("🏗  Construction #%d: %d working days, finishes %s\n\n", id, result.ProjectDuration, result.ProjectFinish.Format(dateLayout))
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-4s %-28s %-4s %-16s %-16s %-5s", "#", "NAME", "DUR", "EARLY START", "LATE START", "FLOAT")))
		for _, f := range result.Tasks {
			marker := ""
			if f.Critical {
				marker = " ★"
			}
			fmt.Printf("%-4d %-28s %-4d %-16s %-16s %-5d%s\n",
				f.TaskNumber, truncate(f.Name, 28), f.Duration,
				f.EarlyStartDate.Format(dateLayout), f.LateStartDate.Format(dateLayout),
				f.TotalFloat, marker)
		}
		return nil
	}),
}
