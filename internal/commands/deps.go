package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/schedule"
)

var (
	depType string
	depLag  int
)

var depsCmd = &cobra.Command{
	Use:     "deps",
	Aliases: []string{"dep"},
	Short:   "Add or remove dependencies between tasks",
}

var depsAddCmd = &cobra.Command{
	Use:   "add <predecessor> <successor>",
	Short: "Link two tasks by id and cascade the successor",
	Long: `Link two tasks of the same construction. The successor and everything after
it is re-dated. A link that would close a loop is rejected.

Examples:
  smgantt deps add 12 13
  smgantt deps add 12 13 --type SS --lag 2`,
	Args: cobra.ExactArgs(2),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		pred, err := parseID("predecessor task", args[0])
		if err != nil {
			return err
		}
		succ, err := parseID("successor task", args[1])
		if err != nil {
			return err
		}
		typ, err := models.ParseDependencyType(depType)
		if err != nil {
			return err
		}

		result, err := a.engine.AddDependency(ctx, schedule.DependencyRequest{
			PredecessorID: pred,
			SuccessorID:   succ,
			Type:          typ,
			LagDays:       depLag,
			Actor:         a.actor(),
		})
		if err != nil {
			return err
		}
		d := result.Dependency
		fmt.Printf("✅ Dependency #%d: %d %s%+d → %d\n", d.ID, d.PredecessorTaskID, d.DependencyType, d.LagDays, d.SuccessorTaskID)
		if result.Cascade != nil {
			printCascade(result.Cascade)
		}
		return nil
	}),
}

var depsRemoveCmd = &cobra.Command{
	Use:     "rm <dependency>",
	Aliases: []string{"remove"},
	Short:   "Remove a dependency. Successor dates stay as they are.",
	Args:    cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID("dependency", args[0])
		if err != nil {
			return err
		}
		d, err := a.engine.RemoveDependency(ctx, id, a.actor())
		if err != nil {
			return err
		}
		fmt.Printf("✅ Removed dependency #%d (%d → %d)\n", d.ID, d.PredecessorTaskID, d.SuccessorTaskID)
		return nil
	}),
}

func init() {
	depsAddCmd.Flags().StringVarP(&depType, "type", "t", "FS", "dependency type: FS, SS, FF or SF")
	depsAddCmd.Flags().IntVarP(&depLag, "lag", "l", 0, "lag in working days, may be negative")

	depsCmd.AddCommand(depsAddCmd)
	depsCmd.AddCommand(depsRemoveCmd)
}
