package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

var (
	moveDuration        int
	moveOverride        bool
	moveAfter           string
	moveManual          bool
	moveConfirm         bool
	moveSupplierConfirm bool
)

var moveCmd = &cobra.Command{
	Use:     "move <task> [start]",
	Aliases: []string{"edit"},
	Short:   "Reschedule a task and cascade its dependents",
	Long: `Change a task's start, duration, predecessors or lock flags. Every dependent
task is re-dated in the same transaction.

Start accepts dd/mm/yyyy, yyyy-mm-dd, or a day offset from the job start.

Examples:
  smgantt move 12 17/03/2025
  smgantt move 12 +5 --duration 3
  smgantt move 12 --after "4FS+1, 7SS"
  smgantt move 12 --confirm`,
	Args: cobra.RangeArgs(1, 2),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task", args[0])
		if err != nil {
			return err
		}

		req := schedule.ChangeRequest{TaskID: taskID, Override: moveOverride, Actor: a.actor()}
		if len(args) == 2 {
			spec, err := parser.ParseStart(args[1])
			if err != nil {
				return err
			}
			if spec != nil {
				req.StartDate, req.StartOffset = spec.Date, spec.Offset
			}
		}
		flags := cmd.Flags()
		if flags.Changed("duration") {
			req.Duration = &moveDuration
		}
		if flags.Changed("manual") {
			req.ManuallyPositioned = &moveManual
		}
		if flags.Changed("confirm") {
			req.Confirm = &moveConfirm
		}
		if flags.Changed("supplier-confirm") {
			req.SupplierConfirm = &moveSupplierConfirm
		}
		if flags.Changed("after") {
			preds, err := parser.ParsePredecessors(moveAfter)
			if err != nil {
				return fmt.Errorf("--after: %w", err)
			}
			links := schedule.LinksByNumber(preds)
			req.Predecessors = &links
		}

		result, err := a.engine.ApplyChange(ctx, req)
		if err != nil {
			return err
		}
		printCascade(result)
		return nil
	}),
}

func printCascade(r *schedule.CascadeResult) {
	t := r.UpdatedTask
	fmt.Printf("✅ #%d %s: %s → %s\n", t.TaskNumber, t.Name, t.StartDate.Format(dateLayout), t.EndDate.Format(dateLayout))
	for _, c := range r.CascadedTasks {
		fmt.Printf("   ↳ #%d %s: %s → %s\n", c.TaskNumber, c.Name, c.StartDate.Format(dateLayout), c.EndDate.Format(dateLayout))
	}
	if len(r.BlockedTaskIDs) > 0 {
		fmt.Printf("   Held or frozen, not moved: %s\n", joinIDs(r.BlockedTaskIDs))
	}
	if len(r.ClampedTaskIDs) > 0 {
		fmt.Printf("   Clamped to the job start: %s\n", joinIDs(r.ClampedTaskIDs))
	}
	fmt.Printf("   Schedule version %d\n", r.ScheduleVersion)
}

func init() {
	moveCmd.Flags().IntVarP(&moveDuration, "duration", "d", 1, "new duration in working days")
	moveCmd.Flags().BoolVar(&moveOverride, "override", false, "allow a start before the job start")
	moveCmd.Flags().StringVar(&moveAfter, "after", "", "replace predecessors, e.g. \"4FS+1, 7SS\"; empty removes all")
	moveCmd.Flags().BoolVar(&moveManual, "manual", false, "mark the task manually positioned")
	moveCmd.Flags().BoolVar(&moveConfirm, "confirm", false, "confirm the task dates")
	moveCmd.Flags().BoolVar(&moveSupplierConfirm, "supplier-confirm", false, "record supplier confirmation")
}
