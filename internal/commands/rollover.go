package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/schedule"
)

var rolloverConstruction uint

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Advance overdue unstarted tasks to today",
	Long: `Run the rollover now instead of waiting for the scheduled time. Every overdue
task that has not started moves to today and its dependents cascade.
A job that already rolled over today is skipped.

Examples:
  smgantt rollover
  smgantt rollover --construction 3`,
	Args: cobra.NoArgs,
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		p := schedule.NewRolloverProcessor(a.engine, a.cfg.Rollover)
		now := time.Now()

		var reports []*schedule.RolloverReport
		if rolloverConstruction != 0 {
			r, err := p.Run(ctx, rolloverConstruction, now)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		} else {
			var err error
			if reports, err = p.RunAll(ctx, now); err != nil {
				return err
			}
		}

		if len(reports) == 0 {
			fmt.Println("No constructions take part in the rollover.")
			return nil
		}
		for _, r := range reports {
			printRolloverReport(r)
		}
		return nil
	}),
}

func printRolloverReport(r *schedule.RolloverReport) {
	switch {
	case r.Error != "":
		fmt.Printf("❌ Construction #%d: %s\n", r.ConstructionID, r.Error)
	case r.Skipped:
		fmt.Printf("⏭  Construction #%d already rolled over on %s\n", r.ConstructionID, r.Day.Format(dateLayout))
	default:
		fmt.Printf("✅ Construction #%d rolled over to %s: %d rolled, %d cascaded", r.ConstructionID, r.Day.Format(dateLayout), len(r.Rolled), len(r.Cascaded))
		if r.HoldsCleared > 0 {
			fmt.Printf(", %d holds cleared", r.HoldsCleared)
		}
		if r.DeletedDependencies > 0 {
			fmt.Printf(", %d dependencies removed", r.DeletedDependencies)
		}
		fmt.Println()
		if len(r.Failed) > 0 {
			fmt.Printf("   Failed tasks: %s\n", joinIDs(r.Failed))
		}
	}
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rolloverCmd.Flags().UintVarP(&rolloverConstruction, "construction", "c", 0, "only roll over this construction")
}
