package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

var (
	holdReason    string
	holdUntil     string
	releaseReason string
)

var holdCmd = &cobra.Command{
	Use:   "hold <task>",
	Short: "Put a task on hold",
	Long: `Put a task on hold. The task and everything downstream of it are frozen:
no cascade or rollover moves them until the hold is released.

The reason is a hold reason name or id; unknown names are created.

Examples:
  smgantt hold 12 --reason Weather
  smgantt hold 12 --reason "Awaiting engineer" --until 24/03/2025`,
	Args: cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task", args[0])
		if err != nil {
			return err
		}
		if holdReason == "" {
			return fmt.Errorf("a hold reason is required (--reason)")
		}

		req := schedule.HoldRequest{TaskID: taskID, UserID: userID}
		if id, err := strconv.ParseUint(holdReason, 10, 32); err == nil {
			req.ReasonID = uint(id)
		} else {
			reason, err := db.FindOrCreateHoldReason(a.db.WithContext(ctx), holdReason)
			if err != nil {
				return err
			}
			req.ReasonID = reason.ID
		}
		if holdUntil != "" {
			until, err := parser.ParseDate(holdUntil)
			if err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			req.Until = &until
		}

		result, err := a.engine.StartHold(ctx, req)
		if err != nil {
			return err
		}
		t := result.Task
		fmt.Printf("✅ #%d %s on hold: %s\n", t.TaskNumber, t.Name, t.HoldReason)
		if t.HoldUntil != nil {
			fmt.Printf("   Released by the rollover after %s\n", t.HoldUntil.Format(dateLayout))
		}
		fmt.Printf("   %d downstream tasks frozen over %d dependencies\n", result.TasksAffected, result.DependenciesAffected)
		return nil
	}),
}

var releaseCmd = &cobra.Command{
	Use:   "release <task>",
	Short: "Release a task from hold",
	Long: `Release a held task. Its dependents are re-dated from its current dates.

Examples:
  smgantt release 12
  smgantt release 12 --reason "Engineer signed off"`,
	Args: cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task", args[0])
		if err != nil {
			return err
		}
		result, err := a.engine.ReleaseHold(ctx, schedule.ReleaseRequest{TaskID: taskID, ReasonText: releaseReason, UserID: userID})
		if err != nil {
			return err
		}
		t := result.Task
		fmt.Printf("✅ #%d %s released after %d days on hold\n", t.TaskNumber, t.Name, result.HoldDurationDays)
		if result.Cascade != nil && len(result.Cascade.CascadedTasks) > 0 {
			printCascade(result.Cascade)
		}
		return nil
	}),
}

var holdReasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "List hold reasons",
	Args:  cobra.NoArgs,
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		reasons, err := a.engine.HoldReasons(ctx)
		if err != nil {
			return err
		}
		if len(reasons) == 0 {
			fmt.Println("No hold reasons yet.")
			return nil
		}
		for _, r := range reasons {
			fmt.Printf("%-4d %s\n", r.ID, r.Name)
		}
		return nil
	}),
}

func init() {
	holdCmd.Flags().StringVarP(&holdReason, "reason", "r", "", "hold reason name or id")
	holdCmd.Flags().StringVar(&holdUntil, "until", "", "release automatically after this date")
	holdCmd.AddCommand(holdReasonsCmd)

	releaseCmd.Flags().StringVarP(&releaseReason, "reason", "r", "", "why the hold was released")
}
