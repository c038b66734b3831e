package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/schedule"
)

var (
	completePassed bool
	completeFailed bool
)

var startCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Mark a task as started",
	Long: `Mark a task as started. Started tasks keep their dates through cascades and
the rollover.`,
	Args: cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task", args[0])
		if err != nil {
			return err
		}
		t, err := a.engine.StartTask(ctx, taskID, a.actor())
		if err != nil {
			return err
		}
		fmt.Printf("✅ #%d %s started\n", t.TaskNumber, t.Name)
		return nil
	}),
}

var completeCmd = &cobra.Command{
	Use:     "complete <task>",
	Aliases: []string{"done"},
	Short:   "Mark a task as completed",
	Long: `Mark a task as completed. Inspections need --passed or --failed; a failed
inspection spawns a re-inspection. Photo, scan and office follow-ups are
spawned as configured on the task.

Examples:
  smgantt complete 12
  smgantt complete 14 --failed`,
	Args: cobra.ExactArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task", args[0])
		if err != nil {
			return err
		}
		if completePassed && completeFailed {
			return fmt.Errorf("use either --passed or --failed, not both")
		}

		req := schedule.CompleteRequest{TaskID: taskID, Actor: a.actor()}
		switch {
		case completePassed:
			passed := true
			req.Passed = &passed
		case completeFailed:
			passed := false
			req.Passed = &passed
		}

		result, err := a.engine.CompleteTask(ctx, req)
		if err != nil {
			return err
		}
		t := result.Task
		fmt.Printf("✅ #%d %s completed\n", t.TaskNumber, t.Name)
		for _, s := range result.Spawned {
			fmt.Printf("   + #%d %s on %s\n", s.TaskNumber, s.Name, s.StartDate.Format(dateLayout))
		}
		return nil
	}),
}

func init() {
	completeCmd.Flags().BoolVar(&completePassed, "passed", false, "inspection passed")
	completeCmd.Flags().BoolVar(&completeFailed, "failed", false, "inspection failed")
}
