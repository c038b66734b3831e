package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

var (
	addStart    string
	addDuration int
	addAfter    string
	addTrade    string
	addStage    string
	addPassFail bool
)

var addCmd = &cobra.Command{
	Use:   "add <construction> <task description>",
	Short: "Add a task to a construction",
	Long: `Add a task using natural syntax or flags. Flags win over the description.

Syntax in the description:
  @trade          trade doing the work
  dur:5           duration in working days (default 1)
  after:12FS+2,14 predecessors by task number, type and lag
  start:+3        start as a day offset from the job start, or a date

Examples:
  smgantt add 3 "Pour slab @concrete dur:2"
  smgantt add 3 "Frame walls @carpentry dur:5 after:1FS+1"
  smgantt add 3 "Roof" --dur 3 --after 2 --start 15/03/2025`,
	Args: cobra.MinimumNArgs(2),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		constructionID, err := parseID("construction", args[0])
		if err != nil {
			return err
		}
		c, err := a.engine.Construction(ctx, constructionID)
		if err != nil {
			return err
		}

		parsed := parser.ParseTask(strings.Join(args[1:], " "))
		if len(parsed.Errors) > 0 {
			for _, e := range parsed.Errors {
				fmt.Printf("Error: %s\n", e)
			}
			return nil
		}

		in := schedule.NewTask{
			ConstructionID:  constructionID,
			Name:            parsed.Name,
			Trade:           parsed.Trade,
			Stage:           addStage,
			DurationDays:    parsed.Duration,
			Predecessors:    schedule.LinksByNumber(parsed.Predecessors),
			PassFailEnabled: addPassFail,
			Actor:           a.actor(),
		}
		start := parsed.Start

		if cmd.Flags().Changed("dur") {
			in.DurationDays = addDuration
		}
		if addTrade != "" {
			in.Trade = addTrade
		}
		if addAfter != "" {
			preds, err := parser.ParsePredecessors(addAfter)
			if err != nil {
				return fmt.Errorf("--after: %w", err)
			}
			in.Predecessors = schedule.LinksByNumber(preds)
		}
		if addStart != "" {
			if start, err = parser.ParseStart(addStart); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
		}
		in.StartDate = resolveStart(c, start)

		t, err := a.engine.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Added #%d %s: %s → %s (%d working days)\n",
			t.TaskNumber, t.Name, t.StartDate.Format(dateLayout), t.EndDate.Format(dateLayout), t.DurationDays)
		return nil
	}),
}

// resolveStart turns a parsed start into a date. Offsets count calendar days from the job start.
func resolveStart(c *models.Construction, spec *parser.StartSpec) *time.Time {
	if spec == nil {
		return nil
	}
	if spec.Offset != nil {
		d := c.StartDate.AddDate(0, 0, *spec.Offset)
		return &d
	}
	return spec.Date
}

func init() {
	addCmd.Flags().StringVarP(&addStart, "start", "s", "", "start date or day offset from the job start")
	addCmd.Flags().IntVarP(&addDuration, "dur", "d", 1, "duration in working days")
	addCmd.Flags().StringVar(&addAfter, "after", "", "predecessors, e.g. \"1FS+2, 3SS\"")
	addCmd.Flags().StringVarP(&addTrade, "trade", "t", "", "trade doing the work")
	addCmd.Flags().StringVar(&addStage, "stage", "", "build stage")
	addCmd.Flags().BoolVar(&addPassFail, "pass-fail", false, "task is an inspection with a pass/fail result")
}
