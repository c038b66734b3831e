package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
	"github.com/balkashynov/smgantt/internal/tui"
)

var listCmd = &cobra.Command{
	Use:     "ls [construction]",
	Aliases: []string{"list"},
	Short:   "List constructions, or the tasks of one construction",
	Long: `Without arguments, list every construction. With a construction id, list its
tasks in schedule order with dates, predecessors and lock state.

Examples:
  smgantt ls
  smgantt ls 3`,
	Args: cobra.MaximumNArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listConstructions(ctx, a)
		}
		id, err := parseID("construction", args[0])
		if err != nil {
			return err
		}
		return listTasks(ctx, a, id)
	}),
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(tui.ColorAccentBright))

func listConstructions(ctx context.Context, a *app) error {
	jobs, err := a.engine.Constructions(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No constructions yet. Import one with: smgantt seed <file>")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s %-30s %-16s %-10s %s", "ID", "NAME", "START", "ROLLOVER", "VERSION")))
	for _, c := range jobs {
		rollover := "on"
		if c.RolloverDisabled {
			rollover = "off"
		}
		fmt.Printf("%-5d %-30s %-16s %-10s %d\n", c.ID, truncate(c.Name, 30), c.StartDate.Format(dateLayout), rollover, c.ScheduleVersion)
	}
	return nil
}

func listTasks(ctx context.Context, a *app, constructionID uint) error {
	c, err := a.engine.Construction(ctx, constructionID)
	if err != nil {
		return err
	}
	g, err := a.engine.Graph(ctx, constructionID)
	if err != nil {
		return err
	}

	fmt.Printf("🏗  %s (#%d), starts %s, version %d\n\n", c.Name, c.ID, c.StartDate.Format(dateLayout), c.ScheduleVersion)
	tasks := g.Tasks()
	if len(tasks) == 0 {
		fmt.Printf("No tasks yet. Add one with: smgantt add %d \"<name> dur:<days>\"\n", c.ID)
		return nil
	}

	frozen := g.Frozen()
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-4s %-28s %-16s %-16s %-4s %-14s %-12s %s", "#", "NAME", "START", "END", "DUR", "AFTER", "STATUS", "LOCK")))
	for _, t := range tasks {
		fmt.Printf("%-4d %-28s %-16s %-16s %-4d %-14s %-12s %s\n",
			t.TaskNumber,
			truncate(t.Name, 28),
			t.StartDate.Format(dateLayout),
			t.EndDate.Format(dateLayout),
			t.DurationDays,
			truncate(predecessorNotation(g, t), 14),
			string(t.Status),
			lockLabel(t, frozen[t.ID]),
		)
	}
	return nil
}

// predecessorNotation renders the incoming edges of t as "1FS+2, 3SS"
func predecessorNotation(g *schedule.Graph, t *models.Task) string {
	var preds []parser.Predecessor
	for _, d := range g.Incoming(t.ID) {
		pred, ok := g.Task(d.PredecessorTaskID)
		if !ok {
			continue
		}
		preds = append(preds, parser.Predecessor{TaskNumber: pred.TaskNumber, Type: string(d.DependencyType), LagDays: d.LagDays})
	}
	return parser.FormatPredecessors(preds)
}

func lockLabel(t *models.Task, frozen bool) string {
	var labels []string
	if t.IsHeld() {
		label := "held"
		if t.HoldReason != "" {
			label += " (" + t.HoldReason + ")"
		}
		labels = append(labels, label)
	} else if frozen {
		labels = append(labels, "frozen")
	}
	if lt := t.LockType(); lt != "" && t.Status == models.StatusNotStarted {
		labels = append(labels, lt)
	}
	return strings.Join(labels, ", ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
