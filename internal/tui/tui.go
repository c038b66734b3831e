package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/smgantt/internal/schedule"
)

// RunGanttTUI starts the interactive schedule viewer for one construction
func RunGanttTUI(ctx context.Context, engine *schedule.Engine, constructionID, userID uint) error {
	model := NewGanttModel(ctx, engine, constructionID, userID)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(GanttModel); ok {
		if m.err != nil {
			fmt.Printf("❌ Error: %v\n", m.err)
		} else if m.status != "" {
			fmt.Printf("✅ %s\n", m.status)
		}
	}
	return nil
}
