package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

func TestParseID(t *testing.T) {
	id, err := parseID("task", "12")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	id, err = parseID("task", "#7")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID("task", bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveStart(t *testing.T) {
	c := &models.Construction{StartDate: calendar.Date(2025, time.March, 3)}
	assert.Nil(t, resolveStart(c, nil))

	spec, err := parser.ParseStart("+5")
	require.NoError(t, err)
	got := resolveStart(c, spec)
	require.NotNil(t, got)
	assert.Equal(t, calendar.Date(2025, time.March, 8), *got)

	spec, err = parser.ParseStart("17/03/2025")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2025, time.March, 17), *resolveStart(c, spec))
}

func TestPredecessorNotation(t *testing.T) {
	c := &models.Construction{ID: 1, StartDate: calendar.Date(2025, time.March, 3)}
	tasks := []models.Task{
		{ID: 10, ConstructionID: 1, TaskNumber: 1, Name: "Slab"},
		{ID: 11, ConstructionID: 1, TaskNumber: 2, Name: "Frame"},
		{ID: 12, ConstructionID: 1, TaskNumber: 3, Name: "Roof"},
	}
	deps := []models.Dependency{
		{ID: 1, ConstructionID: 1, PredecessorTaskID: 10, SuccessorTaskID: 12, DependencyType: models.FinishToStart, LagDays: 2, Status: models.DependencyActive},
		{ID: 2, ConstructionID: 1, PredecessorTaskID: 11, SuccessorTaskID: 12, DependencyType: models.StartToStart, Status: models.DependencyActive},
	}
	g := schedule.NewGraph(c, tasks, deps)

	roof, ok := g.Task(12)
	require.True(t, ok)
	assert.Equal(t, "1FS+2, 2SS", predecessorNotation(g, roof))

	slab, _ := g.Task(10)
	assert.Equal(t, "", predecessorNotation(g, slab))
}

func TestLockLabel(t *testing.T) {
	tests := []struct {
		name   string
		task   models.Task
		frozen bool
		want   string
	}{
		{"free", models.Task{Status: models.StatusNotStarted}, false, ""},
		{"frozen", models.Task{Status: models.StatusNotStarted}, true, "frozen"},
		{"held", models.Task{Status: models.StatusNotStarted, IsHoldTask: true, HoldReason: "Weather"}, true, "held (Weather)"},
		{"confirmed", models.Task{Status: models.StatusNotStarted, Confirm: true}, false, models.LockConfirm},
		{"started shows status only", models.Task{Status: models.StatusStarted}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lockLabel(&tt.task, tt.frozen))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Slab", truncate("Slab", 10))
	assert.Equal(t, "Frame ...", truncate("Frame walls", 9))
}

func TestDefaultLogPath(t *testing.T) {
	p, err := defaultLogPath("/srv/smgantt/jobs.db")
	require.NoError(t, err)
	assert.Equal(t, "/srv/smgantt/smgantt.log", p)
}
