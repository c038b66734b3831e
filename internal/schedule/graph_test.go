package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/models"
)

// diamond: 1 -> 2, 1 -> 3, 2 -> 4, 3 -> 4
func diamond() *Graph {
	tasks := []models.Task{
		memTask(1, 1, day(0), 2),
		memTask(2, 2, day(2), 1),
		memTask(3, 3, day(2), 1),
		memTask(4, 4, day(3), 1),
	}
	deps := []models.Dependency{
		memDep(10, 1, 3, models.FinishToStart, 0),
		memDep(11, 1, 2, models.FinishToStart, 0),
		memDep(12, 2, 4, models.FinishToStart, 0),
		memDep(13, 3, 4, models.FinishToStart, 0),
	}
	return NewGraph(memJob(), tasks, deps)
}

func taskNumbers(tasks []*models.Task) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.TaskNumber
	}
	return out
}

func TestNeighborsFollowCreationOrder(t *testing.T) {
	g := diamond()

	assert.Equal(t, []int{3, 2}, taskNumbers(g.NeighborsOf(1, Successors)))
	assert.Equal(t, []int{2, 3}, taskNumbers(g.NeighborsOf(4, Predecessors)))
	assert.Empty(t, g.NeighborsOf(4, Successors))
}

func TestNewGraphIgnoresInactiveAndForeignEdges(t *testing.T) {
	removed := memDep(20, 1, 2, models.FinishToStart, 0)
	removed.Status = models.DependencyRemoved
	g := NewGraph(memJob(),
		[]models.Task{memTask(1, 1, day(0), 1), memTask(2, 2, day(1), 1)},
		[]models.Dependency{removed, memDep(21, 1, 99, models.FinishToStart, 0)})

	assert.Empty(t, g.Outgoing(1))
	assert.Empty(t, g.Incoming(2))
}

func TestDescendantsAndFrozen(t *testing.T) {
	g := diamond()
	assert.Equal(t, []uint{3, 2, 4}, g.Descendants(1))
	assert.Equal(t, []uint{4}, g.Descendants(2))

	held, _ := g.Task(2)
	held.IsHoldTask = true
	frozen := g.Frozen()
	assert.True(t, frozen[4])
	assert.False(t, frozen[2], "the held task itself is not frozen")
	assert.False(t, frozen[3])
}

func TestPathBetween(t *testing.T) {
	g := diamond()
	assert.Equal(t, []uint{1, 3, 4}, g.PathBetween(1, 4))
	assert.Nil(t, g.PathBetween(4, 1))
	assert.Nil(t, g.PathBetween(2, 3))
}

func TestResolveOrdersPredecessorsFirst(t *testing.T) {
	g := diamond()

	order, err := Resolve(g, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3, 4}, order, "ties break by sequence order")

	order, err = Resolve(g, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 4}, order)
}

func TestResolveManyRootsHasNoDuplicates(t *testing.T) {
	g := diamond()
	order, err := Resolve(g, 4, 2, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3, 4}, order)
}

func TestResolveReportsCycle(t *testing.T) {
	tasks := []models.Task{
		memTask(1, 1, day(0), 1),
		memTask(2, 2, day(1), 1),
		memTask(3, 3, day(2), 1),
	}
	deps := []models.Dependency{
		memDep(1, 1, 2, models.FinishToStart, 0),
		memDep(2, 2, 3, models.FinishToStart, 0),
		memDep(3, 3, 1, models.FinishToStart, 0),
	}
	g := NewGraph(memJob(), tasks, deps)

	_, err := Resolve(g, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicDependency))
	assert.Equal(t, KindCyclicDependency, KindOf(err))

	var cycle *CyclicDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []int{1, 2, 3, 1}, cycle.Cycle)
	assert.Equal(t, "cyclic dependency: #1 → #2 → #3 → #1", cycle.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{invalid("duration", "must be positive"), KindValidation},
		{&ValidationError{Field: "successor_task_id", cause: ErrSelfDependency}, KindValidation},
		{&CyclicDependencyError{Cycle: []int{1, 1}}, KindCyclicDependency},
		{&ConcurrentModificationError{ConstructionID: 1}, KindConcurrentModification},
		{&TaskHeldError{TaskNumber: 4}, KindTaskHeld},
		{&NotFoundError{What: "task", ID: 9}, KindNotFound},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
