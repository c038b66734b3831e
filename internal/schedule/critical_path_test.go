package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/models"
)

func TestComputeFloat(t *testing.T) {
	// 1(3) -> 2(2) -> 4(1), 1 -> 3(1) -> 4
	g := NewGraph(memJob(),
		[]models.Task{memTask(1, 1, day(0), 3), memTask(2, 2, day(0), 2), memTask(3, 3, day(0), 1), memTask(4, 4, day(0), 1)},
		[]models.Dependency{
			memDep(1, 1, 2, models.FinishToStart, 0),
			memDep(2, 1, 3, models.FinishToStart, 0),
			memDep(3, 2, 4, models.FinishToStart, 0),
			memDep(4, 3, 4, models.FinishToStart, 0),
		})

	floats, finish, order, err := ComputeFloat(g)
	require.NoError(t, err)
	assert.Equal(t, 6, finish)
	assert.Equal(t, []uint{1, 2, 3, 4}, order)

	tests := []struct {
		id                 uint
		es, ef, ls, lf, tf int
	}{
		{1, 0, 3, 0, 3, 0},
		{2, 3, 5, 3, 5, 0},
		{3, 3, 4, 4, 5, 1},
		{4, 5, 6, 5, 6, 0},
	}
	for _, tt := range tests {
		f := floats[tt.id]
		assert.Equal(t, []int{tt.es, tt.ef, tt.ls, tt.lf, tt.tf},
			[]int{f.EarlyStart, f.EarlyFinish, f.LateStart, f.LateFinish, f.TotalFloat}, "task %d", tt.id)
		assert.Equal(t, tt.tf == 0, f.Critical)
	}
}

func TestComputeFloatStartToStart(t *testing.T) {
	g := NewGraph(memJob(),
		[]models.Task{memTask(1, 1, day(0), 4), memTask(2, 2, day(0), 2)},
		[]models.Dependency{memDep(1, 1, 2, models.StartToStart, 1)})

	floats, finish, _, err := ComputeFloat(g)
	require.NoError(t, err)
	assert.Equal(t, 4, finish)
	assert.Equal(t, 1, floats[2].EarlyStart)
	assert.Equal(t, 1, floats[2].TotalFloat)
	assert.True(t, floats[1].Critical)
}

func TestCriticalPathDates(t *testing.T) {
	f := newFixture(t, "mon,tue,wed,thu,fri")
	a := f.task(1, day(0), 3)
	b := f.task(2, day(3), 3)
	c := f.task(3, day(3), 1)
	f.link(a, b, models.FinishToStart, 0)
	f.link(a, c, models.FinishToStart, 0)

	result, err := f.engine.CriticalPath(context.Background(), f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, result.ProjectDuration)
	assert.Equal(t, "2025-03-11", ymd(result.ProjectFinish))
	assert.Equal(t, []uint{a.ID, b.ID}, result.CriticalPath)

	require.Len(t, result.Tasks, 3)
	assert.Equal(t, "2025-03-06", ymd(result.Tasks[1].EarlyStartDate))
	assert.Equal(t, 2, result.Tasks[2].TotalFloat)
	assert.Equal(t, "2025-03-10", ymd(result.Tasks[2].LateStartDate))
}
