package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
)

func holdReason(t *testing.T, f *fixture) *models.HoldReason {
	t.Helper()
	r, err := db.FindOrCreateHoldReason(f.db, "Waiting on engineer")
	require.NoError(t, err)
	return r
}

// holdChain builds A -> H -> B -> C
func holdChain(f *fixture) (a, h, b, c *models.Task) {
	a = f.task(1, day(0), 2)
	h = f.task(2, day(2), 2)
	b = f.task(3, day(4), 1)
	c = f.task(4, day(5), 1)
	f.link(a, h, models.FinishToStart, 0)
	f.link(h, b, models.FinishToStart, 0)
	f.link(b, c, models.FinishToStart, 0)
	return
}

func TestHoldFreezesDownstreamUntilRelease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	a, h, b, c := holdChain(f)
	reason := holdReason(t, f)

	held, err := f.engine.StartHold(ctx, HoldRequest{TaskID: h.ID, ReasonID: reason.ID, UserID: 7})
	require.NoError(t, err)
	assert.True(t, held.Task.IsHeld())
	assert.Equal(t, []uint{b.ID, c.ID}, held.BlockedTaskIDs)
	assert.Equal(t, 1, held.DependenciesAffected)
	assert.Equal(t, 2, held.TasksAffected)

	result, err := f.engine.ApplyChange(ctx, ChangeRequest{TaskID: a.ID, StartDate: timePtr(day(3))})
	require.NoError(t, err)
	assert.Empty(t, result.CascadedTasks)
	assert.Equal(t, []uint{b.ID, c.ID}, result.BlockedTaskIDs)
	assert.Equal(t, ymd(day(2)), ymd(f.reload(h.ID).StartDate))
	assert.Equal(t, ymd(day(4)), ymd(f.reload(b.ID).StartDate))

	_, err = f.engine.ApplyChange(ctx, ChangeRequest{TaskID: b.ID, Duration: intPtr(2)})
	require.NoError(t, err, "frozen tasks may still be edited directly")

	released, err := f.engine.ReleaseHold(ctx, ReleaseRequest{TaskID: h.ID, ReasonText: "Engineer signed off", UserID: 7})
	require.NoError(t, err)
	assert.False(t, released.Task.IsHeld())
	assert.Equal(t, models.UserActor(7), released.Task.HoldReleasedBy)

	// same dates as if H had never been held
	assert.Equal(t, ymd(day(5)), ymd(f.reload(h.ID).StartDate))
	assert.Equal(t, ymd(day(7)), ymd(f.reload(b.ID).StartDate))
	assert.Equal(t, ymd(day(9)), ymd(f.reload(c.ID).StartDate))
	assert.Equal(t, []uint{b.ID, c.ID}, cascadedIDs(released.Cascade))

	logs, err := db.ListHoldLogs(f.db, h.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.HoldStarted, logs[0].Event)
	assert.Equal(t, models.HoldReleased, logs[1].Event)
	require.NotNil(t, logs[1].HoldDurationDays)
	assert.Equal(t, 0, *logs[1].HoldDurationDays)
}

func TestHoldMatchesUnheldControl(t *testing.T) {
	ctx := context.Background()
	control := newFixture(t, everyDay)
	ca, _, cb, cc := holdChain(control)
	_, err := control.engine.ApplyChange(ctx, ChangeRequest{TaskID: ca.ID, StartDate: timePtr(day(4))})
	require.NoError(t, err)

	f := newFixture(t, everyDay)
	a, h, b, c := holdChain(f)
	reason := holdReason(t, f)
	_, err = f.engine.StartHold(ctx, HoldRequest{TaskID: h.ID, ReasonID: reason.ID})
	require.NoError(t, err)
	_, err = f.engine.ApplyChange(ctx, ChangeRequest{TaskID: a.ID, StartDate: timePtr(day(4))})
	require.NoError(t, err)
	_, err = f.engine.ReleaseHold(ctx, ReleaseRequest{TaskID: h.ID})
	require.NoError(t, err)

	assert.Equal(t, ymd(control.reload(cb.ID).StartDate), ymd(f.reload(b.ID).StartDate))
	assert.Equal(t, ymd(control.reload(cc.ID).EndDate), ymd(f.reload(c.ID).EndDate))
}

func TestHoldValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	reason := holdReason(t, f)
	a := f.task(1, day(0), 1)
	done := f.task(2, day(0), 1, func(t *models.Task) { t.Status = models.StatusCompleted })

	_, err := f.engine.StartHold(ctx, HoldRequest{TaskID: a.ID, ReasonID: 999})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.engine.StartHold(ctx, HoldRequest{TaskID: done.ID, ReasonID: reason.ID})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.engine.ReleaseHold(ctx, ReleaseRequest{TaskID: a.ID})
	assert.Equal(t, KindValidation, KindOf(err), "task is not on hold")

	_, err = f.engine.StartHold(ctx, HoldRequest{TaskID: a.ID, ReasonID: reason.ID})
	require.NoError(t, err)
	_, err = f.engine.StartHold(ctx, HoldRequest{TaskID: a.ID, ReasonID: reason.ID})
	assert.Equal(t, KindValidation, KindOf(err), "already on hold")

	_, err = f.engine.StartTask(ctx, a.ID, models.UserActor(1))
	assert.Equal(t, KindTaskHeld, KindOf(err))
}

func TestFlagEditOfFrozenTaskReportsOnlyItsDependents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	_, h, b, c := holdChain(f)
	reason := holdReason(t, f)

	_, err := f.engine.StartHold(ctx, HoldRequest{TaskID: h.ID, ReasonID: reason.ID, UserID: 7})
	require.NoError(t, err)

	result, err := f.engine.ApplyChange(ctx, ChangeRequest{TaskID: b.ID, Confirm: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, result.UpdatedTask.Confirm)
	assert.Equal(t, []uint{c.ID}, result.BlockedTaskIDs)
}
