package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/config"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
)

func rolloverSettings() config.RolloverSettings {
	return config.RolloverSettings{Enabled: true, Time: "00:00", Timezone: "UTC", Workers: 2}
}

func TestRolloverMovesOverdueTasksToToday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	a := f.task(1, day(2), 2)
	b := f.task(2, day(8), 1)
	confirmed := f.task(3, day(1), 1, func(t *models.Task) { t.Confirm = true })
	future := f.task(4, day(9), 1)
	f.link(a, b, models.FinishToStart, 0)

	p := NewRolloverProcessor(f.engine, rolloverSettings())
	report, err := p.Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.NotEmpty(t, report.BatchID)
	assert.Equal(t, []uint{a.ID, confirmed.ID}, report.Rolled)
	assert.Equal(t, []uint{b.ID}, report.Cascaded)

	assert.Equal(t, ymd(day(7)), ymd(f.reload(a.ID).StartDate))
	assert.Equal(t, ymd(day(9)), ymd(f.reload(b.ID).StartDate))
	assert.Equal(t, ymd(day(9)), ymd(f.reload(future.ID).StartDate))

	moved := f.reload(confirmed.ID)
	assert.Equal(t, ymd(day(7)), ymd(moved.StartDate))
	assert.False(t, moved.Confirm)
	assert.Equal(t, models.ConfirmMovedAfterConfirm, moved.ConfirmStatus)

	logs, err := db.ListRolloverLogs(f.db, f.job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	byTask := map[uint]models.RolloverLog{}
	for _, l := range logs {
		byTask[l.TaskID] = l
		assert.Equal(t, report.BatchID, l.RolloverBatchID)
	}
	assert.Equal(t, ymd(day(2)), ymd(byTask[a.ID].OldStartDate))
	assert.Equal(t, ymd(day(7)), ymd(byTask[a.ID].NewStartDate))
	assert.Equal(t, 1, byTask[b.ID].CascadeDepth)
	assert.True(t, byTask[confirmed.ID].ConfirmCleared)

	job, err := db.GetConstruction(f.db, f.job.ID)
	require.NoError(t, err)
	require.NotNil(t, job.LastRolloverOn)
	assert.Equal(t, ymd(day(7)), ymd(*job.LastRolloverOn))
	assert.Equal(t, report.BatchID, job.LastRolloverBatchID)
}

func TestRolloverIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	a := f.task(1, day(2), 2)
	b := f.task(2, day(4), 1)
	f.link(a, b, models.FinishToStart, 0)
	p := NewRolloverProcessor(f.engine, rolloverSettings())

	_, err := p.Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	first, err := db.ListRolloverLogs(f.db, f.job.ID)
	require.NoError(t, err)

	report, err := p.Run(ctx, f.job.ID, f.now.Add(6*time.Hour))
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	second, err := db.ListRolloverLogs(f.db, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, ymd(day(7)), ymd(f.reload(a.ID).StartDate))
	assert.Equal(t, ymd(day(9)), ymd(f.reload(b.ID).StartDate))
}

func TestRolloverUsesJobTimezoneForToday(t *testing.T) {
	f := newFixture(t, everyDay)
	f.job.Timezone = "Australia/Brisbane"
	require.NoError(t, f.db.Save(f.job).Error)
	a := f.task(1, day(7), 1)

	// 15:00 UTC on 10 March is 01:00 on 11 March in Brisbane
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	report, err := NewRolloverProcessor(f.engine, rolloverSettings()).Run(context.Background(), f.job.ID, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", ymd(report.Day))
	assert.Equal(t, "2025-03-11", ymd(f.reload(a.ID).StartDate))
}

func TestRolloverBreaksDependencyToLockedSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	a := f.task(1, day(3), 2)
	pinned := f.task(2, day(8), 1, manual)
	after := f.task(3, day(9), 1)
	dep := f.link(a, pinned, models.FinishToStart, 0)
	f.link(pinned, after, models.FinishToStart, 0)

	report, err := NewRolloverProcessor(f.engine, rolloverSettings()).Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedDependencies)
	assert.Equal(t, ymd(day(8)), ymd(f.reload(pinned.ID).StartDate))
	assert.Equal(t, ymd(day(9)), ymd(f.reload(after.ID).StartDate))

	removed, err := db.ListRemovedDependencies(f.db, f.job.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, dep.ID, removed[0].ID)
	assert.Equal(t, models.DeletedByRollover, removed[0].DeletedReason)
	assert.True(t, removed[0].DeletedByRollover)
	assert.Equal(t, models.RolloverActor(), removed[0].DeletedBy)

	require.Len(t, report.Logs, 1)
	deleted := report.Logs[0].DeletedDependencies
	require.Len(t, deleted, 1)
	assert.Equal(t, pinned.ID, deleted[0].SuccessorID)
}

func TestRolloverReleasesExpiredHolds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	until := day(5)
	h := f.task(1, day(3), 1, func(t *models.Task) {
		t.IsHoldTask = true
		t.HoldUntil = &until
	})
	next := f.task(2, day(4), 1)
	f.link(h, next, models.FinishToStart, 0)

	report, err := NewRolloverProcessor(f.engine, rolloverSettings()).Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.HoldsCleared)

	released := f.reload(h.ID)
	assert.False(t, released.IsHeld())
	assert.Equal(t, models.RolloverActor(), released.HoldReleasedBy)
	assert.Equal(t, ymd(day(7)), ymd(released.StartDate))
	assert.Equal(t, ymd(day(8)), ymd(f.reload(next.ID).StartDate))

	logs, err := db.ListHoldLogs(f.db, h.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.HoldReleased, logs[0].Event)
	assert.Equal(t, models.ActorRollover, logs[0].Actor.Kind)
}

func TestRolloverRedatesReleasedFutureTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	until := day(5)
	pred := f.task(1, day(8), 2)
	h := f.task(2, day(10), 2, func(t *models.Task) {
		t.IsHoldTask = true
		t.HoldUntil = &until
	})
	succ := f.task(3, day(12), 1)
	f.link(pred, h, models.FinishToStart, 0)
	f.link(h, succ, models.FinishToStart, 0)

	// The held task and its successor stay put while the predecessor moves
	moved, err := f.engine.ApplyChange(ctx, ChangeRequest{TaskID: pred.ID, StartDate: timePtr(day(12))})
	require.NoError(t, err)
	assert.Equal(t, []uint{succ.ID}, moved.BlockedTaskIDs)
	assert.Equal(t, ymd(day(10)), ymd(f.reload(h.ID).StartDate))

	report, err := NewRolloverProcessor(f.engine, rolloverSettings()).Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.HoldsCleared)
	assert.Empty(t, report.Rolled)
	assert.Equal(t, []uint{h.ID, succ.ID}, report.Cascaded)

	released := f.reload(h.ID)
	assert.False(t, released.IsHeld())
	assert.Equal(t, ymd(day(14)), ymd(released.StartDate))
	assert.Equal(t, ymd(day(16)), ymd(f.reload(succ.ID).StartDate))
}

func TestRolloverLeavesHeldAndFrozenTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	h := f.task(1, day(2), 1, func(t *models.Task) { t.IsHoldTask = true })
	frozen := f.task(2, day(3), 1)
	f.link(h, frozen, models.FinishToStart, 0)

	report, err := NewRolloverProcessor(f.engine, rolloverSettings()).Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.Empty(t, report.Rolled)
	assert.Equal(t, ymd(day(2)), ymd(f.reload(h.ID).StartDate))
	assert.Equal(t, ymd(day(3)), ymd(f.reload(frozen.ID).StartDate))
}

func TestRolloverIsolatesTaskFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	broken := f.task(1, day(2), 1)
	downstream := f.task(2, day(3), 1)
	healthy := f.task(3, day(1), 1)
	f.link(broken, downstream, models.FinishToStart, 0)

	p := NewRolloverProcessor(f.engine, rolloverSettings())
	p.beforePersist = func(t *models.Task) error {
		if t.ID == broken.ID {
			return errors.New("disk quota exceeded")
		}
		return nil
	}
	report, err := p.Run(ctx, f.job.ID, f.now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{broken.ID, downstream.ID}, report.Failed)
	assert.Equal(t, []uint{healthy.ID}, report.Rolled)

	assert.Equal(t, ymd(day(2)), ymd(f.reload(broken.ID).StartDate))
	assert.Equal(t, ymd(day(3)), ymd(f.reload(downstream.ID).StartDate))
	assert.Equal(t, ymd(day(7)), ymd(f.reload(healthy.ID).StartDate))

	logs, err := db.ListRolloverLogs(f.db, f.job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	errs := map[uint]string{}
	for _, l := range logs {
		errs[l.TaskID] = l.Error
	}
	assert.Equal(t, "disk quota exceeded", errs[broken.ID])
	assert.Equal(t, "predecessor #1 failed to roll over", errs[downstream.ID])
	assert.Empty(t, errs[healthy.ID])
}

func TestRunAllSkipsDisabledJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, everyDay)
	a := f.task(1, day(2), 1)

	off := &models.Construction{Name: "Lot 9", StartDate: jobStart, Timezone: "UTC", WorkingDays: everyDay, RolloverDisabled: true}
	require.NoError(t, db.CreateConstruction(f.db, off))
	offTask := &models.Task{ConstructionID: off.ID, TaskNumber: 1, Name: "Frame", StartDate: day(2), EndDate: day(3), DurationDays: 1}
	require.NoError(t, db.CreateTask(f.db, offTask))

	reports, err := NewRolloverProcessor(f.engine, rolloverSettings()).RunAll(ctx, f.now)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, f.job.ID, reports[0].ConstructionID)
	assert.Equal(t, ymd(day(7)), ymd(f.reload(a.ID).StartDate))
	assert.Equal(t, ymd(day(2)), ymd(f.reload(offTask.ID).StartDate))
}

func TestNextRun(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		at   string
		want string
	}{
		{"later today", time.Date(2025, 3, 10, 1, 0, 0, 0, sydney), "05:30", "2025-03-10 05:30"},
		{"already passed", time.Date(2025, 3, 10, 6, 0, 0, 0, sydney), "05:30", "2025-03-11 05:30"},
		{"exactly now rolls to tomorrow", time.Date(2025, 3, 10, 0, 0, 0, 0, sydney), "00:00", "2025-03-11 00:00"},
		{"converted from utc", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), "00:00", "2025-03-12 00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRun(tt.now, tt.at, sydney)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02 15:04"))
		})
	}

	_, err = NextRun(time.Now(), "7pm", sydney)
	assert.Error(t, err)
}

func TestSchedulerStopsWithContext(t *testing.T) {
	f := newFixture(t, everyDay)
	s := NewRolloverScheduler(NewRolloverProcessor(f.engine, rolloverSettings()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)

	disabled := rolloverSettings()
	disabled.Enabled = false
	assert.NoError(t, NewRolloverScheduler(NewRolloverProcessor(f.engine, disabled), nil).Run(context.Background()))
}
