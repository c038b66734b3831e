package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/lock"
	"github.com/balkashynov/smgantt/internal/models"
)

const everyDay = "mon,tue,wed,thu,fri,sat,sun"

var jobStart = calendar.Date(2025, time.March, 3) // a Monday

// day returns the job start plus n calendar days
func day(n int) time.Time {
	return jobStart.AddDate(0, 0, n)
}

func ymd(t time.Time) string {
	return t.Format("2006-01-02")
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	engine *Engine
	job    *models.Construction
	now    time.Time
	writes int64
}

// newFixture opens a private database with one job on the given working week
func newFixture(t *testing.T, workingDays string, opts ...Option) *fixture {
	t.Helper()
	database, err := db.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{t: t, db: database, now: day(7).Add(10 * time.Hour)}
	err = database.Callback().Update().After("gorm:update").Register("test:count_task_writes", func(tx *gorm.DB) {
		if tx.Error == nil && tx.Statement.Table == "sm_tasks" {
			atomic.AddInt64(&f.writes, 1)
		}
	})
	require.NoError(t, err)

	base := []Option{
		WithLocker(lock.NewMemoryLocker(time.Second)),
		WithClock(func() time.Time { return f.now }),
	}
	f.engine = NewEngine(database, append(base, opts...)...)

	f.job = &models.Construction{Name: "Lot 7 Hillcrest", StartDate: jobStart, Timezone: "UTC", WorkingDays: workingDays}
	require.NoError(t, db.CreateConstruction(database, f.job))
	return f
}

// task inserts a task directly, bypassing the engine
func (f *fixture) task(number int, start time.Time, duration int, mods ...func(*models.Task)) *models.Task {
	f.t.Helper()
	t := &models.Task{
		ConstructionID: f.job.ID,
		TaskNumber:     number,
		Name:           "Task",
		SequenceOrder:  float64(number),
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, duration),
		DurationDays:   duration,
		Status:         models.StatusNotStarted,
	}
	for _, m := range mods {
		m(t)
	}
	require.NoError(f.t, db.CreateTask(f.db, t))
	return t
}

// link inserts an edge directly, bypassing cycle checks
func (f *fixture) link(pred, succ *models.Task, typ models.DependencyType, lag int) *models.Dependency {
	f.t.Helper()
	d := &models.Dependency{
		ConstructionID:    f.job.ID,
		PredecessorTaskID: pred.ID,
		SuccessorTaskID:   succ.ID,
		DependencyType:    typ,
		LagDays:           lag,
	}
	require.NoError(f.t, db.CreateDependency(f.db, d))
	return d
}

func (f *fixture) reload(id uint) *models.Task {
	f.t.Helper()
	t, err := db.GetTask(f.db, id)
	require.NoError(f.t, err)
	return t
}

func (f *fixture) resetWrites() {
	atomic.StoreInt64(&f.writes, 0)
}

func (f *fixture) taskWrites() int64 {
	return atomic.LoadInt64(&f.writes)
}

func named(name string) func(*models.Task) {
	return func(t *models.Task) { t.Name = name }
}

func manual(t *models.Task) { t.ManuallyPositioned = true }

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

// memTask and memDep build graphs without a database
func memTask(id uint, number int, start time.Time, duration int) models.Task {
	return models.Task{
		ID:             id,
		TaskNumber:     number,
		Name:           "Task",
		SequenceOrder:  float64(number),
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, duration),
		DurationDays:   duration,
		Status:         models.StatusNotStarted,
		ConstructionID: 1,
	}
}

func memDep(id, pred, succ uint, typ models.DependencyType, lag int) models.Dependency {
	return models.Dependency{
		ID:                id,
		ConstructionID:    1,
		PredecessorTaskID: pred,
		SuccessorTaskID:   succ,
		DependencyType:    typ,
		LagDays:           lag,
		Status:            models.DependencyActive,
		CreatedAt:         jobStart.Add(time.Duration(id) * time.Second),
	}
}

func memJob() *models.Construction {
	return &models.Construction{ID: 1, Name: "Lot 7", StartDate: jobStart}
}

func workdays(t *testing.T, days string) calendar.Workdays {
	t.Helper()
	parsed, err := calendar.ParseWorkingDays(days)
	require.NoError(t, err)
	cal, err := calendar.New(parsed)
	require.NoError(t, err)
	return calendar.For(cal, calendar.DefaultRegion)
}
