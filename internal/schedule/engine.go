package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/lock"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
)

// Engine runs every schedule mutation of the system. Each operation takes
// the job lock, runs in one transaction against a freshly loaded graph and
// notifies only after commit.
type Engine struct {
	db       *gorm.DB
	locker   lock.Locker
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time

	checker         calendar.Checker
	workingDays     []time.Weekday
	defaultTimezone string
	defaultRegion   string
}

// Option configures an Engine
type Option func(*Engine)

// WithLocker sets the per-job lock
func WithLocker(l lock.Locker) Option { return func(e *Engine) { e.locker = l } }

// WithNotifier sets the post-commit notification sink
func WithNotifier(n notify.Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithCalendar uses c instead of the job's working days and stored holidays
func WithCalendar(c calendar.Checker) Option { return func(e *Engine) { e.checker = c } }

// WithWorkingDays sets the weekdays used by jobs that do not set their own
func WithWorkingDays(days []time.Weekday) Option { return func(e *Engine) { e.workingDays = days } }

// WithTimezone sets the timezone used by jobs that do not set their own
func WithTimezone(tz string) Option { return func(e *Engine) { e.defaultTimezone = tz } }

// WithRegion sets the holiday region used by jobs that do not set their own.
// Empty derives the region from the timezone.
func WithRegion(region string) Option { return func(e *Engine) { e.defaultRegion = region } }

// NewEngine returns an engine over database
func NewEngine(database *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:              database,
		locker:          lock.NewMemoryLocker(2 * time.Second),
		notifier:        notify.Nop{},
		log:             zap.NewNop(),
		now:             time.Now,
		workingDays:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		defaultTimezone: "Australia/Sydney",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the underlying database handle
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// job is the state one locked transaction works on
type job struct {
	tx       *gorm.DB
	graph    *Graph
	prop     Propagator
	version  int64
	location *time.Location
}

func (j *job) construction() *models.Construction {
	return j.graph.Construction
}

// withJob runs fn in one transaction while holding the job lock
func (e *Engine) withJob(ctx context.Context, constructionID uint, fn func(j *job) error) error {
	release, err := e.locker.Acquire(ctx, constructionID)
	if errors.Is(err, lock.ErrLocked) {
		e.log.Warn("job lock busy", zap.Uint("construction_id", constructionID))
		return &ConcurrentModificationError{ConstructionID: constructionID}
	}
	if err != nil {
		return err
	}
	defer release()

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := db.BumpScheduleVersion(tx, constructionID)
		if err != nil {
			return storeError(err, "construction", constructionID)
		}
		g, err := loadGraph(tx, constructionID)
		if err != nil {
			return err
		}
		wd, err := e.workdays(tx, g.Construction)
		if err != nil {
			return err
		}
		loc, err := e.location(g.Construction)
		if err != nil {
			return err
		}
		return fn(&job{
			tx:       tx,
			graph:    g,
			prop:     Propagator{Workdays: wd, Floor: g.Construction.StartDate},
			version:  version,
			location: loc,
		})
	})
}

// constructionOf returns the job a task belongs to
func (e *Engine) constructionOf(ctx context.Context, taskID uint) (uint, error) {
	t, err := db.GetTask(e.db.WithContext(ctx), taskID)
	if err != nil {
		return 0, storeError(err, "task", taskID)
	}
	return t.ConstructionID, nil
}

func (e *Engine) timezone(c *models.Construction) string {
	if c.Timezone != "" {
		return c.Timezone
	}
	return e.defaultTimezone
}

func (e *Engine) location(c *models.Construction) (*time.Location, error) {
	loc, err := time.LoadLocation(e.timezone(c))
	if err != nil {
		return nil, fmt.Errorf("construction #%d: %w", c.ID, err)
	}
	return loc, nil
}

// Region returns the holiday region of a job
func (e *Engine) Region(c *models.Construction) string {
	if c.Region != "" {
		return c.Region
	}
	if e.defaultRegion != "" {
		return e.defaultRegion
	}
	return calendar.RegionForTimezone(e.timezone(c))
}

// Workdays builds the working-day calendar of a job from its settings and stored holidays
func (e *Engine) Workdays(ctx context.Context, c *models.Construction) (calendar.Workdays, error) {
	return e.workdays(e.db.WithContext(ctx), c)
}

func (e *Engine) workdays(tx *gorm.DB, c *models.Construction) (calendar.Workdays, error) {
	region := e.Region(c)
	if e.checker != nil {
		return calendar.For(e.checker, region), nil
	}
	days := e.workingDays
	if c.WorkingDays != "" {
		parsed, err := calendar.ParseWorkingDays(c.WorkingDays)
		if err != nil {
			return calendar.Workdays{}, invalid("working_days", "%v", err)
		}
		days = parsed
	}
	cal, err := calendar.New(days)
	if err != nil {
		return calendar.Workdays{}, invalid("working_days", "%v", err)
	}
	holidays, err := db.ListHolidays(tx, region)
	if err != nil {
		return calendar.Workdays{}, err
	}
	for _, h := range holidays {
		cal.AddHoliday(h.Region, h.Date, h.Name)
	}
	return calendar.For(cal, region), nil
}

// today is the current date in the job's timezone
func (j *job) today(now time.Time) time.Time {
	return calendar.Today(now, j.location)
}

// CascadeResult is the complete outcome of one change. Callers apply it as a single update.
type CascadeResult struct {
	UpdatedTask     *models.Task   `json:"updated_task"`
	CascadedTasks   []*models.Task `json:"cascaded_tasks"`
	BlockedTaskIDs  []uint         `json:"blocked_task_ids"`
	ClampedTaskIDs  []uint         `json:"clamped_task_ids"`
	ScheduleVersion int64          `json:"schedule_version"`
}

// ChangedIDs returns the target followed by every cascaded task
func (r *CascadeResult) ChangedIDs() []uint {
	ids := []uint{r.UpdatedTask.ID}
	for _, t := range r.CascadedTasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// cascade propagates from target and persists every changed task once, target first.
// before is the target as loaded; fixed keeps the target's dates as they are.
func (e *Engine) cascade(j *job, target *models.Task, before models.Task, fixed bool) (*CascadeResult, error) {
	g := j.graph
	order, err := Resolve(g, target.ID)
	if err != nil {
		var cycle *CyclicDependencyError
		if errors.As(err, &cycle) {
			e.log.Error("dependency cycle detected",
				zap.Uint("construction_id", g.Construction.ID),
				zap.Uint("task_id", target.ID),
				zap.Ints("cycle", cycle.Cycle))
		}
		return nil, err
	}

	outcome, err := j.prop.Propagate(g, order, map[uint]bool{target.ID: fixed})
	if err != nil {
		return nil, err
	}

	if cols := changedColumns(&before, target); len(cols) > 0 {
		if err := db.UpdateTaskColumns(j.tx, target.ID, cols); err != nil {
			return nil, fmt.Errorf("failed to update task #%d: %w", target.TaskNumber, err)
		}
	}

	result := &CascadeResult{
		UpdatedTask:     target,
		CascadedTasks:   []*models.Task{},
		BlockedTaskIDs:  outcome.Blocked,
		ClampedTaskIDs:  outcome.Clamped,
		ScheduleVersion: j.version,
	}
	if result.BlockedTaskIDs == nil {
		result.BlockedTaskIDs = []uint{}
	}
	if result.ClampedTaskIDs == nil {
		result.ClampedTaskIDs = []uint{}
	}
	for _, id := range outcome.Changed {
		if id == target.ID {
			continue
		}
		t := g.tasks[id]
		err := db.UpdateTaskColumns(j.tx, id, map[string]interface{}{
			"start_date": t.StartDate,
			"end_date":   t.EndDate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update task #%d: %w", t.TaskNumber, err)
		}
		result.CascadedTasks = append(result.CascadedTasks, t)
	}
	return result, nil
}

func (e *Engine) notifyCascade(ctx context.Context, event notify.Event, c uint, r *CascadeResult, msg string) {
	e.notifier.Notify(ctx, notify.Summary{
		Event:          event,
		ConstructionID: c,
		TaskID:         r.UpdatedTask.ID,
		ChangedTaskIDs: r.ChangedIDs(),
		BlockedTaskIDs: r.BlockedTaskIDs,
		Message:        msg,
		At:             e.now(),
	})
}
