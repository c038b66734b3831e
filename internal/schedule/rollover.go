package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/config"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
)

var errAlreadyRolled = errors.New("already rolled over today")

// RolloverReport summarises one job's rollover run
type RolloverReport struct {
	ConstructionID      uint                 `json:"construction_id"`
	BatchID             string               `json:"batch_id,omitempty"`
	Day                 time.Time            `json:"day"`
	Skipped             bool                 `json:"skipped"`
	Rolled              []uint               `json:"rolled"`
	Cascaded            []uint               `json:"cascaded"`
	Failed              []uint               `json:"failed"`
	HoldsCleared        int                  `json:"holds_cleared"`
	DeletedDependencies int                  `json:"deleted_dependencies"`
	Logs                []models.RolloverLog `json:"logs"`
	Error               string               `json:"error,omitempty"`
}

// RolloverProcessor advances overdue unstarted tasks to today
type RolloverProcessor struct {
	engine   *Engine
	settings config.RolloverSettings

	// beforePersist runs inside each task's savepoint; tests use it to inject failures
	beforePersist func(t *models.Task) error
}

// NewRolloverProcessor returns a processor using the injected settings
func NewRolloverProcessor(e *Engine, settings config.RolloverSettings) *RolloverProcessor {
	return &RolloverProcessor{engine: e, settings: settings}
}

// Settings returns the settings the processor was built with
func (p *RolloverProcessor) Settings() config.RolloverSettings {
	return p.settings
}

// rolloverEntry is the work and audit state for one touched task
type rolloverEntry struct {
	log        *models.RolloverLog
	task       *models.Task
	before     models.Task
	deleteDeps []*models.Dependency
	depth      int
}

// Run rolls one job over for the day now falls on in the job's timezone.
// A second run on the same day is a no-op.
func (p *RolloverProcessor) Run(ctx context.Context, constructionID uint, now time.Time) (*RolloverReport, error) {
	e := p.engine
	report := &RolloverReport{ConstructionID: constructionID, Rolled: []uint{}, Cascaded: []uint{}, Failed: []uint{}}

	err := e.withJob(ctx, constructionID, func(j *job) error {
		loc := j.location
		if j.construction().Timezone == "" && p.settings.Timezone != "" {
			l, err := time.LoadLocation(p.settings.Timezone)
			if err != nil {
				return fmt.Errorf("rollover timezone: %w", err)
			}
			loc = l
		}
		today := calendar.Today(now, loc)
		report.Day = today

		c := j.construction()
		if c.LastRolloverOn != nil && calendar.Day(*c.LastRolloverOn).Equal(today) {
			return errAlreadyRolled
		}
		report.BatchID = uuid.New().String()
		return p.roll(j, today, now, report)
	})
	if errors.Is(err, errAlreadyRolled) {
		report.Skipped = true
		e.log.Info("rollover skipped, already ran today",
			zap.Uint("construction_id", constructionID),
			zap.Time("day", report.Day))
		return report, nil
	}
	if err != nil {
		e.log.Error("rollover failed", zap.Uint("construction_id", constructionID), zap.Error(err))
		return nil, err
	}

	e.log.Info("rollover completed",
		zap.Uint("construction_id", constructionID),
		zap.String("batch_id", report.BatchID),
		zap.Int("rolled", len(report.Rolled)),
		zap.Int("cascaded", len(report.Cascaded)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("deleted_dependencies", report.DeletedDependencies))
	changed := append(append([]uint{}, report.Rolled...), report.Cascaded...)
	e.notifier.Notify(ctx, notify.Summary{
		Event:          notify.EventRollover,
		ConstructionID: constructionID,
		ChangedTaskIDs: changed,
		BatchID:        report.BatchID,
		Message:        fmt.Sprintf("Rollover moved %d tasks", len(changed)),
		At:             e.now(),
	})
	return report, nil
}

func (p *RolloverProcessor) roll(j *job, today, now time.Time, report *RolloverReport) error {
	e := p.engine
	g := j.graph
	prop := j.prop

	entries := make(map[uint]*rolloverEntry)
	var touched []uint
	entry := func(t *models.Task) *rolloverEntry {
		if en, ok := entries[t.ID]; ok {
			return en
		}
		en := &rolloverEntry{
			task:   t,
			before: *t,
			log: &models.RolloverLog{
				RolloverBatchID: report.BatchID,
				ConstructionID:  g.Construction.ID,
				TaskID:          t.ID,
				OldStartDate:    t.StartDate,
				OldEndDate:      t.EndDate,
			},
		}
		entries[t.ID] = en
		touched = append(touched, t.ID)
		return en
	}

	// Expired holds go first so their tasks and dependents can move today
	released := make(map[uint]bool)
	var releasedIDs []uint
	for _, t := range g.Tasks() {
		if !t.IsHeld() || t.HoldUntil == nil || !calendar.Day(*t.HoldUntil).Before(today) {
			continue
		}
		en := entry(t)
		started := t.HoldStartedAt
		t.IsHoldTask = false
		t.HoldUntil = nil
		t.HoldReleasedAt = &now
		t.HoldReleasedBy = models.RolloverActor()
		t.HoldReleaseReason = "hold expired"
		en.log.HoldCleared = true
		report.HoldsCleared++
		released[t.ID] = true
		releasedIDs = append(releasedIDs, t.ID)

		duration := 0
		if started != nil {
			duration = calendar.DaysBetween(started.In(j.location), now.In(j.location))
		}
		downstream := g.Descendants(t.ID)
		err := j.tx.Create(&models.HoldLog{
			ConstructionID:       g.Construction.ID,
			TaskID:               t.ID,
			Event:                models.HoldReleased,
			Actor:                models.RolloverActor(),
			ReasonID:             t.HoldReasonID,
			Reason:               t.HoldReleaseReason,
			DependenciesAffected: len(g.Outgoing(t.ID)),
			TasksAffected:        len(downstream),
			HoldDurationDays:     &duration,
			OccurredAt:           now,
		}).Error
		if err != nil {
			return err
		}
	}

	frozen := g.Frozen()
	seeds := make(map[uint]bool)
	var seedIDs []uint
	for _, t := range g.Tasks() {
		if t.Status != models.StatusNotStarted || !t.StartDate.Before(today) {
			continue
		}
		if t.ManuallyPositioned || t.IsHeld() || frozen[t.ID] {
			continue
		}
		seeds[t.ID] = true
		seedIDs = append(seedIDs, t.ID)
	}

	// Released tasks are re-dated from their predecessors even when not overdue
	order, err := Resolve(g, append(seedIDs, releasedIDs...)...)
	if err != nil {
		return err
	}

	moved := make(map[uint]bool)
	for _, id := range order {
		t := g.tasks[id]
		if frozen[id] || t.IsHeld() {
			continue
		}

		depth := 0
		for _, dep := range g.Incoming(id) {
			if en, ok := entries[dep.PredecessorTaskID]; ok && moved[dep.PredecessorTaskID] && en.depth+1 > depth {
				depth = en.depth + 1
			}
		}

		if seeds[id] {
			start := today
			earliest, ok, err := prop.EarliestStart(g, t)
			if err != nil {
				return err
			}
			if ok && earliest.After(start) {
				start = earliest
			}
			newStart, newEnd, _, err := prop.Place(start, t.DurationDays)
			if err != nil {
				return err
			}
			en := entry(t)
			en.depth = 0
			if t.Confirm || t.SupplierConfirm {
				t.Confirm, t.SupplierConfirm = false, false
				t.ConfirmStatus = models.ConfirmMovedAfterConfirm
				en.log.ConfirmCleared = true
			}
			t.StartDate, t.EndDate = newStart, newEnd
			moved[id] = true
			report.Rolled = append(report.Rolled, id)
			continue
		}

		if t.IsLocked() {
			// Break edges that would drag a locked task instead of moving it
			for _, dep := range append([]*models.Dependency(nil), g.Incoming(id)...) {
				if !moved[dep.PredecessorTaskID] {
					continue
				}
				c, err := prop.ConstraintStart(g, dep, t)
				if err != nil {
					return err
				}
				if c, err = prop.Workdays.Next(c); err != nil {
					return err
				}
				if !c.After(t.StartDate) {
					continue
				}
				pred := entries[dep.PredecessorTaskID]
				pred.deleteDeps = append(pred.deleteDeps, dep)
				pred.log.DeletedDependencies = append(pred.log.DeletedDependencies, models.DeletedDependency{
					DependencyID:  dep.ID,
					PredecessorID: dep.PredecessorTaskID,
					SuccessorID:   dep.SuccessorTaskID,
					Type:          dep.DependencyType,
					LagDays:       dep.LagDays,
				})
				g.RemoveDependency(dep)
				report.DeletedDependencies++
			}
			continue
		}

		if len(g.Incoming(id)) == 0 {
			continue
		}
		earliest, _, err := prop.EarliestStart(g, t)
		if err != nil {
			return err
		}
		if released[id] && earliest.Before(today) {
			earliest = today
		}
		newStart, newEnd, _, err := prop.Place(earliest, t.DurationDays)
		if err != nil {
			return err
		}
		if newStart.Equal(t.StartDate) && newEnd.Equal(t.EndDate) {
			continue
		}
		en := entry(t)
		en.depth = depth
		t.StartDate, t.EndDate = newStart, newEnd
		moved[id] = true
		report.Cascaded = append(report.Cascaded, id)
	}

	failed := make(map[uint]bool)
	logs := make([]models.RolloverLog, 0, len(touched))
	for _, id := range touched {
		en := entries[id]
		en.log.CascadeDepth = en.depth

		for _, dep := range g.Incoming(id) {
			if failed[dep.PredecessorTaskID] {
				pred := g.tasks[dep.PredecessorTaskID]
				en.log.Error = fmt.Sprintf("predecessor #%d failed to roll over", pred.TaskNumber)
				break
			}
		}
		if en.log.Error == "" {
			if err := j.tx.Transaction(func(sp *gorm.DB) error { return p.persist(sp, en, now) }); err != nil {
				en.log.Error = err.Error()
			}
		}

		if en.log.Error != "" {
			failed[id] = true
			*en.task = en.before
			report.Failed = append(report.Failed, id)
			e.log.Warn("rollover task failed",
				zap.Uint("construction_id", g.Construction.ID),
				zap.Uint("task_id", id),
				zap.String("batch_id", report.BatchID),
				zap.String("error", en.log.Error))
		}
		en.log.NewStartDate = en.task.StartDate
		en.log.NewEndDate = en.task.EndDate
		logs = append(logs, *en.log)
	}

	if len(logs) > 0 {
		if err := j.tx.Create(&logs).Error; err != nil {
			return fmt.Errorf("failed to write rollover logs: %w", err)
		}
	}
	report.Logs = logs
	report.Rolled = withoutIDs(report.Rolled, failed)
	report.Cascaded = withoutIDs(report.Cascaded, failed)
	return db.MarkRolledOver(j.tx, g.Construction.ID, today, report.BatchID)
}

// persist writes one task's rollover inside its savepoint
func (p *RolloverProcessor) persist(tx *gorm.DB, en *rolloverEntry, now time.Time) error {
	if p.beforePersist != nil {
		if err := p.beforePersist(en.task); err != nil {
			return err
		}
	}
	for _, dep := range en.deleteDeps {
		if err := db.SoftDeleteDependency(tx, dep.ID, models.DeletedByRollover, models.RolloverActor(), now); err != nil {
			return err
		}
	}
	cols := changedColumns(&en.before, en.task)
	if len(cols) == 0 {
		return nil
	}
	return db.UpdateTaskColumns(tx, en.task.ID, cols)
}

func withoutIDs(ids []uint, drop map[uint]bool) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// RunAll rolls over every job with rollover enabled, several jobs at a time.
// A failing job is reported and does not stop the others.
func (p *RolloverProcessor) RunAll(ctx context.Context, now time.Time) ([]*RolloverReport, error) {
	jobs, err := db.ListConstructions(p.engine.db.WithContext(ctx), true)
	if err != nil {
		return nil, err
	}
	workers := p.settings.Workers
	if workers < 1 {
		workers = 1
	}

	rp := pool.NewWithResults[*RolloverReport]().WithMaxGoroutines(workers)
	for _, c := range jobs {
		id := c.ID
		rp.Go(func() *RolloverReport {
			report, err := p.Run(ctx, id, now)
			if err != nil {
				return &RolloverReport{ConstructionID: id, Error: err.Error()}
			}
			return report
		})
	}
	reports := rp.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].ConstructionID < reports[j].ConstructionID })
	return reports, nil
}
