package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
)

// NewTask describes a task to add to a job
type NewTask struct {
	ConstructionID uint
	// TaskNumber is assigned as max + 1 when zero
	TaskNumber    int
	Name          string
	Description   string
	Trade         string
	Stage         string
	SequenceOrder *float64
	// StartDate defaults to the earliest start the predecessors allow, else the job start
	StartDate    *time.Time
	DurationDays int
	Predecessors []PredecessorLink
	ParentTaskID *uint

	ManuallyPositioned bool
	PassFailEnabled    bool
	SpawnPhotoTask     bool
	SpawnScanTask      bool
	SpawnOfficeTasks   []models.OfficeTaskTemplate
	Actor              models.Actor
}

// CompleteRequest marks a task completed
type CompleteRequest struct {
	TaskID uint
	// Passed is the inspection result for pass/fail tasks
	Passed *bool
	Actor  models.Actor
}

// CompleteResult is the completed task and every follow-up it spawned
type CompleteResult struct {
	Task    *models.Task   `json:"task"`
	Spawned []*models.Task `json:"spawned"`
}

// CreateConstruction stores a new job
func (e *Engine) CreateConstruction(ctx context.Context, c *models.Construction) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", "cannot be empty")
	}
	if c.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	c.StartDate = calendar.Day(c.StartDate)
	if c.WorkingDays != "" {
		days, err := calendar.ParseWorkingDays(c.WorkingDays)
		if err != nil {
			return invalid("working_days", "%v", err)
		}
		c.WorkingDays = calendar.FormatWorkingDays(days)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return invalid("timezone", "%v", err)
		}
	}
	if err := db.CreateConstruction(e.db.WithContext(ctx), c); err != nil {
		return fmt.Errorf("failed to create construction: %w", err)
	}
	e.log.Info("construction created", zap.Uint("construction_id", c.ID), zap.String("name", c.Name))
	return nil
}

// Construction returns one job
func (e *Engine) Construction(ctx context.Context, id uint) (*models.Construction, error) {
	c, err := db.GetConstruction(e.db.WithContext(ctx), id)
	if err != nil {
		return nil, storeError(err, "construction", id)
	}
	return c, nil
}

// Constructions lists every job
func (e *Engine) Constructions(ctx context.Context) ([]models.Construction, error) {
	return db.ListConstructions(e.db.WithContext(ctx), false)
}

// Graph loads the current schedule of a job
func (e *Engine) Graph(ctx context.Context, constructionID uint) (*Graph, error) {
	if _, err := e.Construction(ctx, constructionID); err != nil {
		return nil, err
	}
	return loadGraph(e.db.WithContext(ctx), constructionID)
}

// Tasks lists a job's tasks in schedule order
func (e *Engine) Tasks(ctx context.Context, constructionID uint) ([]*models.Task, error) {
	g, err := e.Graph(ctx, constructionID)
	if err != nil {
		return nil, err
	}
	return g.Tasks(), nil
}

// HoldReasons lists the reasons a task can be held for
func (e *Engine) HoldReasons(ctx context.Context) ([]models.HoldReason, error) {
	return db.ListHoldReasons(e.db.WithContext(ctx))
}

// CreateTask adds a task and its predecessor links
func (e *Engine) CreateTask(ctx context.Context, in NewTask) (*models.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name", "cannot be empty")
	}
	if in.DurationDays < 0 {
		return nil, invalid("duration", "must be greater than zero, got %d", in.DurationDays)
	}
	if in.DurationDays == 0 {
		in.DurationDays = 1
	}

	var task *models.Task
	err := e.withJob(ctx, in.ConstructionID, func(j *job) error {
		g := j.graph
		number := in.TaskNumber
		if number == 0 {
			n, err := db.NextTaskNumber(j.tx, in.ConstructionID)
			if err != nil {
				return err
			}
			number = n
		} else if _, taken := g.TaskByNumber(number); taken {
			return invalid("task_number", "#%d is already used in this job", number)
		}

		seq := float64(number)
		if in.SequenceOrder != nil {
			seq = *in.SequenceOrder
		}
		if in.ParentTaskID != nil {
			if _, ok := g.Task(*in.ParentTaskID); !ok {
				return invalid("parent_task_id", "task %d is not in this job", *in.ParentTaskID)
			}
		}

		task = &models.Task{
			ConstructionID:     in.ConstructionID,
			TaskNumber:         number,
			Name:               in.Name,
			Description:        in.Description,
			Trade:              in.Trade,
			Stage:              in.Stage,
			SequenceOrder:      seq,
			DurationDays:       in.DurationDays,
			Status:             models.StatusNotStarted,
			ManuallyPositioned: in.ManuallyPositioned,
			PassFailEnabled:    in.PassFailEnabled,
			SpawnPhotoTask:     in.SpawnPhotoTask,
			SpawnScanTask:      in.SpawnScanTask,
			SpawnOfficeTasks:   in.SpawnOfficeTasks,
			ParentTaskID:       in.ParentTaskID,
		}

		preds := make([]*models.Task, 0, len(in.Predecessors))
		for _, l := range in.Predecessors {
			p, err := resolveLink(g, l)
			if err != nil {
				return err
			}
			preds = append(preds, p)
		}

		// Dates are placed once the edges exist; the row needs an id first
		task.StartDate = calendar.Day(g.Construction.StartDate)
		if in.StartDate != nil {
			task.StartDate = calendar.Day(*in.StartDate)
		}
		end, err := j.prop.Workdays.Add(task.StartDate, task.DurationDays)
		if err != nil {
			return err
		}
		task.EndDate = end
		if err := db.CreateTask(j.tx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		g.AddTask(task)

		for i, l := range in.Predecessors {
			typ := l.Type
			if typ == "" {
				typ = models.FinishToStart
			}
			if !typ.IsValid() {
				return invalid("dependency_type", "unknown type %q", typ)
			}
			dep := &models.Dependency{
				ConstructionID:    in.ConstructionID,
				PredecessorTaskID: preds[i].ID,
				SuccessorTaskID:   task.ID,
				DependencyType:    typ,
				LagDays:           l.LagDays,
			}
			if err := e.insertDependency(j, dep); err != nil {
				return err
			}
		}

		if in.StartDate != nil || len(in.Predecessors) == 0 {
			return nil
		}
		earliest, _, err := j.prop.EarliestStart(g, task)
		if err != nil {
			return err
		}
		start, end, _, err := j.prop.Place(earliest, task.DurationDays)
		if err != nil {
			return err
		}
		task.StartDate, task.EndDate = start, end
		return db.UpdateTaskColumns(j.tx, task.ID, map[string]interface{}{
			"start_date": start,
			"end_date":   end,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("task created",
		zap.Uint("construction_id", in.ConstructionID),
		zap.Uint("task_id", task.ID),
		zap.Int("task_number", task.TaskNumber))
	return task, nil
}

// StartTask marks a task started, which locks its dates
func (e *Engine) StartTask(ctx context.Context, taskID uint, actor models.Actor) (*models.Task, error) {
	constructionID, err := e.constructionOf(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = e.withJob(ctx, constructionID, func(j *job) error {
		t, ok := j.graph.Task(taskID)
		if !ok {
			return &NotFoundError{What: "task", ID: taskID}
		}
		if t.IsHeld() {
			return &TaskHeldError{TaskID: t.ID, TaskNumber: t.TaskNumber, Reason: t.HoldReason}
		}
		if t.Status != models.StatusNotStarted {
			return invalid("status", "task #%d is already %s", t.TaskNumber, t.Status)
		}
		before := *t
		now := e.now()
		t.Status = models.StatusStarted
		t.StartedAt = &now
		task = t
		return db.UpdateTaskColumns(j.tx, t.ID, changedColumns(&before, t))
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("task started",
		zap.Uint("construction_id", constructionID),
		zap.Uint("task_id", taskID),
		zap.String("actor", actor.String()))
	return task, nil
}

// CompleteTask marks a task completed and spawns its follow-up tasks
func (e *Engine) CompleteTask(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	constructionID, err := e.constructionOf(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var result *CompleteResult
	err = e.withJob(ctx, constructionID, func(j *job) error {
		t, ok := j.graph.Task(req.TaskID)
		if !ok {
			return &NotFoundError{What: "task", ID: req.TaskID}
		}
		if t.IsHeld() {
			return &TaskHeldError{TaskID: t.ID, TaskNumber: t.TaskNumber, Reason: t.HoldReason}
		}
		if t.Status == models.StatusCompleted {
			return invalid("status", "task #%d is already completed", t.TaskNumber)
		}
		if req.Passed != nil && !t.PassFailEnabled {
			return invalid("passed", "task #%d is not an inspection", t.TaskNumber)
		}

		before := *t
		now := e.now()
		t.Status = models.StatusCompleted
		t.CompletedAt = &now
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		if t.PassFailEnabled {
			t.Passed = req.Passed
		}
		if err := db.UpdateTaskColumns(j.tx, t.ID, changedColumns(&before, t)); err != nil {
			return err
		}

		spawned, err := e.spawnFollowUps(j, t, req.Actor, now)
		if err != nil {
			return err
		}
		result = &CompleteResult{Task: t, Spawned: spawned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	changed := []uint{req.TaskID}
	for _, s := range result.Spawned {
		changed = append(changed, s.ID)
	}
	e.log.Info("task completed",
		zap.Uint("construction_id", constructionID),
		zap.Uint("task_id", req.TaskID),
		zap.Int("spawned", len(result.Spawned)))
	e.notifier.Notify(ctx, notify.Summary{
		Event:          notify.EventCompleted,
		ConstructionID: constructionID,
		TaskID:         req.TaskID,
		ChangedTaskIDs: changed,
		Message:        fmt.Sprintf("Task #%d completed, %d follow-ups created", result.Task.TaskNumber, len(result.Spawned)),
		At:             e.now(),
	})
	return result, nil
}

// spawnPlan is one follow-up to create
type spawnPlan struct {
	kind     models.SpawnType
	trigger  models.SpawnTrigger
	name     string
	desc     string
	duration int
	passFail bool
}

func (e *Engine) spawnFollowUps(j *job, parent *models.Task, actor models.Actor, now time.Time) ([]*models.Task, error) {
	var plans []spawnPlan
	if parent.PassFailEnabled && parent.Passed != nil && !*parent.Passed {
		n, err := db.CountSpawns(j.tx, parent.ID, models.SpawnInspectionRetry)
		if err != nil {
			return nil, err
		}
		plans = append(plans, spawnPlan{
			kind:     models.SpawnInspectionRetry,
			trigger:  models.TriggerInspectionFail,
			name:     fmt.Sprintf("%s - Retry #%d", parent.Name, n+1),
			desc:     parent.Description,
			duration: parent.DurationDays,
			passFail: true,
		})
	} else {
		if parent.SpawnPhotoTask {
			plans = append(plans, spawnPlan{kind: models.SpawnPhoto, trigger: models.TriggerParentComplete, name: parent.Name + " - Photos"})
		}
		if parent.SpawnScanTask {
			plans = append(plans, spawnPlan{kind: models.SpawnScan, trigger: models.TriggerParentComplete, name: parent.Name + " - Document Scan"})
		}
		for _, o := range parent.SpawnOfficeTasks {
			plans = append(plans, spawnPlan{
				kind:     models.SpawnOffice,
				trigger:  models.TriggerParentComplete,
				name:     o.Name,
				desc:     o.Description,
				duration: o.DurationDays,
			})
		}
	}
	if len(plans) == 0 {
		return []*models.Task{}, nil
	}

	next, err := db.NextTaskNumber(j.tx, parent.ConstructionID)
	if err != nil {
		return nil, err
	}
	today := j.today(now)
	spawned := make([]*models.Task, 0, len(plans))
	for i, p := range plans {
		duration := p.duration
		if duration <= 0 {
			duration = 1
		}
		start, end, _, err := j.prop.Place(today, duration)
		if err != nil {
			return nil, err
		}
		parentID := parent.ID
		t := &models.Task{
			ConstructionID:  parent.ConstructionID,
			TaskNumber:      next + i,
			Name:            p.name,
			Description:     p.desc,
			Trade:           parent.Trade,
			Stage:           parent.Stage,
			SequenceOrder:   parent.SequenceOrder + 0.01,
			StartDate:       start,
			EndDate:         end,
			DurationDays:    duration,
			Status:          models.StatusNotStarted,
			PassFailEnabled: p.passFail,
			ParentTaskID:    &parentID,
		}
		if err := db.CreateTask(j.tx, t); err != nil {
			return nil, fmt.Errorf("failed to spawn %s task: %w", p.kind, err)
		}
		j.graph.AddTask(t)
		err = j.tx.Create(&models.SpawnLog{
			ParentTaskID:  parent.ID,
			SpawnedTaskID: t.ID,
			SpawnType:     p.kind,
			SpawnTrigger:  p.trigger,
			SpawnedBy:     actor,
		}).Error
		if err != nil {
			return nil, err
		}
		spawned = append(spawned, t)
	}
	return spawned, nil
}
