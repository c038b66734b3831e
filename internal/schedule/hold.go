package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
)

// HoldRequest puts a task on hold
type HoldRequest struct {
	TaskID   uint
	ReasonID uint
	UserID   uint
	// Until optionally lets the rollover release the hold once the date has passed
	Until *time.Time
}

// HoldResult reports what the hold froze
type HoldResult struct {
	Task                 *models.Task `json:"task"`
	BlockedTaskIDs       []uint       `json:"blocked_task_ids"`
	DependenciesAffected int          `json:"dependencies_affected"`
	TasksAffected        int          `json:"tasks_affected"`
}

// ReleaseRequest takes a task off hold
type ReleaseRequest struct {
	TaskID     uint
	ReasonText string
	UserID     uint
}

// ReleaseResult is the released task and the cascade that followed
type ReleaseResult struct {
	Task                 *models.Task   `json:"task"`
	Cascade              *CascadeResult `json:"cascade"`
	DependenciesAffected int            `json:"dependencies_affected"`
	TasksAffected        int            `json:"tasks_affected"`
	HoldDurationDays     int            `json:"hold_duration_days"`
}

// StartHold freezes a task and everything downstream of it without moving any dates
func (e *Engine) StartHold(ctx context.Context, req HoldRequest) (*HoldResult, error) {
	constructionID, err := e.constructionOf(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var result *HoldResult
	err = e.withJob(ctx, constructionID, func(j *job) error {
		g := j.graph
		task, ok := g.Task(req.TaskID)
		if !ok {
			return &NotFoundError{What: "task", ID: req.TaskID}
		}
		if task.IsHeld() {
			return invalid("task_id", "task #%d is already on hold", task.TaskNumber)
		}
		if task.Status == models.StatusCompleted {
			return invalid("task_id", "task #%d is completed and cannot be held", task.TaskNumber)
		}
		reason, err := db.GetHoldReason(j.tx, req.ReasonID)
		if err != nil {
			return storeError(err, "hold reason", req.ReasonID)
		}

		before := *task
		now := e.now()
		actor := models.UserActor(req.UserID)
		task.IsHoldTask = true
		task.HoldReasonID = &reason.ID
		task.HoldReason = reason.Name
		task.HoldStartedAt = &now
		task.HoldStartedBy = actor
		task.HoldUntil = nil
		if req.Until != nil {
			until := calendar.Day(*req.Until)
			task.HoldUntil = &until
		}
		task.HoldReleasedAt = nil
		task.HoldReleasedBy = models.Actor{}
		task.HoldReleaseReason = ""

		if err := db.UpdateTaskColumns(j.tx, task.ID, changedColumns(&before, task)); err != nil {
			return err
		}

		blocked := g.Descendants(task.ID)
		result = &HoldResult{
			Task:                 task,
			BlockedTaskIDs:       blocked,
			DependenciesAffected: len(g.Outgoing(task.ID)),
			TasksAffected:        len(blocked),
		}
		if result.BlockedTaskIDs == nil {
			result.BlockedTaskIDs = []uint{}
		}
		return j.tx.Create(&models.HoldLog{
			ConstructionID:       constructionID,
			TaskID:               task.ID,
			Event:                models.HoldStarted,
			Actor:                actor,
			ReasonID:             &reason.ID,
			Reason:               reason.Name,
			DependenciesAffected: result.DependenciesAffected,
			TasksAffected:        result.TasksAffected,
			OccurredAt:           now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("hold started",
		zap.Uint("construction_id", constructionID),
		zap.Uint("task_id", req.TaskID),
		zap.Int("tasks_affected", result.TasksAffected))
	e.notifier.Notify(ctx, notify.Summary{
		Event:          notify.EventHoldStarted,
		ConstructionID: constructionID,
		TaskID:         req.TaskID,
		ChangedTaskIDs: []uint{req.TaskID},
		BlockedTaskIDs: result.BlockedTaskIDs,
		Message:        fmt.Sprintf("Task #%d on hold, %d downstream tasks frozen", result.Task.TaskNumber, result.TasksAffected),
		At:             e.now(),
	})
	return result, nil
}

// ReleaseHold clears a hold and cascades from the task as if it had never been held
func (e *Engine) ReleaseHold(ctx context.Context, req ReleaseRequest) (*ReleaseResult, error) {
	constructionID, err := e.constructionOf(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var result *ReleaseResult
	err = e.withJob(ctx, constructionID, func(j *job) error {
		task, ok := j.graph.Task(req.TaskID)
		if !ok {
			return &NotFoundError{What: "task", ID: req.TaskID}
		}
		if !task.IsHeld() {
			return invalid("task_id", "task #%d is not on hold", task.TaskNumber)
		}
		r, err := e.release(j, task, models.UserActor(req.UserID), req.ReasonText)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("hold released",
		zap.Uint("construction_id", constructionID),
		zap.Uint("task_id", req.TaskID),
		zap.Int("cascaded", len(result.Cascade.CascadedTasks)),
		zap.Int("hold_duration_days", result.HoldDurationDays))
	e.notifyCascade(ctx, notify.EventHoldReleased, constructionID, result.Cascade,
		fmt.Sprintf("Hold released on task #%d, %d tasks moved", result.Task.TaskNumber, len(result.Cascade.CascadedTasks)))
	return result, nil
}

// release clears the hold on task, logs it and cascades inside the job transaction
func (e *Engine) release(j *job, task *models.Task, actor models.Actor, reasonText string) (*ReleaseResult, error) {
	g := j.graph
	before := *task
	now := e.now()

	duration := 0
	if task.HoldStartedAt != nil {
		duration = calendar.DaysBetween(task.HoldStartedAt.In(j.location), now.In(j.location))
	}
	downstream := g.Descendants(task.ID)
	deps := len(g.Outgoing(task.ID))

	task.IsHoldTask = false
	task.HoldUntil = nil
	task.HoldReleasedAt = &now
	task.HoldReleasedBy = actor
	task.HoldReleaseReason = reasonText

	err := j.tx.Create(&models.HoldLog{
		ConstructionID:       g.Construction.ID,
		TaskID:               task.ID,
		Event:                models.HoldReleased,
		Actor:                actor,
		ReasonID:             task.HoldReasonID,
		Reason:               reasonText,
		DependenciesAffected: deps,
		TasksAffected:        len(downstream),
		HoldDurationDays:     &duration,
		OccurredAt:           now,
	}).Error
	if err != nil {
		return nil, err
	}

	cascade, err := e.cascade(j, task, before, false)
	if err != nil {
		return nil, err
	}
	return &ReleaseResult{
		Task:                 task,
		Cascade:              cascade,
		DependenciesAffected: deps,
		TasksAffected:        len(downstream),
		HoldDurationDays:     duration,
	}, nil
}
