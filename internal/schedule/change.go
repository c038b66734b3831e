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
	"github.com/balkashynov/smgantt/internal/parser"
)

// PredecessorLink names one desired predecessor by task id or by task number
type PredecessorLink struct {
	TaskID     uint                  `json:"task_id,omitempty"`
	TaskNumber int                   `json:"task_number,omitempty"`
	Type       models.DependencyType `json:"type,omitempty"`
	LagDays    int                   `json:"lag_days,omitempty"`
}

// LinksByNumber converts parsed predecessor notation such as "12FS+3" into links
func LinksByNumber(preds []parser.Predecessor) []PredecessorLink {
	links := make([]PredecessorLink, 0, len(preds))
	for _, p := range preds {
		links = append(links, PredecessorLink{
			TaskNumber: p.TaskNumber,
			Type:       models.DependencyType(p.Type),
			LagDays:    p.LagDays,
		})
	}
	return links
}

// ChangeRequest is one user edit of a task. Nil fields are left alone.
type ChangeRequest struct {
	TaskID uint

	// At most one of StartDate and StartOffset; the offset counts calendar days from the job start
	StartDate   *time.Time
	StartOffset *int
	Duration    *int

	ManuallyPositioned *bool
	Confirm            *bool
	SupplierConfirm    *bool

	// Replaces the active predecessor set when non-nil
	Predecessors *[]PredecessorLink

	// Override allows a start before the job start
	Override bool
	Actor    models.Actor
}

// ApplyChange edits one task and cascades the result to every dependent task
// in a single transaction
func (e *Engine) ApplyChange(ctx context.Context, req ChangeRequest) (*CascadeResult, error) {
	constructionID, err := e.constructionOf(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var result *CascadeResult
	err = e.withJob(ctx, constructionID, func(j *job) error {
		g := j.graph
		target, ok := g.Task(req.TaskID)
		if !ok {
			return &NotFoundError{What: "task", ID: req.TaskID}
		}
		if target.IsHeld() {
			return &TaskHeldError{TaskID: target.ID, TaskNumber: target.TaskNumber, Reason: target.HoldReason}
		}
		before := *target

		start, err := e.requestedStart(g.Construction, req)
		if err != nil {
			return err
		}
		if (start != nil || req.Duration != nil) && target.Status == models.StatusCompleted {
			return invalid("start_date", "task #%d is completed and cannot be rescheduled", target.TaskNumber)
		}

		if req.Predecessors != nil {
			if err := e.reconcilePredecessors(j, target, *req.Predecessors, req.Actor); err != nil {
				return err
			}
		}

		applyFlags(target, req)
		fixed := start != nil || req.Duration != nil
		if start != nil {
			target.StartDate = *start
		}
		if req.Duration != nil {
			target.DurationDays = *req.Duration
		}
		if fixed {
			end, err := j.prop.Workdays.Add(target.StartDate, target.DurationDays)
			if err != nil {
				return err
			}
			target.EndDate = end
		}

		result, err = e.cascade(j, target, before, fixed)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("cascade applied",
		zap.Uint("construction_id", constructionID),
		zap.Uint("task_id", req.TaskID),
		zap.Int("cascaded", len(result.CascadedTasks)),
		zap.Int("blocked", len(result.BlockedTaskIDs)),
		zap.Int64("schedule_version", result.ScheduleVersion))
	e.notifyCascade(ctx, notify.EventCascade, constructionID, result,
		fmt.Sprintf("Task #%d updated, %d dependent tasks moved", result.UpdatedTask.TaskNumber, len(result.CascadedTasks)))
	return result, nil
}

// requestedStart validates the requested start and duration
func (e *Engine) requestedStart(c *models.Construction, req ChangeRequest) (*time.Time, error) {
	if req.Duration != nil && *req.Duration <= 0 {
		return nil, invalid("duration", "must be greater than zero, got %d", *req.Duration)
	}
	if req.StartDate != nil && req.StartOffset != nil {
		return nil, invalid("start_date", "give either a date or a day offset, not both")
	}

	var start time.Time
	switch {
	case req.StartDate != nil:
		start = calendar.Day(*req.StartDate)
	case req.StartOffset != nil:
		start = calendar.Day(c.StartDate).AddDate(0, 0, *req.StartOffset)
	default:
		return nil, nil
	}
	if floor := calendar.Day(c.StartDate); start.Before(floor) && !req.Override {
		return nil, invalid("start_date", "%s is before the job start %s", start.Format("2006-01-02"), floor.Format("2006-01-02"))
	}
	return &start, nil
}

func applyFlags(t *models.Task, req ChangeRequest) {
	if req.ManuallyPositioned != nil {
		t.ManuallyPositioned = *req.ManuallyPositioned
	}
	if req.Confirm != nil {
		t.Confirm = *req.Confirm
	}
	if req.SupplierConfirm != nil {
		t.SupplierConfirm = *req.SupplierConfirm
	}
	if req.Confirm != nil || req.SupplierConfirm != nil {
		switch {
		case t.SupplierConfirm:
			t.ConfirmStatus = models.ConfirmSupplierConfirmed
		case t.Confirm:
			t.ConfirmStatus = models.ConfirmConfirmed
		default:
			t.ConfirmStatus = models.ConfirmNone
		}
	}
}

// reconcilePredecessors makes target's active predecessors match links
func (e *Engine) reconcilePredecessors(j *job, target *models.Task, links []PredecessorLink, actor models.Actor) error {
	g := j.graph
	type wanted struct {
		typ models.DependencyType
		lag int
	}
	desired := make(map[uint]wanted, len(links))
	var order []uint
	for _, l := range links {
		pred, err := resolveLink(g, l)
		if err != nil {
			return err
		}
		if pred.ID == target.ID {
			return &ValidationError{Field: "predecessors", Reason: ErrSelfDependency.Error(), cause: ErrSelfDependency}
		}
		typ := l.Type
		if typ == "" {
			typ = models.FinishToStart
		}
		if !typ.IsValid() {
			return invalid("predecessors", "unknown dependency type %q", typ)
		}
		if _, dup := desired[pred.ID]; dup {
			return invalid("predecessors", "task #%d listed twice", pred.TaskNumber)
		}
		desired[pred.ID] = wanted{typ: typ, lag: l.LagDays}
		order = append(order, pred.ID)
	}

	now := e.now()
	existing := append([]*models.Dependency(nil), g.Incoming(target.ID)...)
	kept := make(map[uint]bool)
	for _, dep := range existing {
		w, ok := desired[dep.PredecessorTaskID]
		if !ok {
			if err := db.SoftDeleteDependency(j.tx, dep.ID, models.DeletedByPredecessorEdit, actor, now); err != nil {
				return err
			}
			g.RemoveDependency(dep)
			continue
		}
		kept[dep.PredecessorTaskID] = true
		if dep.DependencyType != w.typ || dep.LagDays != w.lag {
			err := j.tx.Model(&models.Dependency{}).Where("id = ?", dep.ID).Updates(map[string]interface{}{
				"dependency_type": w.typ,
				"lag_days":        w.lag,
			}).Error
			if err != nil {
				return err
			}
			dep.DependencyType, dep.LagDays = w.typ, w.lag
		}
	}

	for _, predID := range order {
		if kept[predID] {
			continue
		}
		w := desired[predID]
		dep := &models.Dependency{
			ConstructionID:    g.Construction.ID,
			PredecessorTaskID: predID,
			SuccessorTaskID:   target.ID,
			DependencyType:    w.typ,
			LagDays:           w.lag,
		}
		if err := e.insertDependency(j, dep); err != nil {
			return err
		}
	}
	return nil
}

func resolveLink(g *Graph, l PredecessorLink) (*models.Task, error) {
	switch {
	case l.TaskID != 0:
		if t, ok := g.Task(l.TaskID); ok {
			return t, nil
		}
		return nil, invalid("predecessors", "task id %d is not part of this job", l.TaskID)
	case l.TaskNumber != 0:
		if t, ok := g.TaskByNumber(l.TaskNumber); ok {
			return t, nil
		}
		return nil, invalid("predecessors", "task #%d does not exist in this job", l.TaskNumber)
	}
	return nil, invalid("predecessors", "each predecessor needs a task id or task number")
}
