package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
)

// DependencyRequest links two tasks of the same job
type DependencyRequest struct {
	PredecessorID uint
	SuccessorID   uint
	Type          models.DependencyType
	LagDays       int
	Actor         models.Actor
}

// DependencyResult is the new edge and the cascade it caused
type DependencyResult struct {
	Dependency *models.Dependency `json:"dependency"`
	Cascade    *CascadeResult     `json:"cascade"`
}

// AddDependency validates and inserts an edge, then cascades from its predecessor
func (e *Engine) AddDependency(ctx context.Context, req DependencyRequest) (*DependencyResult, error) {
	if req.PredecessorID == req.SuccessorID {
		return nil, &ValidationError{Field: "successor_task_id", Reason: ErrSelfDependency.Error(), cause: ErrSelfDependency}
	}
	typ := req.Type
	if typ == "" {
		typ = models.FinishToStart
	}
	if !typ.IsValid() {
		return nil, invalid("dependency_type", "unknown dependency type %q", typ)
	}

	constructionID, err := e.constructionOf(ctx, req.PredecessorID)
	if err != nil {
		return nil, err
	}

	var result *DependencyResult
	err = e.withJob(ctx, constructionID, func(j *job) error {
		g := j.graph
		pred, ok := g.Task(req.PredecessorID)
		if !ok {
			return &NotFoundError{What: "task", ID: req.PredecessorID}
		}
		succ, ok := g.Task(req.SuccessorID)
		if !ok {
			if _, err := db.GetTask(j.tx, req.SuccessorID); err != nil {
				return storeError(err, "task", req.SuccessorID)
			}
			return invalid("successor_task_id", "task %d belongs to another construction", req.SuccessorID)
		}

		dep := &models.Dependency{
			ConstructionID:    g.Construction.ID,
			PredecessorTaskID: pred.ID,
			SuccessorTaskID:   succ.ID,
			DependencyType:    typ,
			LagDays:           req.LagDays,
		}
		if err := e.insertDependency(j, dep); err != nil {
			return err
		}

		before := *pred
		cascade, err := e.cascade(j, pred, before, true)
		if err != nil {
			return err
		}
		result = &DependencyResult{Dependency: dep, Cascade: cascade}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("dependency added",
		zap.Uint("construction_id", constructionID),
		zap.Uint("dependency_id", result.Dependency.ID),
		zap.Int("cascaded", len(result.Cascade.CascadedTasks)))
	e.notifyCascade(ctx, notify.EventCascade, constructionID, result.Cascade,
		fmt.Sprintf("Dependency added, %d tasks moved", len(result.Cascade.CascadedTasks)))
	return result, nil
}

// insertDependency rejects duplicates and cycles before writing the edge
func (e *Engine) insertDependency(j *job, dep *models.Dependency) error {
	g := j.graph
	if dep.PredecessorTaskID == dep.SuccessorTaskID {
		return &ValidationError{Field: "successor_task_id", Reason: ErrSelfDependency.Error(), cause: ErrSelfDependency}
	}
	for _, existing := range g.Outgoing(dep.PredecessorTaskID) {
		if existing.SuccessorTaskID == dep.SuccessorTaskID {
			pred, _ := g.Task(dep.PredecessorTaskID)
			succ, _ := g.Task(dep.SuccessorTaskID)
			return &ValidationError{
				Field:  "predecessor_task_id",
				Reason: fmt.Sprintf("task #%d already depends on task #%d", succ.TaskNumber, pred.TaskNumber),
				cause:  ErrDuplicateDependency,
			}
		}
	}
	// The new edge closes a cycle when the successor already reaches the predecessor
	if path := g.PathBetween(dep.SuccessorTaskID, dep.PredecessorTaskID); path != nil {
		cycle := append(path, dep.SuccessorTaskID)
		return &CyclicDependencyError{Cycle: g.numbers(cycle), TaskIDs: cycle}
	}
	if err := db.CreateDependency(j.tx, dep); err != nil {
		return fmt.Errorf("failed to create dependency: %w", err)
	}
	g.AddDependency(dep)
	return nil
}

// RemoveDependency soft-deletes an edge. Successor dates are left as they are.
func (e *Engine) RemoveDependency(ctx context.Context, id uint, actor models.Actor) (*models.Dependency, error) {
	dep, err := db.GetDependency(e.db.WithContext(ctx), id)
	if err != nil {
		return nil, storeError(err, "dependency", id)
	}
	err = e.withJob(ctx, dep.ConstructionID, func(j *job) error {
		return db.SoftDeleteDependency(j.tx, id, models.DeletedManually, actor, e.now())
	})
	if err != nil {
		return nil, storeError(err, "dependency", id)
	}
	dep.Status = models.DependencyRemoved
	dep.DeletedReason = models.DeletedManually
	dep.DeletedBy = actor
	e.log.Info("dependency removed", zap.Uint("dependency_id", id), zap.Uint("construction_id", dep.ConstructionID))
	return dep, nil
}
