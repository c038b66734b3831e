package schedule

import (
	"context"

	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
)

// SetParent moves a task under parentID, or to the top level when parentID is nil
func (e *Engine) SetParent(ctx context.Context, taskID uint, parentID *uint) (*models.Task, error) {
	if parentID != nil && *parentID == taskID {
		return nil, invalid("parent_task_id", "a task cannot be its own parent")
	}
	constructionID, err := e.constructionOf(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = e.withJob(ctx, constructionID, func(j *job) error {
		g := j.graph
		t, ok := g.Task(taskID)
		if !ok {
			return &NotFoundError{What: "task", ID: taskID}
		}
		if parentID != nil {
			parent, ok := g.Task(*parentID)
			if !ok {
				if _, err := db.GetTask(j.tx, *parentID); err != nil {
					return storeError(err, "task", *parentID)
				}
				return invalid("parent_task_id", "task %d belongs to another construction", *parentID)
			}
			if chain := ancestorChain(g, parent.ID, taskID); chain != nil {
				ids := append([]uint{taskID}, chain...)
				return &CyclicDependencyError{Cycle: g.numbers(ids), TaskIDs: ids}
			}
		}

		before := *t
		t.ParentTaskID = parentID
		task = t
		cols := changedColumns(&before, t)
		if len(cols) == 0 {
			return nil
		}
		return db.UpdateTaskColumns(j.tx, t.ID, cols)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("task parent set", zap.Uint("task_id", taskID), zap.Uint("construction_id", constructionID))
	return task, nil
}

// ancestorChain returns the chain from start up to target when target is an
// ancestor of start (or start itself), else nil
func ancestorChain(g *Graph, start, target uint) []uint {
	seen := make(map[uint]bool)
	var chain []uint
	for id := start; ; {
		chain = append(chain, id)
		if id == target {
			return chain
		}
		if seen[id] {
			return nil
		}
		seen[id] = true
		t, ok := g.Task(id)
		if !ok || t.ParentTaskID == nil {
			return nil
		}
		id = *t.ParentTaskID
	}
}
