package schedule

import (
	"context"
	"time"

	"github.com/balkashynov/smgantt/internal/models"
)

// TaskFloat is the CPM result for one task. Offsets count working days from the job start.
type TaskFloat struct {
	TaskID      uint   `json:"task_id"`
	TaskNumber  int    `json:"task_number"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	EarlyStart  int    `json:"early_start"`
	EarlyFinish int    `json:"early_finish"`
	LateStart   int    `json:"late_start"`
	LateFinish  int    `json:"late_finish"`
	TotalFloat  int    `json:"total_float"`
	Critical    bool   `json:"critical"`

	EarlyStartDate time.Time `json:"early_start_date"`
	LateStartDate  time.Time `json:"late_start_date"`
}

// CriticalPathResult is a full forward and backward pass over one job
type CriticalPathResult struct {
	ConstructionID  uint        `json:"construction_id"`
	ProjectDuration int         `json:"project_duration"`
	ProjectFinish   time.Time   `json:"project_finish"`
	Tasks           []TaskFloat `json:"tasks"`
	// CriticalPath lists the zero-float task ids in dependency order
	CriticalPath []uint `json:"critical_path"`
}

// CriticalPath computes early and late dates and total float for every task of a job
func (e *Engine) CriticalPath(ctx context.Context, constructionID uint) (*CriticalPathResult, error) {
	g, err := e.Graph(ctx, constructionID)
	if err != nil {
		return nil, err
	}
	wd, err := e.Workdays(ctx, g.Construction)
	if err != nil {
		return nil, err
	}

	floats, finish, order, err := ComputeFloat(g)
	if err != nil {
		return nil, err
	}

	origin, err := wd.Next(g.Construction.StartDate)
	if err != nil {
		return nil, err
	}
	result := &CriticalPathResult{
		ConstructionID:  constructionID,
		ProjectDuration: finish,
		Tasks:           make([]TaskFloat, 0, len(order)),
		CriticalPath:    []uint{},
	}
	if result.ProjectFinish, err = wd.Add(origin, finish); err != nil {
		return nil, err
	}
	for _, id := range order {
		f := floats[id]
		if f.EarlyStartDate, err = wd.Add(origin, f.EarlyStart); err != nil {
			return nil, err
		}
		if f.LateStartDate, err = wd.Add(origin, f.LateStart); err != nil {
			return nil, err
		}
		result.Tasks = append(result.Tasks, *f)
		if f.Critical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	return result, nil
}

// ComputeFloat runs the CPM passes over g. It returns per-task results, the
// project length and the topological order used.
func ComputeFloat(g *Graph) (map[uint]*TaskFloat, int, []uint, error) {
	order, err := ResolveAll(g)
	if err != nil {
		return nil, 0, nil, err
	}

	floats := make(map[uint]*TaskFloat, len(order))
	finish := 0
	for _, id := range order {
		t := g.tasks[id]
		f := &TaskFloat{TaskID: id, TaskNumber: t.TaskNumber, Name: t.Name, Duration: t.DurationDays}
		for _, dep := range g.Incoming(id) {
			p := floats[dep.PredecessorTaskID]
			var es int
			switch dep.DependencyType {
			case models.StartToStart:
				es = p.EarlyStart + dep.LagDays
			case models.FinishToFinish:
				es = p.EarlyFinish + dep.LagDays - f.Duration
			case models.StartToFinish:
				es = p.EarlyStart + dep.LagDays - f.Duration
			default:
				es = p.EarlyFinish + dep.LagDays
			}
			if es > f.EarlyStart {
				f.EarlyStart = es
			}
		}
		f.EarlyFinish = f.EarlyStart + f.Duration
		if f.EarlyFinish > finish {
			finish = f.EarlyFinish
		}
		floats[id] = f
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		f := floats[id]
		f.LateFinish = finish
		for _, dep := range g.Outgoing(id) {
			s := floats[dep.SuccessorTaskID]
			var lf int
			switch dep.DependencyType {
			case models.StartToStart:
				lf = s.LateStart - dep.LagDays + f.Duration
			case models.FinishToFinish:
				lf = s.LateFinish - dep.LagDays
			case models.StartToFinish:
				lf = s.LateFinish - dep.LagDays + f.Duration
			default:
				lf = s.LateStart - dep.LagDays
			}
			if lf < f.LateFinish {
				f.LateFinish = lf
			}
		}
		f.LateStart = f.LateFinish - f.Duration
		f.TotalFloat = f.LateStart - f.EarlyStart
		f.Critical = f.TotalFloat == 0
	}
	return floats, finish, order, nil
}
