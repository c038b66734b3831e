package schedule

import (
	"sort"

	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
)

// Direction selects which side of a task NeighborsOf walks
type Direction int

const (
	Successors Direction = iota
	Predecessors
)

// Graph is a read snapshot of one job's active tasks and dependencies.
// It is built per request and mutated only by the request that loaded it.
type Graph struct {
	Construction *models.Construction

	tasks    map[uint]*models.Task
	byNumber map[int]*models.Task
	ordered  []*models.Task
	out      map[uint][]*models.Dependency
	in       map[uint][]*models.Dependency
}

// NewGraph indexes tasks and the dependencies between them. Dependencies whose
// endpoints are not among tasks are ignored.
func NewGraph(c *models.Construction, tasks []models.Task, deps []models.Dependency) *Graph {
	g := &Graph{
		Construction: c,
		tasks:        make(map[uint]*models.Task, len(tasks)),
		byNumber:     make(map[int]*models.Task, len(tasks)),
		out:          make(map[uint][]*models.Dependency),
		in:           make(map[uint][]*models.Dependency),
	}
	for i := range tasks {
		t := &tasks[i]
		t.StartDate = calendar.Day(t.StartDate)
		t.EndDate = calendar.Day(t.EndDate)
		g.tasks[t.ID] = t
		g.byNumber[t.TaskNumber] = t
		g.ordered = append(g.ordered, t)
	}
	sort.SliceStable(g.ordered, func(i, j int) bool { return scheduleLess(g.ordered[i], g.ordered[j]) })

	for i := range deps {
		d := &deps[i]
		if !d.IsActive() {
			continue
		}
		if _, ok := g.tasks[d.PredecessorTaskID]; !ok {
			continue
		}
		if _, ok := g.tasks[d.SuccessorTaskID]; !ok {
			continue
		}
		g.out[d.PredecessorTaskID] = append(g.out[d.PredecessorTaskID], d)
		g.in[d.SuccessorTaskID] = append(g.in[d.SuccessorTaskID], d)
	}
	for id := range g.out {
		g.sortEdges(g.out[id], Successors)
	}
	for id := range g.in {
		g.sortEdges(g.in[id], Predecessors)
	}
	return g
}

// LoadGraph reads a job's tasks and active dependencies. It fails with
// NotFoundError when the job is missing or has no tasks.
func LoadGraph(tx *gorm.DB, constructionID uint) (*Graph, error) {
	g, err := loadGraph(tx, constructionID)
	if err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, &NotFoundError{What: "tasks for construction", ID: constructionID}
	}
	return g, nil
}

func loadGraph(tx *gorm.DB, constructionID uint) (*Graph, error) {
	c, err := db.GetConstruction(tx, constructionID)
	if err != nil {
		return nil, storeError(err, "construction", constructionID)
	}
	tasks, err := db.ListTasks(tx, constructionID)
	if err != nil {
		return nil, err
	}
	deps, err := db.ListActiveDependencies(tx, constructionID)
	if err != nil {
		return nil, err
	}
	return NewGraph(c, tasks, deps), nil
}

// scheduleLess orders tasks by sequence_order then task_number
func scheduleLess(a, b *models.Task) bool {
	if a.SequenceOrder != b.SequenceOrder {
		return a.SequenceOrder < b.SequenceOrder
	}
	return a.TaskNumber < b.TaskNumber
}

// sortEdges orders by creation, then by the neighbour's task number
func (g *Graph) sortEdges(edges []*models.Dependency, dir Direction) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		na, nb := g.neighbor(a, dir).TaskNumber, g.neighbor(b, dir).TaskNumber
		if na != nb {
			return na < nb
		}
		return a.ID < b.ID
	})
}

func (g *Graph) neighbor(d *models.Dependency, dir Direction) *models.Task {
	if dir == Successors {
		return g.tasks[d.SuccessorTaskID]
	}
	return g.tasks[d.PredecessorTaskID]
}

// Len returns the number of tasks
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Task returns the task with id
func (g *Graph) Task(id uint) (*models.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// TaskByNumber returns the task with the given job-local number
func (g *Graph) TaskByNumber(n int) (*models.Task, bool) {
	t, ok := g.byNumber[n]
	return t, ok
}

// Tasks returns all tasks in schedule order
func (g *Graph) Tasks() []*models.Task {
	return g.ordered
}

// Outgoing returns the active dependencies where id is the predecessor
func (g *Graph) Outgoing(id uint) []*models.Dependency {
	return g.out[id]
}

// Incoming returns the active dependencies where id is the successor
func (g *Graph) Incoming(id uint) []*models.Dependency {
	return g.in[id]
}

// NeighborsOf returns the tasks adjacent to id in dependency creation order,
// ties broken by task number
func (g *Graph) NeighborsOf(id uint, dir Direction) []*models.Task {
	edges := g.out[id]
	if dir == Predecessors {
		edges = g.in[id]
	}
	out := make([]*models.Task, 0, len(edges))
	for _, d := range edges {
		out = append(out, g.neighbor(d, dir))
	}
	return out
}

// AddTask adds a task created during the current request
func (g *Graph) AddTask(t *models.Task) {
	g.tasks[t.ID] = t
	g.byNumber[t.TaskNumber] = t
	g.ordered = append(g.ordered, t)
	sort.SliceStable(g.ordered, func(i, j int) bool { return scheduleLess(g.ordered[i], g.ordered[j]) })
}

// AddDependency adds an edge created during the current request
func (g *Graph) AddDependency(d *models.Dependency) {
	g.out[d.PredecessorTaskID] = append(g.out[d.PredecessorTaskID], d)
	g.in[d.SuccessorTaskID] = append(g.in[d.SuccessorTaskID], d)
	g.sortEdges(g.out[d.PredecessorTaskID], Successors)
	g.sortEdges(g.in[d.SuccessorTaskID], Predecessors)
}

// RemoveDependency drops an edge from the snapshot
func (g *Graph) RemoveDependency(d *models.Dependency) {
	g.out[d.PredecessorTaskID] = without(g.out[d.PredecessorTaskID], d.ID)
	g.in[d.SuccessorTaskID] = without(g.in[d.SuccessorTaskID], d.ID)
}

func without(edges []*models.Dependency, id uint) []*models.Dependency {
	out := edges[:0]
	for _, d := range edges {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// Descendants returns every task reachable from the roots along successor
// edges, excluding the roots themselves, in BFS order
func (g *Graph) Descendants(roots ...uint) []uint {
	seen := make(map[uint]bool, len(roots))
	for _, r := range roots {
		seen[r] = true
	}
	queue := append([]uint(nil), roots...)
	var out []uint
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, d := range g.out[id] {
			if !seen[d.SuccessorTaskID] {
				seen[d.SuccessorTaskID] = true
				out = append(out, d.SuccessorTaskID)
				queue = append(queue, d.SuccessorTaskID)
			}
		}
	}
	return out
}

// PathBetween returns the task ids of a successor path from one task to
// another, or nil when to is unreachable
func (g *Graph) PathBetween(from, to uint) []uint {
	if from == to {
		return []uint{from}
	}
	parent := map[uint]uint{from: from}
	queue := []uint{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, d := range g.out[id] {
			next := d.SuccessorTaskID
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = id
			if next == to {
				path := []uint{to}
				for cur := to; cur != from; {
					cur = parent[cur]
					path = append([]uint{cur}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Frozen returns the tasks downstream of any held task. They keep their dates
// until the hold is released.
func (g *Graph) Frozen() map[uint]bool {
	var held []uint
	for _, t := range g.ordered {
		if t.IsHeld() {
			held = append(held, t.ID)
		}
	}
	frozen := make(map[uint]bool)
	for _, id := range g.Descendants(held...) {
		frozen[id] = true
	}
	return frozen
}

// numbers maps task ids to task numbers
func (g *Graph) numbers(ids []uint) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		if t, ok := g.tasks[id]; ok {
			out[i] = t.TaskNumber
		}
	}
	return out
}
