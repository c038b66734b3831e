package schedule

import "sort"

// Resolve returns the roots and every task reachable from them along
// successor edges, predecessors before successors. Each task appears once.
// A cycle within the reachable set fails with CyclicDependencyError.
func Resolve(g *Graph, roots ...uint) ([]uint, error) {
	reach := make(map[uint]bool)
	var queue []uint
	for _, r := range roots {
		if _, ok := g.Task(r); ok && !reach[r] {
			reach[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, d := range g.Outgoing(id) {
			if !reach[d.SuccessorTaskID] {
				reach[d.SuccessorTaskID] = true
				queue = append(queue, d.SuccessorTaskID)
			}
		}
	}

	indegree := make(map[uint]int, len(reach))
	for id := range reach {
		for _, d := range g.Incoming(id) {
			if reach[d.PredecessorTaskID] {
				indegree[id]++
			}
		}
	}

	var ready []uint
	for id := range reach {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	g.sortIDs(ready)

	order := make([]uint, 0, len(reach))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var released []uint
		for _, d := range g.Outgoing(id) {
			s := d.SuccessorTaskID
			indegree[s]--
			if indegree[s] == 0 {
				released = append(released, s)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			g.sortIDs(ready)
		}
	}

	if len(order) < len(reach) {
		done := make(map[uint]bool, len(order))
		for _, id := range order {
			done[id] = true
		}
		var rest []uint
		for id := range reach {
			if !done[id] {
				rest = append(rest, id)
			}
		}
		g.sortIDs(rest)
		cycle := g.findCycle(rest)
		return nil, &CyclicDependencyError{Cycle: g.numbers(cycle), TaskIDs: cycle}
	}
	return order, nil
}

// ResolveAll orders every task of the graph
func ResolveAll(g *Graph) ([]uint, error) {
	ids := make([]uint, 0, g.Len())
	for _, t := range g.Tasks() {
		ids = append(ids, t.ID)
	}
	return Resolve(g, ids...)
}

func (g *Graph) sortIDs(ids []uint) {
	sort.SliceStable(ids, func(i, j int) bool {
		return scheduleLess(g.tasks[ids[i]], g.tasks[ids[j]])
	})
}

// findCycle walks successor edges among candidates until it revisits a task
// on the current path. The returned path repeats its first task at the end.
func (g *Graph) findCycle(candidates []uint) []uint {
	in := make(map[uint]bool, len(candidates))
	for _, id := range candidates {
		in[id] = true
	}
	const (
		white = iota
		grey
		black
	)
	color := make(map[uint]int, len(candidates))
	var stack []uint

	var visit func(id uint) []uint
	visit = func(id uint) []uint {
		color[id] = grey
		stack = append(stack, id)
		for _, d := range g.out[id] {
			next := d.SuccessorTaskID
			if !in[next] {
				continue
			}
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						cycle := append([]uint(nil), stack[i:]...)
						return append(cycle, next)
					}
				}
			case white:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range candidates {
		if color[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}
