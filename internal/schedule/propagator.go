package schedule

import (
	"time"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/models"
)

// Propagator re-dates tasks from their predecessors on a working-day calendar
type Propagator struct {
	Workdays calendar.Workdays
	// Floor is the job start; no computed start may precede it
	Floor time.Time
}

// Outcome lists what a propagation pass did, each in processing order
type Outcome struct {
	Changed []uint
	Blocked []uint
	Clamped []uint
}

// IsAnchor reports whether t keeps its dates during propagation
func IsAnchor(g *Graph, t *models.Task) bool {
	return t.IsLocked() || t.IsHeld() || len(g.Incoming(t.ID)) == 0
}

// ConstraintStart is the earliest start dep allows for succ
func (p Propagator) ConstraintStart(g *Graph, dep *models.Dependency, succ *models.Task) (time.Time, error) {
	pred := g.tasks[dep.PredecessorTaskID]
	switch dep.DependencyType {
	case models.StartToStart:
		return p.Workdays.Add(pred.StartDate, dep.LagDays)
	case models.FinishToFinish:
		end, err := p.Workdays.Add(pred.EndDate, dep.LagDays)
		if err != nil {
			return time.Time{}, err
		}
		return p.Workdays.Add(end, -succ.DurationDays)
	case models.StartToFinish:
		end, err := p.Workdays.Add(pred.StartDate, dep.LagDays)
		if err != nil {
			return time.Time{}, err
		}
		return p.Workdays.Add(end, -succ.DurationDays)
	default:
		return p.Workdays.Add(pred.EndDate, dep.LagDays)
	}
}

// EarliestStart is the latest constraint over t's active predecessors.
// ok is false when t has none.
func (p Propagator) EarliestStart(g *Graph, t *models.Task) (start time.Time, ok bool, err error) {
	for _, dep := range g.Incoming(t.ID) {
		c, err := p.ConstraintStart(g, dep, t)
		if err != nil {
			return time.Time{}, false, err
		}
		if !ok || c.After(start) {
			start, ok = c, true
		}
	}
	return start, ok, nil
}

// Place snaps start to a working day, clamps it to the floor and derives the end
func (p Propagator) Place(start time.Time, duration int) (newStart, newEnd time.Time, clamped bool, err error) {
	newStart, err = p.Workdays.Next(start)
	if err != nil {
		return
	}
	if floor := calendar.Day(p.Floor); !p.Floor.IsZero() && newStart.Before(floor) {
		clamped = true
		if newStart, err = p.Workdays.Next(floor); err != nil {
			return
		}
	}
	newEnd, err = p.Workdays.Add(newStart, duration)
	return
}

// Propagate recomputes each task of order from its predecessors, skipping
// fixed ids, anchors and tasks frozen by a hold. It updates tasks in place.
// Keys of fixed are the edited tasks; they are never reported as blocked.
func (p Propagator) Propagate(g *Graph, order []uint, fixed map[uint]bool) (*Outcome, error) {
	frozen := g.Frozen()
	out := &Outcome{}
	for _, id := range order {
		keep, edited := fixed[id]
		if keep {
			continue
		}
		t := g.tasks[id]
		if frozen[id] {
			if !edited {
				out.Blocked = append(out.Blocked, id)
			}
			continue
		}
		if IsAnchor(g, t) {
			continue
		}
		earliest, _, err := p.EarliestStart(g, t)
		if err != nil {
			return nil, err
		}
		start, end, clamped, err := p.Place(earliest, t.DurationDays)
		if err != nil {
			return nil, err
		}
		if clamped {
			out.Clamped = append(out.Clamped, id)
		}
		if !start.Equal(t.StartDate) || !end.Equal(t.EndDate) {
			t.StartDate, t.EndDate = start, end
			out.Changed = append(out.Changed, id)
		}
	}
	return out, nil
}
