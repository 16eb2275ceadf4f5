package planning

import (
	"log/slog"

	"parley/internal/domain"
)

// Planner converts a task's dependency graph into a linear execution order.
type Planner struct {
	logger *slog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(logger *slog.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan returns a topological order over the task's subtask ids.
//
// Each pass schedules every subtask whose dependencies are already scheduled
// or reference ids outside the remaining set (a stale id cannot block
// progress). When a pass schedules nothing, the dependency graph has a
// cycle; the stall is broken by force-scheduling the lowest remaining id so
// the planner always terminates with every subtask scheduled exactly once.
// A task without subtasks plans to a single-element order holding its own id.
func (p *Planner) Plan(task *domain.Task) []string {
	if len(task.Subtasks) == 0 {
		return []string{task.ID}
	}

	remaining := make(map[string]*domain.Task, len(task.Subtasks))
	for _, s := range task.Subtasks {
		remaining[s.ID] = s
	}

	order := make([]string, 0, len(task.Subtasks))
	scheduled := make(map[string]bool, len(task.Subtasks))

	for len(remaining) > 0 {
		var ready []string
		// Iterate in generation order for a deterministic result.
		for _, s := range task.Subtasks {
			if _, ok := remaining[s.ID]; !ok {
				continue
			}
			if depsMet(s, scheduled, remaining) {
				ready = append(ready, s.ID)
			}
		}

		if len(ready) == 0 {
			forced := lowestID(remaining)
			p.logger.Warn("dependency cycle detected, force-scheduling subtask",
				"task", task.ID,
				"subtask", forced,
			)
			ready = append(ready, forced)
		}

		for _, id := range ready {
			order = append(order, id)
			scheduled[id] = true
			delete(remaining, id)
		}
	}

	return order
}

func depsMet(s *domain.Task, scheduled map[string]bool, remaining map[string]*domain.Task) bool {
	for _, dep := range s.Dependencies {
		if scheduled[dep] {
			continue
		}
		if _, pending := remaining[dep]; pending {
			return false
		}
	}
	return true
}

func lowestID(remaining map[string]*domain.Task) string {
	var lowest string
	for id := range remaining {
		if lowest == "" || id < lowest {
			lowest = id
		}
	}
	return lowest
}
