package planning

import (
	"log/slog"
	"testing"

	"parley/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func taskWithSubtasks(names ...string) (*domain.Task, map[string]*domain.Task) {
	root := domain.NewTask("root", "", domain.ComplexityComplex)
	byName := map[string]*domain.Task{}
	for _, n := range names {
		st := domain.NewTask(n, "", domain.ComplexitySimple)
		root.Subtasks = append(root.Subtasks, st)
		byName[n] = st
	}
	return root, byName
}

func TestPlanNoSubtasks(t *testing.T) {
	p := NewPlanner(discardLogger())
	task := domain.NewTask("solo", "", domain.ComplexitySimple)

	got := p.Plan(task)
	if len(got) != 1 || got[0] != task.ID {
		t.Errorf("Plan = %v, want [%s]", got, task.ID)
	}
}

func TestPlanIsPermutation(t *testing.T) {
	p := NewPlanner(discardLogger())
	root, byName := taskWithSubtasks("a", "b", "c", "d")
	byName["c"].Dependencies = []string{byName["a"].ID}
	byName["d"].Dependencies = []string{byName["b"].ID, byName["c"].ID}

	got := p.Plan(root)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	seen := map[string]bool{}
	for _, id := range got {
		if seen[id] {
			t.Fatalf("duplicate id %s in plan %v", id, got)
		}
		seen[id] = true
	}
	for name, st := range byName {
		if !seen[st.ID] {
			t.Errorf("subtask %s missing from plan", name)
		}
	}
}

func TestPlanRespectsDependencies(t *testing.T) {
	p := NewPlanner(discardLogger())
	root, byName := taskWithSubtasks("gather", "analyze", "report")
	byName["analyze"].Dependencies = []string{byName["gather"].ID}
	byName["report"].Dependencies = []string{byName["analyze"].ID}

	got := p.Plan(root)
	pos := map[string]int{}
	for i, id := range got {
		pos[id] = i
	}
	if pos[byName["gather"].ID] > pos[byName["analyze"].ID] {
		t.Error("gather must precede analyze")
	}
	if pos[byName["analyze"].ID] > pos[byName["report"].ID] {
		t.Error("analyze must precede report")
	}
}

func TestPlanStaleDependencyDoesNotBlock(t *testing.T) {
	p := NewPlanner(discardLogger())
	root, byName := taskWithSubtasks("a", "b")
	byName["b"].Dependencies = []string{"01ZZZZZZZZZZZZZZZZZZZZZZZZ"} // not a sibling

	got := p.Plan(root)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Both are schedulable in the first pass, so generation order holds.
	if got[0] != byName["a"].ID || got[1] != byName["b"].ID {
		t.Errorf("plan = %v", got)
	}
}

func TestPlanTerminatesOnCycle(t *testing.T) {
	p := NewPlanner(discardLogger())
	root, byName := taskWithSubtasks("a", "b")
	byName["a"].Dependencies = []string{byName["b"].ID}
	byName["b"].Dependencies = []string{byName["a"].ID}

	got := p.Plan(root)
	if len(got) != 2 {
		t.Fatalf("cycle plan len = %d, want 2", len(got))
	}
	// The force-scheduled node is the lowest remaining id, which is the
	// earliest-generated subtask.
	if got[0] != byName["a"].ID {
		t.Errorf("expected lowest id %s first, got %v", byName["a"].ID, got)
	}
}

func TestPlanCycleWithTail(t *testing.T) {
	p := NewPlanner(discardLogger())
	root, byName := taskWithSubtasks("a", "b", "c")
	byName["a"].Dependencies = []string{byName["b"].ID}
	byName["b"].Dependencies = []string{byName["a"].ID}
	byName["c"].Dependencies = []string{byName["b"].ID}

	got := p.Plan(root)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	pos := map[string]int{}
	for i, id := range got {
		pos[id] = i
	}
	if pos[byName["c"].ID] < pos[byName["b"].ID] {
		t.Error("c depends on b and must come after it")
	}
}
