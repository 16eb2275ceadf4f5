package domain

import "time"

// TaskComplexity classifies how much decomposition a request needs.
type TaskComplexity string

const (
	ComplexitySimple  TaskComplexity = "simple"
	ComplexityMedium  TaskComplexity = "medium"
	ComplexityComplex TaskComplexity = "complex"
)

// ParseComplexity maps a raw classifier label to a TaskComplexity.
// Out-of-enum labels default to medium.
func ParseComplexity(raw string) TaskComplexity {
	switch TaskComplexity(raw) {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return TaskComplexity(raw)
	default:
		return ComplexityMedium
	}
}

// TaskStatus tracks a task's lifecycle within a single turn.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one node of a task tree. The tree is built once per turn by the
// decomposer, owned by the coordinator for that turn, and discarded after
// the turn completes. Dependencies reference sibling subtask ids only; an
// id outside the sibling set never blocks planning.
type Task struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Complexity   TaskComplexity `json:"complexity"`
	Subtasks     []*Task        `json:"subtasks,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Status       TaskStatus     `json:"status"`
	Result       string         `json:"result,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewTask creates a pending task with a fresh id.
func NewTask(name, description string, complexity TaskComplexity) *Task {
	now := time.Now()
	return &Task{
		ID:          NewID(),
		Name:        name,
		Description: description,
		Complexity:  complexity,
		Status:      TaskPending,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Subtask returns the subtask with the given id, or nil.
func (t *Task) Subtask(id string) *Task {
	for _, s := range t.Subtasks {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SetStatus updates the task status and touch time.
func (t *Task) SetStatus(s TaskStatus) {
	t.Status = s
	t.UpdatedAt = time.Now()
}
