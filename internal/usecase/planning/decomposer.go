package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"parley/internal/domain"
	"parley/internal/infra/tracer"
)

// complexitySchema constrains the complexity classification output.
var complexitySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"complexity": {"type": "string", "enum": ["simple", "medium", "complex"]}
	},
	"required": ["complexity"]
}`)

// breakdownSchema constrains the structured task breakdown output.
// Subtask dependencies are sibling names; ids are assigned after generation.
var breakdownSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"description": {"type": "string"},
		"subtasks": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"description": {"type": "string"},
					"dependencies": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["name"]
			}
		}
	},
	"required": ["name", "subtasks"]
}`)

type complexityResult struct {
	Complexity string `json:"complexity"`
}

type breakdownResult struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Subtasks    []breakdownSubtask `json:"subtasks"`
}

type breakdownSubtask struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// Decomposer turns a free-form request into a task tree.
type Decomposer struct {
	provider    domain.LLMProvider
	logger      *slog.Logger
	maxSubtasks int
}

// NewDecomposer creates a Decomposer. maxSubtasks caps breakdown breadth;
// values <= 0 fall back to 10.
func NewDecomposer(provider domain.LLMProvider, maxSubtasks int, logger *slog.Logger) *Decomposer {
	if maxSubtasks <= 0 {
		maxSubtasks = 10
	}
	return &Decomposer{provider: provider, logger: logger, maxSubtasks: maxSubtasks}
}

// Decompose builds a task tree for the request. It never fails: any
// transport or parse fault degrades to a single-node simple task wrapping
// the original request verbatim.
func (d *Decomposer) Decompose(ctx context.Context, request string) *domain.Task {
	ctx, span := tracer.StartSpan(ctx, "planning.decompose")
	defer span.End()

	complexity := d.classifyComplexity(ctx, request)
	span.SetAttributes(tracer.StringAttr("task.complexity", string(complexity)))

	if complexity == domain.ComplexitySimple {
		return singleNode(request)
	}

	task, err := d.breakdown(ctx, request, complexity)
	if err != nil {
		tracer.RecordError(span, err)
		d.logger.Warn("task breakdown failed, using single-node task",
			"error", err,
		)
		return singleNode(request)
	}

	tracer.SetOK(span)
	span.SetAttributes(tracer.IntAttr("task.subtasks", len(task.Subtasks)))
	return task
}

// classifyComplexity asks for a single complexity label. Anything that does
// not parse cleanly into the enum defaults to medium.
func (d *Decomposer) classifyComplexity(ctx context.Context, request string) domain.TaskComplexity {
	req := domain.GenerateRequest{
		SystemPrompt: "你是一个任务复杂度分类器。评估用户请求需要多少分解工作。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: fmt.Sprintf("请求: %s\n\n请将该请求分类为 simple、medium 或 complex。", request)},
		},
		Temperature: 0.1,
	}

	var result complexityResult
	if err := d.provider.GenerateStructured(ctx, req, complexitySchema, &result); err != nil {
		d.logger.Debug("complexity classification failed, defaulting to medium",
			"error", err,
		)
		return domain.ComplexityMedium
	}
	return domain.ParseComplexity(result.Complexity)
}

// breakdown requests a structured decomposition and assembles the tree.
// Dependency names are rewritten to sibling ids; a name with no matching
// sibling is dropped, not an error.
func (d *Decomposer) breakdown(ctx context.Context, request string, complexity domain.TaskComplexity) (*domain.Task, error) {
	req := domain.GenerateRequest{
		SystemPrompt: fmt.Sprintf(
			"你是一个任务规划器。将请求分解为最多 %d 个子任务。每个子任务包含 name、description 和 dependencies（依赖的兄弟子任务的 name 列表）。",
			d.maxSubtasks,
		),
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: request},
		},
		Temperature: 0.3,
	}

	var result breakdownResult
	if err := d.provider.GenerateStructured(ctx, req, breakdownSchema, &result); err != nil {
		return nil, err
	}
	if result.Name == "" && len(result.Subtasks) == 0 {
		return nil, domain.NewDomainError("Decomposer.breakdown", domain.ErrParse, "empty breakdown")
	}

	root := domain.NewTask(result.Name, result.Description, complexity)
	if root.Name == "" {
		root.Name = request
	}

	subtasks := result.Subtasks
	if len(subtasks) > d.maxSubtasks {
		subtasks = subtasks[:d.maxSubtasks]
	}

	// First pass assigns ids in generation order, second pass resolves
	// dependency names against the sibling set.
	nameToID := make(map[string]string, len(subtasks))
	for _, st := range subtasks {
		child := domain.NewTask(st.Name, st.Description, domain.ComplexitySimple)
		nameToID[st.Name] = child.ID
		root.Subtasks = append(root.Subtasks, child)
	}
	for i, st := range subtasks {
		for _, depName := range st.Dependencies {
			id, ok := nameToID[depName]
			if !ok {
				d.logger.Debug("dropping unresolved dependency name",
					"subtask", st.Name,
					"dependency", depName,
				)
				continue
			}
			if id == root.Subtasks[i].ID {
				continue
			}
			root.Subtasks[i].Dependencies = append(root.Subtasks[i].Dependencies, id)
		}
	}

	return root, nil
}

func singleNode(request string) *domain.Task {
	return domain.NewTask(request, request, domain.ComplexitySimple)
}
