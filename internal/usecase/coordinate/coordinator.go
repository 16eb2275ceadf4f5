package coordinate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"parley/internal/domain"
	"parley/internal/infra/tracer"
	"parley/internal/usecase/planning"
)

const casualPersona = "你是一个友好、乐于助人的智能助手。用自然、简洁的语气回答用户。"

// Coordinator is the turn-level controller. It classifies intent, routes
// the turn through the casual, query, or task branch, and aggregates
// sub-task results into one response.
type Coordinator struct {
	provider   domain.LLMProvider
	registry   *Registry
	classifier *Classifier
	decomposer *planning.Decomposer
	planner    *planning.Planner
	knowledge  domain.KnowledgeStore
	search     domain.WebSearcher
	toolset    *ToolSet
	logger     *slog.Logger
	maxResults int
}

// Options carries the coordinator's collaborators. Knowledge, Search, and
// Tools may be nil; the corresponding paths degrade gracefully.
type Options struct {
	Provider   domain.LLMProvider
	Registry   *Registry
	Classifier *Classifier
	Decomposer *planning.Decomposer
	Planner    *planning.Planner
	Knowledge  domain.KnowledgeStore
	Search     domain.WebSearcher
	Tools      *ToolSet
	Logger     *slog.Logger
	MaxResults int
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Coordinator{
		provider:   opts.Provider,
		registry:   opts.Registry,
		classifier: opts.Classifier,
		decomposer: opts.Decomposer,
		planner:    opts.Planner,
		knowledge:  opts.Knowledge,
		search:     opts.Search,
		toolset:    opts.Tools,
		logger:     opts.Logger,
		maxResults: maxResults,
	}
}

// Respond runs one turn's state machine:
// START -> INTENT_CLASSIFIED -> {CASUAL | QUERY | TASK} -> RESPONDED.
// Branch failures degrade to a zero-confidence error response; an error is
// returned only when the state carries no user message at all.
func (c *Coordinator) Respond(ctx context.Context, state *domain.AgentState) (*domain.AgentResponse, error) {
	msg := state.LastUserMessage()
	if msg == nil {
		return nil, domain.NewDomainError("Coordinator.Respond", domain.ErrInvalidInput, "no user message in state")
	}

	ctx, span := tracer.StartSpan(ctx, "coordinate.respond")
	defer span.End()

	intent := c.classifier.Classify(ctx, msg.Content, state.Context)
	span.SetAttributes(
		tracer.StringAttr("intent.type", string(intent.Type)),
	)

	var toolResults map[string]any
	if c.toolset != nil {
		toolResults = c.toolset.Dispatch(ctx, msg.Content, intent.Type)
	}

	var (
		resp *domain.AgentResponse
		err  error
	)
	switch intent.Type {
	case domain.IntentInfoQuery:
		resp, err = c.handleQuery(ctx, msg.Content)
	case domain.IntentComplexTask, domain.IntentTaskExec:
		resp, err = c.handleTask(ctx, state, msg.Content)
	default:
		resp, err = c.handleCasual(ctx, state, msg.Content)
	}
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Error("turn branch failed",
			"intent", intent.Type,
			"error", err,
		)
		resp = &domain.AgentResponse{
			Content:    "处理消息时发生错误: " + err.Error(),
			Confidence: 0.0,
			Metadata:   map[string]any{"error": err.Error()},
		}
	} else {
		tracer.SetOK(span)
	}

	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["intent"] = string(intent.Type)
	resp.Metadata["intent_confidence"] = intent.Confidence
	if len(toolResults) > 0 {
		resp.Metadata["tool_results"] = toolResults
	}

	return resp, nil
}

// handleCasual generates directly with a fixed persona, no sub-dispatch.
func (c *Coordinator) handleCasual(ctx context.Context, state *domain.AgentState, message string) (*domain.AgentResponse, error) {
	msgs := make([]domain.ChatMessage, 0, 8)
	for _, m := range state.RecentMessages(6) {
		role := domain.RoleUser
		if m.Type == domain.MessageAgentResponse {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.ChatMessage{Role: role, Content: m.Content})
	}
	if len(msgs) == 0 {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: message})
	}

	content, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: casualPersona,
		Messages:     msgs,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	return &domain.AgentResponse{Content: content, Confidence: 0.9}, nil
}

// handleQuery answers from the knowledge base, falling back to a web search
// when the lookup signals no relevant information. The fallback is the only
// event recorded in tool_calls for this branch.
func (c *Coordinator) handleQuery(ctx context.Context, query string) (*domain.AgentResponse, error) {
	var (
		sources   []string
		toolCalls []domain.ToolCall
	)

	formatted := ""
	if c.knowledge != nil {
		var err error
		formatted, err = c.knowledge.SearchFormatted(ctx, query, 3)
		if err != nil {
			c.logger.Warn("knowledge lookup failed, falling back to web search",
				"error", err,
			)
			formatted = domain.NoRelevantInformation
		}
	} else {
		formatted = domain.NoRelevantInformation
	}

	if strings.HasPrefix(formatted, domain.NoRelevantInformation) {
		call := domain.ToolCall{
			ToolName:   "web_search",
			Parameters: map[string]any{"query": query},
		}
		if c.search != nil {
			results, err := c.search.Search(ctx, query, c.maxResults)
			if err != nil {
				call.Error = err.Error()
			} else {
				call.Result = results
				for _, r := range results {
					sources = append(sources, fmt.Sprintf("%s\n%s (%s)", r.Title, r.Snippet, r.URL))
				}
			}
		} else {
			call.Error = "web search unavailable"
		}
		toolCalls = append(toolCalls, call)
	} else {
		sources = append(sources, formatted)
	}

	prompt := query
	if len(sources) > 0 {
		prompt = fmt.Sprintf("参考信息:\n%s\n\n问题: %s", strings.Join(sources, "\n---\n"), query)
	}

	content, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "基于提供的参考信息回答用户的问题。信息不足时如实说明。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	return &domain.AgentResponse{
		Content:    content,
		ToolCalls:  toolCalls,
		Confidence: 0.8,
	}, nil
}

// handleTask decomposes the request, short-circuits when required
// information is missing, then executes subtasks in planned order.
func (c *Coordinator) handleTask(ctx context.Context, state *domain.AgentState, request string) (*domain.AgentResponse, error) {
	task := c.decomposer.Decompose(ctx, request)

	if missing := c.checkMissingInfo(ctx, request); len(missing) > 0 {
		return &domain.AgentResponse{
			Content:    "为了更好地帮助您，请提供以下信息：\n- " + strings.Join(missing, "\n- "),
			NextAction: domain.NextActionRequestInfo,
			Confidence: 0.7,
			Metadata:   map[string]any{"missing_info": missing},
		}, nil
	}

	state.CurrentTask = task

	if len(task.Subtasks) == 0 {
		return c.executeSingle(ctx, state, task)
	}

	order := c.planner.Plan(task)
	results := make([]string, 0, len(order))
	for _, id := range order {
		st := task.Subtask(id)
		if st == nil {
			continue
		}
		results = append(results, st.Name+": "+c.executeSubtask(ctx, state, st))
	}
	task.SetStatus(domain.TaskCompleted)
	state.CurrentTask = task

	summary, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "将各子任务的结果汇总为一份连贯的回复。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: fmt.Sprintf("请求: %s\n\n子任务结果:\n%s", request, strings.Join(results, "\n"))},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}

	return &domain.AgentResponse{
		Content:    summary,
		Confidence: 0.8,
		Metadata: map[string]any{
			"task_id":       task.ID,
			"subtask_count": len(task.Subtasks),
		},
	}, nil
}

// executeSingle runs a no-subtask task through the same handler-selection
// path as a subtask and returns the handler's response as-is, preserving
// specialist metadata.
func (c *Coordinator) executeSingle(ctx context.Context, state *domain.AgentState, task *domain.Task) (*domain.AgentResponse, error) {
	task.SetStatus(domain.TaskInProgress)

	if specialist, ok := c.registry.SelectFor(task); ok {
		resp, err := specialist.Process(ctx, state)
		if err == nil {
			task.Result = resp.Content
			task.SetStatus(domain.TaskCompleted)
			return resp, nil
		}
		c.logger.Warn("specialist failed, falling back to direct generation",
			"specialist", specialist.Name(),
			"task", task.ID,
			"error", err,
		)
	}

	content, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "完成用户交给你的任务，直接给出结果。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: task.Description},
		},
		Temperature: 0.5,
	})
	if err != nil {
		task.SetStatus(domain.TaskFailed)
		return nil, err
	}

	task.Result = content
	task.SetStatus(domain.TaskCompleted)
	return &domain.AgentResponse{
		Content:    content,
		Confidence: 0.8,
		Metadata:   map[string]any{"task_id": task.ID},
	}, nil
}

// executeSubtask dispatches one subtask to the first specialist that
// volunteers, falling back to direct generation. Failures mark the subtask
// failed and surface as its result text; they never abort the plan.
func (c *Coordinator) executeSubtask(ctx context.Context, state *domain.AgentState, st *domain.Task) string {
	ctx, span := tracer.StartSpan(ctx, "coordinate.subtask",
		trace.WithAttributes(tracer.StringAttr("task.id", st.ID)),
	)
	defer span.End()

	st.SetStatus(domain.TaskInProgress)
	state.CurrentTask = st

	if specialist, ok := c.registry.SelectFor(st); ok {
		resp, err := specialist.Process(ctx, state)
		if err == nil {
			st.Result = resp.Content
			st.SetStatus(domain.TaskCompleted)
			tracer.SetOK(span)
			return resp.Content
		}
		tracer.RecordError(span, err)
		c.logger.Warn("specialist failed on subtask",
			"specialist", specialist.Name(),
			"subtask", st.ID,
			"error", err,
		)
		st.Result = "错误: " + err.Error()
		st.SetStatus(domain.TaskFailed)
		return st.Result
	}

	content, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "完成以下子任务，直接给出结果。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: st.Name + ": " + st.Description},
		},
		Temperature: 0.5,
	})
	if err != nil {
		tracer.RecordError(span, err)
		st.Result = "错误: " + err.Error()
		st.SetStatus(domain.TaskFailed)
		return st.Result
	}

	st.Result = content
	st.SetStatus(domain.TaskCompleted)
	tracer.SetOK(span)
	return content
}

// checkMissingInfo asks the model to emit the literal "无" token or a list
// of missing-information prompts. Any failure is fail-open: the task
// proceeds as if nothing were missing.
func (c *Coordinator) checkMissingInfo(ctx context.Context, request string) []string {
	out, err := c.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "判断完成该任务还缺少哪些必要信息。如果信息齐全，只输出“无”。否则每行列出一项缺失的信息。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: request},
		},
		Temperature: 0.3,
	})
	if err != nil {
		c.logger.Debug("missing-info check failed, proceeding",
			"error", err,
		)
		return nil
	}

	out = strings.TrimSpace(out)
	if out == "" || out == "无" {
		return nil
	}

	var missing []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" || line == "无" {
			continue
		}
		missing = append(missing, line)
	}
	return missing
}
