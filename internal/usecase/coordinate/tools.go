package coordinate

import (
	"context"
	"log/slog"
	"strings"

	"parley/internal/domain"
)

// toolTriggers maps tool names to the message keywords that trigger them.
var toolTriggers = map[string][]string{
	"memory":     {"记住", "上次", "之前"},
	"knowledge":  {"文档", "资料", "知识库"},
	"web_search": {"搜索", "查询", "最新"},
	"mcp":        {"文件", "执行", "命令", "计算"},
}

// complexTaskTools are always dispatched for complex-task turns regardless
// of keywords.
var complexTaskTools = []string{"memory", "knowledge"}

// ToolSet is the best-effort augmentation path: keyword-triggered tool
// invocations whose failures are isolated per tool and never abort the turn.
type ToolSet struct {
	tools  []domain.Tool
	logger *slog.Logger
}

// NewToolSet creates a ToolSet over the given tools.
func NewToolSet(logger *slog.Logger, tools ...domain.Tool) *ToolSet {
	return &ToolSet{tools: tools, logger: logger}
}

// Dispatch runs every triggered tool and collects results keyed by tool
// name. A tool failure is recorded as {"error": ...} in its slot; sibling
// results are kept. An empty map means nothing was triggered.
func (ts *ToolSet) Dispatch(ctx context.Context, message string, intent domain.IntentType) map[string]any {
	results := map[string]any{}

	for _, tool := range ts.tools {
		if !ts.triggered(tool.Name(), message, intent) {
			continue
		}

		out, err := ts.run(ctx, tool, message)
		if err != nil {
			ts.logger.Warn("tool dispatch failed",
				"tool", tool.Name(),
				"error", err,
			)
			results[tool.Name()] = map[string]any{"error": err.Error()}
			continue
		}
		results[tool.Name()] = out
	}

	return results
}

func (ts *ToolSet) triggered(name, message string, intent domain.IntentType) bool {
	if intent == domain.IntentComplexTask {
		for _, n := range complexTaskTools {
			if n == name {
				return true
			}
		}
	}
	// Bridged MCP tools are named mcp_<server>_<tool>; they all share the
	// mcp trigger set.
	if strings.HasPrefix(name, "mcp_") {
		name = "mcp"
	}
	for _, kw := range toolTriggers[name] {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// run shields the turn from a misbehaving tool, converting panics into
// ordinary errors.
func (ts *ToolSet) run(ctx context.Context, tool domain.Tool, message string) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewDomainError("ToolSet.run", domain.ErrToolFailure, tool.Name()+" panicked")
		}
	}()
	return tool.Execute(ctx, map[string]any{"query": message})
}
