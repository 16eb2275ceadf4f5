package coordinate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"parley/internal/domain"
)

// intentSchema constrains the intent classification output.
var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"intent": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"entities": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["intent"]
}`)

type intentResult struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   []string `json:"entities"`
}

// Classifier maps user messages to coarse intents.
type Classifier struct {
	provider  domain.LLMProvider
	logger    *slog.Logger
	threshold float64
}

// NewClassifier creates a Classifier. Intents below threshold confidence are
// demoted to casual_chat.
func NewClassifier(provider domain.LLMProvider, threshold float64, logger *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Classifier{provider: provider, logger: logger, threshold: threshold}
}

// Classify returns the intent for one message given accumulated context.
// Any failure or unrecognized label degrades to casual_chat, never an error.
func (c *Classifier) Classify(ctx context.Context, message string, turnContext map[string]any) domain.Intent {
	intent, err := c.classify(ctx, message, turnContext)
	if err != nil {
		c.logger.Debug("intent classification failed, defaulting to casual_chat",
			"error", err,
		)
		return domain.DefaultIntent(0.5)
	}
	return intent
}

func (c *Classifier) classify(ctx context.Context, message string, turnContext map[string]any) (domain.Intent, error) {
	prompt := message
	if summary, ok := turnContext["context_summary"].(string); ok && summary != "" {
		prompt = fmt.Sprintf("上下文: %s\n\n消息: %s", summary, message)
	}

	req := domain.GenerateRequest{
		SystemPrompt: "判断用户消息的意图: casual_chat、information_query、complex_task 或 task_execution。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: prompt},
		},
		Temperature: 0.1,
	}

	var result intentResult
	if err := c.provider.GenerateStructured(ctx, req, intentSchema, &result); err != nil {
		return domain.Intent{}, err
	}

	intent := domain.Intent{
		Type:       domain.ParseIntentType(result.Intent),
		Confidence: result.Confidence,
		Entities:   result.Entities,
		Context:    turnContext,
	}
	if intent.Confidence == 0 {
		intent.Confidence = 0.5
	}
	if intent.Type != domain.IntentCasualChat && intent.Confidence < c.threshold {
		c.logger.Debug("intent below confidence threshold, demoting to casual_chat",
			"intent", intent.Type,
			"confidence", intent.Confidence,
		)
		intent.Type = domain.IntentCasualChat
	}
	return intent, nil
}

// ClassifyBatch classifies messages concurrently, preserving input order.
// A failed item never fails the batch: its slot degrades to a zero-confidence
// casual_chat intent.
func (c *Classifier) ClassifyBatch(ctx context.Context, messages []string) []domain.Intent {
	intents := make([]domain.Intent, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	for i, msg := range messages {
		g.Go(func() error {
			intent, err := c.classify(gctx, msg, nil)
			if err != nil {
				intents[i] = domain.DefaultIntent(0.0)
				return nil
			}
			intents[i] = intent
			return nil
		})
	}
	// The closures never return errors; failures are recorded in place.
	_ = g.Wait()

	return intents
}
