package specialist

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"parley/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeLLM scripts plain and structured generations.
type fakeLLM struct {
	text          string
	textErr       error
	structured    string
	structuredErr error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	return f.text, f.textErr
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, req domain.GenerateRequest, schema json.RawMessage, out any) error {
	if f.structuredErr != nil {
		return f.structuredErr
	}
	return json.Unmarshal([]byte(f.structured), out)
}

func stateWithTask(name, description string) *domain.AgentState {
	state := domain.NewAgentState()
	state.CurrentTask = domain.NewTask(name, description, domain.ComplexitySimple)
	return state
}

func TestTravelCanHandle(t *testing.T) {
	s := NewTravel(&fakeLLM{}, discardLogger())

	cases := []struct {
		name string
		want bool
	}{
		{"制定周末旅行计划", true},
		{"规划度假安排", true},
		{"plan a travel itinerary", true},
		{"写一份季度报告", false},
	}
	for _, tc := range cases {
		if got := s.CanHandle(domain.NewTask(tc.name, "", domain.ComplexitySimple)); got != tc.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
	if s.CanHandle(nil) {
		t.Error("CanHandle(nil) = true")
	}
}

func TestTravelProcessCarriesTravelInfo(t *testing.T) {
	llm := &fakeLLM{
		text:       "第一天去西湖，第二天去灵隐寺。",
		structured: `{"destination": "杭州", "duration": "两天", "highlights": ["西湖", "灵隐寺"]}`,
	}
	s := NewTravel(llm, discardLogger())

	resp, err := s.Process(context.Background(), stateWithTask("周末旅行计划", "帮我制定一个周末旅行计划"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Metadata["agent_type"] != "travel" {
		t.Errorf("agent_type = %v", resp.Metadata["agent_type"])
	}
	info, ok := resp.Metadata["travel_info"].(travelInfo)
	if !ok {
		t.Fatalf("travel_info = %T", resp.Metadata["travel_info"])
	}
	if info.Destination != "杭州" {
		t.Errorf("destination = %q", info.Destination)
	}
}

func TestTravelProcessExtractionFailureStillResponds(t *testing.T) {
	llm := &fakeLLM{text: "行程安排...", structuredErr: domain.ErrParse}
	s := NewTravel(llm, discardLogger())

	resp, err := s.Process(context.Background(), stateWithTask("旅行", ""))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Content != "行程安排..." {
		t.Errorf("content = %q", resp.Content)
	}
	if _, ok := resp.Metadata["travel_info"]; !ok {
		t.Error("travel_info missing even as placeholder")
	}
}

func TestTravelProcessGenerationFailure(t *testing.T) {
	s := NewTravel(&fakeLLM{textErr: domain.ErrTransport}, discardLogger())

	if _, err := s.Process(context.Background(), stateWithTask("旅行", "")); err == nil {
		t.Error("expected error")
	}
}

// fakeKnowledge scripts formatted lookups.
type fakeKnowledge struct {
	formatted string
}

func (f *fakeKnowledge) Add(ctx context.Context, content, source string) (int, error) { return 0, nil }
func (f *fakeKnowledge) AddFile(ctx context.Context, path string) (int, error)        { return 0, nil }
func (f *fakeKnowledge) Search(ctx context.Context, q string, n int) ([]domain.KnowledgeResult, error) {
	return nil, nil
}
func (f *fakeKnowledge) SearchFormatted(ctx context.Context, q string, n int) (string, error) {
	return f.formatted, nil
}

func TestResearchCanHandle(t *testing.T) {
	s := NewResearch(&fakeLLM{}, nil, discardLogger())

	if !s.CanHandle(domain.NewTask("做市场调研", "", domain.ComplexitySimple)) {
		t.Error("expected research task to match")
	}
	if s.CanHandle(domain.NewTask("订机票", "", domain.ComplexitySimple)) {
		t.Error("unexpected match")
	}
}

func TestResearchUsesKnowledgeWhenRelevant(t *testing.T) {
	llm := &fakeLLM{text: "调研结论..."}
	s := NewResearch(llm, &fakeKnowledge{formatted: "[notes] 已有资料"}, discardLogger())

	resp, err := s.Process(context.Background(), stateWithTask("调研竞品", ""))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Metadata["used_knowledge"] != true {
		t.Errorf("used_knowledge = %v", resp.Metadata["used_knowledge"])
	}
}

func TestResearchSkipsSentinelKnowledge(t *testing.T) {
	llm := &fakeLLM{text: "调研结论..."}
	s := NewResearch(llm, &fakeKnowledge{formatted: domain.NoRelevantInformation + "。"}, discardLogger())

	resp, err := s.Process(context.Background(), stateWithTask("调研竞品", ""))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Metadata["used_knowledge"] != false {
		t.Errorf("used_knowledge = %v", resp.Metadata["used_knowledge"])
	}
}

func TestTaskTextFallsBackToLastUserMessage(t *testing.T) {
	state := domain.NewAgentState()
	state.Append(domain.NewMessage(domain.MessageUserInput, "帮我研究一下", "u1"))

	if got := taskText(state); !strings.Contains(got, "研究") {
		t.Errorf("taskText = %q", got)
	}
}
