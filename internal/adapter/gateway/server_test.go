package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parley/internal/domain"
	"parley/internal/infra/config"
	"parley/internal/usecase/coordinate"
	"parley/internal/usecase/orchestrate"
)

// fakeResponder produces a fixed response for every turn.
type fakeResponder struct {
	resp *domain.AgentResponse
}

func (r *fakeResponder) Respond(ctx context.Context, state *domain.AgentState) (*domain.AgentResponse, error) {
	return r.resp, nil
}

// memStore is an in-process MemoryStore.
type memStore struct {
	data map[string]string
}

func (m *memStore) Store(ctx context.Context, key, value string, metadata map[string]any) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Retrieve(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Search(ctx context.Context, query string, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}

// fakeKnowledge counts chunks and scripts search hits.
type fakeKnowledge struct {
	results []domain.KnowledgeResult
}

func (f *fakeKnowledge) Add(ctx context.Context, content, source string) (int, error) {
	return 2, nil
}

func (f *fakeKnowledge) AddFile(ctx context.Context, path string) (int, error) {
	return 0, domain.NewDomainError("fake.AddFile", domain.ErrInvalidInput, "no such file")
}

func (f *fakeKnowledge) Search(ctx context.Context, query string, limit int) ([]domain.KnowledgeResult, error) {
	return f.results, nil
}

func (f *fakeKnowledge) SearchFormatted(ctx context.Context, query string, limit int) (string, error) {
	return domain.NoRelevantInformation + "。", nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	o := orchestrate.New(orchestrate.Options{
		Responder: &fakeResponder{resp: &domain.AgentResponse{Content: "好的", Confidence: 0.9}},
		Memory:    &memStore{data: map[string]string{}},
		Knowledge: &fakeKnowledge{results: []domain.KnowledgeResult{{Document: "doc", Score: 0.8}}},
		Registry:  coordinate.NewRegistry(),
		Logger:    logger,
	})
	return NewServer(o, config.GatewayConfig{Listen: "127.0.0.1:0"}, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", `{"message": "你好"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var result orchestrate.TurnResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Response != "好的" || result.ConversationID == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestChatEndpointRequiresMessage(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAddKnowledgeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/knowledge", `{"content": "新文档内容", "source": "manual"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"chunks":2`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAddKnowledgeRequiresContentOrPath(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/knowledge", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchKnowledgeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/knowledge/search?q=doc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"doc"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestConversationEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Create a conversation through the chat endpoint first.
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", `{"message": "第一轮", "conversation_id": "conv1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d", w.Code)
	}

	w = doJSON(t, s.Handler(), http.MethodGet, "/api/conversations/conv1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(resp.Messages))
	}
}

func TestConversationEndpointUnknownIDIsEmpty(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/conversations/none", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"messages":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
