package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"parley/internal/domain"
)

// Tavily queries the Tavily search API. Needs an API key.
type Tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewTavily creates the backend. baseURL is overridable for tests.
func NewTavily(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Tavily {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tavily{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search implements domain.WebSearcher.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	if t.apiKey == "" {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrAuthInvalid, "missing API key")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrTransport, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrTransport,
			fmt.Sprintf("status %d: %s", resp.StatusCode, respBody))
	}

	var tav tavilyResponse
	if err := json.Unmarshal(respBody, &tav); err != nil {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrParse, err.Error())
	}

	results := make([]domain.SearchResult, 0, len(tav.Results))
	for _, r := range tav.Results {
		results = append(results, domain.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	t.logger.Debug("web search completed", "backend", "tavily", "query", query, "results", len(results))
	return results, nil
}

// Compile-time interface check.
var _ domain.WebSearcher = (*Tavily)(nil)
